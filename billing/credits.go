package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
)

// JobAutoRecharge is submitted when a balance crosses the auto-recharge
// threshold; the worker creates the checkout out of band.
const JobAutoRecharge = "credits.auto_recharge"

// ConsumeRequest prices and records one credit-consuming operation.
type ConsumeRequest struct {
	AccountID     string
	OperationType string
	OperationID   string
	Parameters    map[string]any
	Metadata      map[string]any
}

// AddRequest credits an account. PolarOrderID doubles as the idempotency
// key: a second add for the same order returns the original entry.
type AddRequest struct {
	AccountID    string
	Amount       float64
	PackageID    string
	PolarOrderID string
	Description  string
}

// RefundRequest reverses a purchase. PolarTransactionID is the idempotency
// key for replayed refund events.
type RefundRequest struct {
	PolarOrderID       string
	PolarTransactionID string
	Reason             string
}

// Credits owns every balance mutation. All writes run inside the store's
// transaction boundary while holding the account's lock.
type Credits struct {
	stores    core.StoreProvider
	config    core.Config
	logger    core.Logger
	mailer    core.Mailer
	analytics core.AnalyticsSink
	jobs      core.JobSubmitter
	metrics   core.MetricsRecorder
	locks     *accountLocks
	now       func() time.Time
	newID     func() string
}

type CreditsOption func(*Credits)

func WithCreditsLogger(logger core.Logger) CreditsOption {
	return func(c *Credits) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithCreditsMailer(mailer core.Mailer) CreditsOption {
	return func(c *Credits) {
		c.mailer = mailer
	}
}

func WithCreditsAnalytics(sink core.AnalyticsSink) CreditsOption {
	return func(c *Credits) {
		c.analytics = sink
	}
}

func WithCreditsJobs(jobs core.JobSubmitter) CreditsOption {
	return func(c *Credits) {
		c.jobs = jobs
	}
}

func WithCreditsMetrics(metrics core.MetricsRecorder) CreditsOption {
	return func(c *Credits) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

func WithCreditsClock(now func() time.Time) CreditsOption {
	return func(c *Credits) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCredits(stores core.StoreProvider, config core.Config, opts ...CreditsOption) *Credits {
	_, logger := glog.Resolve("billing.credits", nil, nil)
	credits := &Credits{
		stores:  stores,
		config:  config,
		logger:  logger,
		metrics: core.NopMetricsRecorder{},
		locks:   newAccountLocks(),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(credits)
		}
	}
	return credits
}

// EstimateCost prices an operation without touching any account.
func (c *Credits) EstimateCost(operationType string, params map[string]any) float64 {
	return CalculateCost(operationType, params)
}

// Consume charges an account for one operation. The insufficient-credits
// check happens before any write; on failure the balance and ledger are
// untouched.
func (c *Credits) Consume(ctx context.Context, req ConsumeRequest) (core.LedgerEntry, error) {
	if c == nil || c.stores == nil {
		return core.LedgerEntry{}, core.NewInternalError("credits service is not configured", nil)
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return core.LedgerEntry{}, core.NewBadInputError("account id is required")
	}
	operationType := strings.TrimSpace(req.OperationType)
	if operationType == "" {
		return core.LedgerEntry{}, core.NewBadInputError("operation type is required")
	}

	amount := CalculateCost(operationType, req.Parameters)
	unlock := c.locks.Lock(accountID)
	defer unlock()

	var entry core.LedgerEntry
	var account core.Account
	err := c.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		current, err := c.stores.AccountStore().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !current.SufficientCredits(amount) {
			return core.NewInsufficientCreditsError(amount, current.CreditBalance)
		}

		now := c.now()
		previous := current.CreditBalance
		current.CreditBalance = previous - amount
		current.TotalCreditsConsumed += amount
		account, err = c.stores.AccountStore().Update(ctx, current)
		if err != nil {
			return err
		}

		entry, err = c.stores.LedgerStore().Append(ctx, core.LedgerEntry{
			ID:            c.newID(),
			AccountID:     accountID,
			Type:          core.LedgerEntryConsumption,
			Status:        core.LedgerStatusCompleted,
			Amount:        -amount,
			BalanceBefore: previous,
			BalanceAfter:  account.CreditBalance,
			OperationType: operationType,
			OperationID:   strings.TrimSpace(req.OperationID),
			Description:   fmt.Sprintf("Consumed %g credits for %s", amount, operationType),
			Metadata:      req.Metadata,
			ProcessedAt:   now,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}

		_, err = c.stores.UsageRecordStore().Create(ctx, core.UsageRecord{
			ID:              c.newID(),
			AccountID:       accountID,
			LedgerEntryID:   entry.ID,
			OperationType:   operationType,
			OperationID:     strings.TrimSpace(req.OperationID),
			CreditsConsumed: amount,
			Details:         req.Metadata,
			StartedAt:       now,
			CompletedAt:     now,
			Status:          "success",
		})
		return err
	})
	if err != nil {
		return core.LedgerEntry{}, err
	}

	tags := map[string]string{"operation": operationType}
	c.metrics.IncCounter(ctx, "billing.credits.consumed", 1, tags)
	c.metrics.ObserveHistogram(ctx, "billing.credits.consume_amount", amount, tags)
	c.checkBalanceAlerts(ctx, account)
	c.triggerAutoRecharge(ctx, account)
	return entry, nil
}

// Add credits an account and records the purchase. Replayed provider orders
// return the previously recorded entry without mutating anything.
func (c *Credits) Add(ctx context.Context, req AddRequest) (core.LedgerEntry, error) {
	if c == nil || c.stores == nil {
		return core.LedgerEntry{}, core.NewInternalError("credits service is not configured", nil)
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return core.LedgerEntry{}, core.NewBadInputError("account id is required")
	}
	if req.Amount <= 0 {
		return core.LedgerEntry{}, core.NewBadInputError("credit amount must be positive")
	}

	orderID := strings.TrimSpace(req.PolarOrderID)
	if orderID != "" {
		existing, err := c.stores.LedgerStore().FindPurchaseByOrderID(ctx, orderID)
		if err == nil {
			c.logger.Info("credit purchase already applied", "account_id", accountID, "order_id", orderID)
			return existing, nil
		}
		if !core.IsNotFound(err) {
			return core.LedgerEntry{}, err
		}
	}

	unlock := c.locks.Lock(accountID)
	defer unlock()

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("Purchased %g credits", req.Amount)
	}

	var entry core.LedgerEntry
	var account core.Account
	err := c.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		current, err := c.stores.AccountStore().Get(ctx, accountID)
		if err != nil {
			return err
		}

		now := c.now()
		previous := current.CreditBalance
		current.CreditBalance = previous + req.Amount
		current.TotalCreditsPurchased += req.Amount
		current.LastRechargeAt = &now
		account, err = c.stores.AccountStore().Update(ctx, current)
		if err != nil {
			return err
		}

		entry, err = c.stores.LedgerStore().Append(ctx, core.LedgerEntry{
			ID:            c.newID(),
			AccountID:     accountID,
			Type:          core.LedgerEntryPurchase,
			Status:        core.LedgerStatusCompleted,
			Amount:        req.Amount,
			BalanceBefore: previous,
			BalanceAfter:  account.CreditBalance,
			Description:   description,
			PackageID:     strings.TrimSpace(req.PackageID),
			PolarOrderID:  orderID,
			ProcessedAt:   now,
			CreatedAt:     now,
		})
		return err
	})
	if err != nil {
		return core.LedgerEntry{}, err
	}

	c.metrics.IncCounter(ctx, "billing.credits.purchased", 1, nil)
	c.metrics.ObserveHistogram(ctx, "billing.credits.purchase_amount", req.Amount, nil)
	c.dismissBalanceAlerts(ctx, account)
	c.notify(ctx, account, "purchase_confirmation", map[string]any{
		"amount":   req.Amount,
		"order_id": orderID,
	})
	c.track(ctx, accountID, "credits_purchased", map[string]any{
		"amount":     req.Amount,
		"package_id": strings.TrimSpace(req.PackageID),
		"order_id":   orderID,
	})
	return entry, nil
}

// Refund reverses the purchase recorded for a provider order. When the
// account no longer holds the purchased amount the remaining balance is
// deducted in full and the entry is flagged as a partial refund.
func (c *Credits) Refund(ctx context.Context, req RefundRequest) (core.LedgerEntry, error) {
	if c == nil || c.stores == nil {
		return core.LedgerEntry{}, core.NewInternalError("credits service is not configured", nil)
	}
	orderID := strings.TrimSpace(req.PolarOrderID)
	if orderID == "" {
		return core.LedgerEntry{}, core.NewBadInputError("order id is required")
	}

	transactionID := strings.TrimSpace(req.PolarTransactionID)
	if transactionID != "" {
		existing, err := c.stores.LedgerStore().FindByTransactionID(ctx, transactionID)
		if err == nil {
			c.logger.Info("refund already applied", "order_id", orderID, "transaction_id", transactionID)
			return existing, nil
		}
		if !core.IsNotFound(err) {
			return core.LedgerEntry{}, err
		}
	}

	original, err := c.stores.LedgerStore().FindPurchaseByOrderID(ctx, orderID)
	if err != nil {
		return core.LedgerEntry{}, err
	}

	unlock := c.locks.Lock(original.AccountID)
	defer unlock()

	var entry core.LedgerEntry
	var partial bool
	err = c.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		account, err := c.stores.AccountStore().Get(ctx, original.AccountID)
		if err != nil {
			return err
		}

		now := c.now()
		previous := account.CreditBalance
		deducted := original.Amount
		partial = previous < original.Amount
		if partial {
			deducted = previous
		}
		account.CreditBalance = previous - deducted
		account, err = c.stores.AccountStore().Update(ctx, account)
		if err != nil {
			return err
		}

		record := core.LedgerEntry{
			ID:                 c.newID(),
			AccountID:          original.AccountID,
			Type:               core.LedgerEntryRefund,
			Status:             core.LedgerStatusCompleted,
			Amount:             -deducted,
			BalanceBefore:      previous,
			BalanceAfter:       account.CreditBalance,
			Description:        fmt.Sprintf("Refund for order %s", orderID),
			PolarOrderID:       orderID,
			PolarTransactionID: transactionID,
			ReferenceID:        original.ID,
			ProcessedAt:        now,
			CreatedAt:          now,
		}
		if partial {
			record.Description = fmt.Sprintf("Partial refund for order %s (insufficient balance)", orderID)
			record.Metadata = map[string]any{
				"partial_refund":  true,
				"original_amount": original.Amount,
				"refunded_amount": deducted,
			}
		}
		entry, err = c.stores.LedgerStore().Append(ctx, record)
		if err != nil {
			return err
		}

		return c.stores.LedgerStore().MarkRefunded(ctx, original.ID)
	})
	if err != nil {
		return core.LedgerEntry{}, err
	}

	event := "credits_refunded"
	if partial {
		event = "credits_partially_refunded"
	}
	c.metrics.IncCounter(ctx, "billing.credits.refunded", 1, map[string]string{
		"partial": fmt.Sprintf("%t", partial),
	})
	c.track(ctx, original.AccountID, event, map[string]any{
		"order_id":        orderID,
		"transaction_id":  transactionID,
		"original_amount": original.Amount,
		"refunded_amount": -entry.Amount,
	})
	return entry, nil
}

// HandlePaymentFailed reacts to a failed provider payment. A failed
// auto-recharge disables further attempts and raises an alert; manual
// failures only notify the buyer.
func (c *Credits) HandlePaymentFailed(ctx context.Context, data map[string]any) error {
	customerID := polar.FieldString(data, "customer_id")
	if customerID == "" {
		return core.NewBadInputError("customer id is required")
	}
	account, err := c.stores.AccountStore().FindByCustomerID(ctx, customerID)
	if core.IsNotFound(err) {
		c.logger.Warn("payment failure for unknown customer, skipping", "customer_id", customerID)
		return nil
	}
	if err != nil {
		return err
	}

	metadata := polar.FieldMap(data, "metadata")
	failureReason := polar.FieldString(metadata, "failure_reason")
	autoRecharge := polar.FieldString(metadata, "auto_recharge")
	if autoRecharge != "true" {
		c.notify(ctx, account, "payment_failed", map[string]any{
			"failure_reason": failureReason,
		})
		c.track(ctx, account.ID, "payment_failed", map[string]any{
			"failure_reason": failureReason,
		})
		return nil
	}

	account.AutoRechargeEnabled = false
	account, err = c.stores.AccountStore().Update(ctx, account)
	if err != nil {
		return err
	}

	now := c.now()
	_, err = c.stores.AlertStore().Create(ctx, core.Alert{
		ID:             c.newID(),
		AccountID:      account.ID,
		Type:           core.AlertTypeAutoRechargeFailed,
		Status:         core.AlertStatusActive,
		CurrentBalance: account.CreditBalance,
		Message:        "Auto-recharge failed due to payment issues. Please update your payment method.",
		Metadata: map[string]any{
			"failure_reason": failureReason,
		},
		TriggeredAt: now,
	})
	if err != nil {
		return err
	}

	c.notify(ctx, account, "auto_recharge_failed", map[string]any{
		"failure_reason": failureReason,
	})
	c.track(ctx, account.ID, "auto_recharge_failed", map[string]any{
		"failure_reason": failureReason,
	})
	return nil
}

// GrantWelcome seeds a freshly created account with the configured welcome
// balance.
func (c *Credits) GrantWelcome(ctx context.Context, accountID string) (core.LedgerEntry, error) {
	if c.config.WelcomeCredits <= 0 {
		return core.LedgerEntry{}, nil
	}
	return c.Add(ctx, AddRequest{
		AccountID:   accountID,
		Amount:      c.config.WelcomeCredits,
		Description: "Welcome bonus credits",
	})
}

// History returns the account's ledger in chronological order.
func (c *Credits) History(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	return c.stores.LedgerStore().ListByAccount(ctx, strings.TrimSpace(accountID))
}

func (c *Credits) checkBalanceAlerts(ctx context.Context, account core.Account) {
	if !account.AlertsEnabled {
		return
	}
	now := c.now()
	cutoff := now.Add(-c.config.AlertSuppressionWindow)

	if account.CreditBalance <= account.AutoRechargeThreshold {
		c.raiseAlert(ctx, account, core.Alert{
			Type:           core.AlertTypeLowBalance,
			TriggerBalance: account.AutoRechargeThreshold,
			Message:        fmt.Sprintf("Your credit balance is running low. Current balance: %g credits.", account.CreditBalance),
		}, cutoff)
	}
	if account.CreditBalance <= 0 {
		c.raiseAlert(ctx, account, core.Alert{
			Type:    core.AlertTypeZeroBalance,
			Message: "You have run out of credits. Purchase more to continue using our services.",
		}, cutoff)
	}
}

func (c *Credits) raiseAlert(ctx context.Context, account core.Account, alert core.Alert, cutoff time.Time) {
	recent, err := c.stores.AlertStore().HasRecent(ctx, account.ID, alert.Type, cutoff)
	if err != nil {
		c.logger.Error("alert lookup failed", "account_id", account.ID, "type", alert.Type, "error", err)
		return
	}
	if recent {
		return
	}

	alert.ID = c.newID()
	alert.AccountID = account.ID
	alert.Status = core.AlertStatusActive
	alert.CurrentBalance = account.CreditBalance
	alert.TriggeredAt = c.now()
	if _, err := c.stores.AlertStore().Create(ctx, alert); err != nil {
		c.logger.Error("alert create failed", "account_id", account.ID, "type", alert.Type, "error", err)
	}
}

func (c *Credits) dismissBalanceAlerts(ctx context.Context, account core.Account) {
	types := []string{core.AlertTypeLowBalance, core.AlertTypeZeroBalance}
	if _, err := c.stores.AlertStore().DismissActive(ctx, account.ID, types, c.now()); err != nil {
		c.logger.Error("alert dismissal failed", "account_id", account.ID, "error", err)
	}
}

func (c *Credits) triggerAutoRecharge(ctx context.Context, account core.Account) {
	if c.jobs == nil || !account.AutoRechargeEnabled {
		return
	}
	if account.CreditBalance > account.AutoRechargeThreshold {
		return
	}
	if strings.TrimSpace(account.AutoRechargePackageID) == "" {
		return
	}
	if account.LastRechargeAt != nil && c.now().Sub(*account.LastRechargeAt) < c.config.AutoRechargeCooldown {
		return
	}

	err := c.jobs.Submit(ctx, core.JobRequest{
		Name: JobAutoRecharge,
		Payload: map[string]any{
			"account_id": account.ID,
			"package_id": account.AutoRechargePackageID,
			"balance":    account.CreditBalance,
			"threshold":  account.AutoRechargeThreshold,
		},
	})
	if err != nil {
		c.logger.Error("auto-recharge submit failed", "account_id", account.ID, "error", err)
		return
	}
	c.track(ctx, account.ID, "auto_recharge_initiated", map[string]any{
		"package_id":        account.AutoRechargePackageID,
		"current_balance":   account.CreditBalance,
		"threshold_balance": account.AutoRechargeThreshold,
	})
}

func (c *Credits) notify(ctx context.Context, account core.Account, template string, fields map[string]any) {
	if c.mailer == nil || strings.TrimSpace(account.Email) == "" {
		return
	}
	err := c.mailer.Send(ctx, core.MailMessage{
		Template: template,
		To:       account.Email,
		Fields:   fields,
	})
	if err != nil {
		c.logger.Error("mail send failed", "account_id", account.ID, "template", template, "error", err)
	}
}

func (c *Credits) track(ctx context.Context, accountID string, name string, properties map[string]any) {
	if c.analytics == nil {
		return
	}
	err := c.analytics.Track(ctx, core.AnalyticsEvent{
		AccountID:  accountID,
		Name:       name,
		Properties: properties,
	})
	if err != nil {
		c.logger.Error("analytics track failed", "account_id", accountID, "event", name, "error", err)
	}
}
