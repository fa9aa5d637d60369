package billing

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
)

// Tiers reconciles provider subscription events into the local tier state:
// the subscription row, the account's current tier, and the usage quota.
type Tiers struct {
	stores    core.StoreProvider
	config    core.Config
	logger    core.Logger
	mailer    core.Mailer
	analytics core.AnalyticsSink
	now       func() time.Time
	newID     func() string
}

type TiersOption func(*Tiers)

func WithTiersLogger(logger core.Logger) TiersOption {
	return func(t *Tiers) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithTiersMailer(mailer core.Mailer) TiersOption {
	return func(t *Tiers) {
		t.mailer = mailer
	}
}

func WithTiersAnalytics(sink core.AnalyticsSink) TiersOption {
	return func(t *Tiers) {
		t.analytics = sink
	}
}

func WithTiersClock(now func() time.Time) TiersOption {
	return func(t *Tiers) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTiers(stores core.StoreProvider, config core.Config, opts ...TiersOption) *Tiers {
	_, logger := glog.Resolve("billing.tiers", nil, nil)
	tiers := &Tiers{
		stores: stores,
		config: config,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(tiers)
		}
	}
	return tiers
}

// HandleCreated materializes a new provider subscription locally and moves
// the account onto its tier. A replayed created event for a known
// subscription folds into an update.
func (t *Tiers) HandleCreated(ctx context.Context, data map[string]any) error {
	subscriptionID := polar.FieldString(data, "id")
	if subscriptionID == "" {
		return core.NewBadInputError("subscription id is required")
	}
	if existing, err := t.stores.SubscriptionStore().FindByPolarID(ctx, subscriptionID); err == nil {
		t.logger.Info("subscription already known, folding into update", "subscription_id", existing.PolarSubscriptionID)
		return t.HandleUpdated(ctx, data)
	} else if !core.IsNotFound(err) {
		return err
	}

	account, ok, err := t.accountForCustomer(ctx, polar.FieldString(data, "customer_id"))
	if err != nil || !ok {
		return err
	}

	tier, err := t.tierFromProduct(ctx, polar.FieldString(data, "product_id"))
	if err != nil {
		return err
	}

	var subscription core.Subscription
	err = t.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		now := t.now()
		subscription, err = t.stores.SubscriptionStore().Create(ctx, core.Subscription{
			ID:                  t.newID(),
			AccountID:           account.ID,
			PolarSubscriptionID: subscriptionID,
			PolarProductID:      polar.FieldString(data, "product_id"),
			Tier:                tier,
			Status:              polar.FieldString(data, "status"),
			Amount:              polar.FieldFloat(data, "amount") / 100,
			Currency:            stringOr(polar.FieldString(data, "currency"), "USD"),
			BillingInterval:     billingInterval(data),
			CurrentPeriodStart:  polar.FieldTime(data, "current_period_start"),
			CurrentPeriodEnd:    polar.FieldTime(data, "current_period_end"),
			TrialStart:          polar.FieldTime(data, "trial_start"),
			TrialEnd:            polar.FieldTime(data, "trial_end"),
			Metadata:            polar.FieldMap(data, "metadata"),
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		if err != nil {
			return err
		}

		account.CurrentTier = tier
		account.TrialEndsAt = nil
		account, err = t.stores.AccountStore().Update(ctx, account)
		if err != nil {
			return err
		}

		return t.applyQuota(ctx, account.ID, tier)
	})
	if err != nil {
		return err
	}

	t.notify(ctx, account, "subscription_activated", map[string]any{
		"tier":            subscription.Tier,
		"subscription_id": subscription.PolarSubscriptionID,
	})
	t.track(ctx, account.ID, "subscription_created", data)
	return nil
}

// HandleUpdated mirrors a provider-side change. Events have no ordering
// guarantee, so an update for an unknown subscription creates it.
func (t *Tiers) HandleUpdated(ctx context.Context, data map[string]any) error {
	subscriptionID := polar.FieldString(data, "id")
	if subscriptionID == "" {
		return core.NewBadInputError("subscription id is required")
	}

	subscription, err := t.stores.SubscriptionStore().FindByPolarID(ctx, subscriptionID)
	if core.IsNotFound(err) {
		t.logger.Info("update for unknown subscription, creating", "subscription_id", subscriptionID)
		return t.HandleCreated(ctx, data)
	}
	if err != nil {
		return err
	}

	account, err := t.stores.AccountStore().Get(ctx, subscription.AccountID)
	if err != nil {
		return err
	}

	oldTier := subscription.Tier
	newTier, err := t.tierFromProduct(ctx, polar.FieldString(data, "product_id"))
	if err != nil {
		return err
	}
	status := polar.FieldString(data, "status")

	err = t.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		subscription.Status = status
		subscription.Amount = polar.FieldFloat(data, "amount") / 100
		subscription.Tier = newTier
		subscription.PolarProductID = polar.FieldString(data, "product_id")
		subscription.CurrentPeriodStart = polar.FieldTime(data, "current_period_start")
		subscription.CurrentPeriodEnd = polar.FieldTime(data, "current_period_end")
		subscription.CancelAtPeriodEnd = polar.FieldBool(data, "cancel_at_period_end")
		if metadata := polar.FieldMap(data, "metadata"); len(metadata) > 0 {
			subscription.Metadata = metadata
		}
		subscription.UpdatedAt = t.now()
		subscription, err = t.stores.SubscriptionStore().Update(ctx, subscription)
		if err != nil {
			return err
		}

		switch status {
		case core.SubscriptionStatusActive, core.SubscriptionStatusTrialing:
			return t.moveAccountToTier(ctx, &account, newTier)
		case core.SubscriptionStatusCancelled, core.SubscriptionStatusPastDue, core.SubscriptionStatusUnpaid:
			if subscription.InGracePeriod(t.now()) {
				return nil
			}
			return t.moveAccountToTier(ctx, &account, t.config.FloorTier)
		default:
			if oldTier != newTier {
				return t.moveAccountToTier(ctx, &account, newTier)
			}
			return nil
		}
	})
	if err != nil {
		return err
	}

	if oldTier != newTier {
		t.notify(ctx, account, "tier_changed", map[string]any{
			"old_tier": oldTier,
			"new_tier": newTier,
		})
	}
	if status == core.SubscriptionStatusPastDue {
		t.notify(ctx, account, "payment_failed", map[string]any{
			"subscription_id": subscription.PolarSubscriptionID,
		})
	}
	t.track(ctx, account.ID, "subscription_updated", data)
	return nil
}

// HandleCancelled records the cancellation. With cancel-at-period-end the
// tier survives until the paid period lapses; otherwise the account drops
// to the floor tier immediately.
func (t *Tiers) HandleCancelled(ctx context.Context, data map[string]any) error {
	subscriptionID := polar.FieldString(data, "id")
	if subscriptionID == "" {
		return core.NewBadInputError("subscription id is required")
	}

	subscription, err := t.stores.SubscriptionStore().FindByPolarID(ctx, subscriptionID)
	if core.IsNotFound(err) {
		t.logger.Info("cancellation for unknown subscription, skipping", "subscription_id", subscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	account, err := t.stores.AccountStore().Get(ctx, subscription.AccountID)
	if err != nil {
		return err
	}

	err = t.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		now := t.now()
		subscription.Status = core.SubscriptionStatusCancelled
		subscription.CancelledAt = &now
		subscription.CancelAtPeriodEnd = polar.FieldBool(data, "cancel_at_period_end")
		subscription.UpdatedAt = now
		subscription, err = t.stores.SubscriptionStore().Update(ctx, subscription)
		if err != nil {
			return err
		}

		if subscription.InGracePeriod(now) {
			return nil
		}
		return t.moveAccountToTier(ctx, &account, t.config.FloorTier)
	})
	if err != nil {
		return err
	}

	t.notify(ctx, account, "subscription_cancelled", map[string]any{
		"subscription_id": subscription.PolarSubscriptionID,
		"grace_period":    subscription.InGracePeriod(t.now()),
	})
	t.track(ctx, account.ID, "subscription_cancelled", data)
	return nil
}

// HandleResumed clears a pending cancellation and restores the
// subscription's tier.
func (t *Tiers) HandleResumed(ctx context.Context, data map[string]any) error {
	subscriptionID := polar.FieldString(data, "id")
	if subscriptionID == "" {
		return core.NewBadInputError("subscription id is required")
	}

	subscription, err := t.stores.SubscriptionStore().FindByPolarID(ctx, subscriptionID)
	if core.IsNotFound(err) {
		t.logger.Info("resume for unknown subscription, skipping", "subscription_id", subscriptionID)
		return nil
	}
	if err != nil {
		return err
	}

	account, err := t.stores.AccountStore().Get(ctx, subscription.AccountID)
	if err != nil {
		return err
	}

	err = t.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		subscription.Status = core.SubscriptionStatusActive
		subscription.CancelledAt = nil
		subscription.CancelAtPeriodEnd = false
		subscription.UpdatedAt = t.now()
		subscription, err = t.stores.SubscriptionStore().Update(ctx, subscription)
		if err != nil {
			return err
		}
		return t.moveAccountToTier(ctx, &account, subscription.Tier)
	})
	if err != nil {
		return err
	}

	t.notify(ctx, account, "subscription_reactivated", map[string]any{
		"subscription_id": subscription.PolarSubscriptionID,
		"tier":            subscription.Tier,
	})
	t.track(ctx, account.ID, "subscription_resumed", data)
	return nil
}

// HandleCustomerUpdated syncs mutable customer fields onto the account.
func (t *Tiers) HandleCustomerUpdated(ctx context.Context, data map[string]any) error {
	account, ok, err := t.accountForCustomer(ctx, polar.FieldString(data, "id"))
	if err != nil || !ok {
		return err
	}
	if email := polar.FieldString(data, "email"); email != "" && email != account.Email {
		account.Email = email
		if _, err := t.stores.AccountStore().Update(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tiers) moveAccountToTier(ctx context.Context, account *core.Account, tier string) error {
	if account.CurrentTier == tier {
		return nil
	}
	account.CurrentTier = tier
	updated, err := t.stores.AccountStore().Update(ctx, *account)
	if err != nil {
		return err
	}
	*account = updated
	return t.applyQuota(ctx, account.ID, tier)
}

// applyQuota replaces the account's limits wholesale from the tier
// definition. Usage counters reset only when the change is a strict
// upgrade, never on downgrade.
func (t *Tiers) applyQuota(ctx context.Context, accountID string, tier string) error {
	definition, err := t.stores.TierDefinitionStore().Get(ctx, tier)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		t.logger.Warn("tier definition missing, quota unchanged", "tier", tier)
		return nil
	}

	quota, err := t.stores.QuotaStore().GetByAccount(ctx, accountID)
	if core.IsNotFound(err) {
		quota = core.UsageQuota{AccountID: accountID, Used: map[string]int64{}}
	} else if err != nil {
		return err
	}

	upgrade := core.TierRank(tier) > core.TierRank(quota.Tier)
	quota.Tier = tier
	quota.Limits = map[string]int64{
		core.QuotaResourceProjects:    definition.ProjectsLimit,
		core.QuotaResourceTeamMembers: definition.TeamMembersLimit,
		core.QuotaResourceStorage:     definition.StorageLimitBytes,
		core.QuotaResourceAPICalls:    definition.APICallsLimit,
	}
	quota.FeaturesEnabled = definition.Features
	if upgrade {
		quota.Used = map[string]int64{}
		quota.CurrentPeriodStart, quota.CurrentPeriodEnd = monthBounds(t.now())
	}
	quota.UpdatedAt = t.now()

	_, err = t.stores.QuotaStore().Save(ctx, quota)
	return err
}

// tierFromProduct maps a provider product id onto a tier name, falling
// back to the configured default when the catalog has no match.
func (t *Tiers) tierFromProduct(ctx context.Context, productID string) (string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return t.config.FallbackTier, nil
	}
	definition, err := t.stores.TierDefinitionStore().FindByProductID(ctx, productID)
	if core.IsNotFound(err) {
		return t.config.FallbackTier, nil
	}
	if err != nil {
		return "", err
	}
	return definition.Name, nil
}

func (t *Tiers) accountForCustomer(ctx context.Context, customerID string) (core.Account, bool, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Account{}, false, core.NewBadInputError("customer id is required")
	}
	account, err := t.stores.AccountStore().FindByCustomerID(ctx, customerID)
	if core.IsNotFound(err) {
		t.logger.Warn("no account for provider customer, skipping", "customer_id", customerID)
		return core.Account{}, false, nil
	}
	if err != nil {
		return core.Account{}, false, err
	}
	return account, true, nil
}

func (t *Tiers) notify(ctx context.Context, account core.Account, template string, fields map[string]any) {
	if t.mailer == nil || strings.TrimSpace(account.Email) == "" {
		return
	}
	err := t.mailer.Send(ctx, core.MailMessage{
		Template: template,
		To:       account.Email,
		Fields:   fields,
	})
	if err != nil {
		t.logger.Error("mail send failed", "account_id", account.ID, "template", template, "error", err)
	}
}

func (t *Tiers) track(ctx context.Context, accountID string, name string, data map[string]any) {
	if t.analytics == nil {
		return
	}
	err := t.analytics.Track(ctx, core.AnalyticsEvent{
		AccountID: accountID,
		Name:      name,
		Properties: map[string]any{
			"subscription_id": polar.FieldString(data, "id"),
			"product_id":      polar.FieldString(data, "product_id"),
			"status":          polar.FieldString(data, "status"),
		},
	})
	if err != nil {
		t.logger.Error("analytics track failed", "account_id", accountID, "event", name, "error", err)
	}
}

func billingInterval(data map[string]any) string {
	if interval := polar.FieldString(data, "recurring_interval"); interval != "" {
		return normalizeInterval(interval)
	}
	if recurring := polar.FieldMap(data, "recurring"); recurring != nil {
		if interval := polar.FieldString(recurring, "interval"); interval != "" {
			return normalizeInterval(interval)
		}
	}
	return core.BillingIntervalMonthly
}

func normalizeInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "year", "yearly", "annual":
		return core.BillingIntervalYearly
	default:
		return core.BillingIntervalMonthly
	}
}

func stringOr(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
