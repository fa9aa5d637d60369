package billing

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
	"github.com/goliatone/go-billing/webhooks"
)

// Handlers binds the reconciliation services to webhook event types. One
// instance registers against both the provider and the GitHub dispatcher.
type Handlers struct {
	credits *Credits
	tiers   *Tiers
	access  *Access
	stores  core.StoreProvider
	logger  core.Logger
}

func NewHandlers(credits *Credits, tiers *Tiers, access *Access, stores core.StoreProvider) *Handlers {
	_, logger := glog.Resolve("billing.handlers", nil, nil)
	return &Handlers{
		credits: credits,
		tiers:   tiers,
		access:  access,
		stores:  stores,
		logger:  logger,
	}
}

// RegisterPolar wires the provider event types.
func (h *Handlers) RegisterPolar(dispatcher *webhooks.Dispatcher) {
	dispatcher.Register("order.completed", h.handleOrderCompleted)
	dispatcher.Register("refund.created", h.handleRefundCreated)
	dispatcher.Register("payment.failed", func(ctx context.Context, event webhooks.Event) error {
		return h.credits.HandlePaymentFailed(ctx, event.Data)
	})
	dispatcher.Register("subscription.created", h.handleSubscriptionCreated)
	dispatcher.Register("subscription.updated", func(ctx context.Context, event webhooks.Event) error {
		return h.tiers.HandleUpdated(ctx, event.Data)
	})
	dispatcher.Register("subscription.cancelled", h.handleSubscriptionCancelled)
	dispatcher.Register("subscription.resumed", func(ctx context.Context, event webhooks.Event) error {
		return h.tiers.HandleResumed(ctx, event.Data)
	})
	dispatcher.Register("customer.updated", func(ctx context.Context, event webhooks.Event) error {
		return h.tiers.HandleCustomerUpdated(ctx, event.Data)
	})
}

// RegisterGitHub wires the collaboration membership events.
func (h *Handlers) RegisterGitHub(dispatcher *webhooks.Dispatcher) {
	dispatcher.Register("member.added", func(ctx context.Context, event webhooks.Event) error {
		return h.access.HandleMemberAdded(ctx, event.Data)
	})
	dispatcher.Register("member.removed", func(ctx context.Context, event webhooks.Event) error {
		return h.access.HandleMemberRemoved(ctx, event.Data)
	})
}

// handleOrderCompleted routes a completed order by its metadata: credit
// purchases top up the balance, repository orders grant access. Orders for
// subscription products are handled by the subscription events themselves.
func (h *Handlers) handleOrderCompleted(ctx context.Context, event webhooks.Event) error {
	data := event.Data
	metadata := polar.FieldMap(data, "metadata")

	if polar.FieldString(metadata, "type") == "credits" || polar.FieldString(metadata, "credits_amount") != "" {
		return h.handleCreditPurchase(ctx, data, metadata)
	}
	if polar.FieldString(metadata, "package_id") != "" || polar.FieldString(metadata, "repository_id") != "" {
		return h.access.HandleOrderCompleted(ctx, data)
	}
	h.logger.Info("order completed without actionable metadata", "order_id", polar.FieldString(data, "id"))
	return nil
}

func (h *Handlers) handleCreditPurchase(ctx context.Context, data map[string]any, metadata map[string]any) error {
	amount := polar.FieldFloat(metadata, "credits_amount")
	if amount <= 0 {
		h.logger.Warn("credit order without positive amount, skipping", "order_id", polar.FieldString(data, "id"))
		return nil
	}

	customerID := polar.FieldString(data, "customer_id")
	account, err := h.stores.AccountStore().FindByCustomerID(ctx, customerID)
	if core.IsNotFound(err) {
		h.logger.Warn("credit order for unknown customer, skipping", "customer_id", customerID)
		return nil
	}
	if err != nil {
		return err
	}

	_, err = h.credits.Add(ctx, AddRequest{
		AccountID:    account.ID,
		Amount:       amount,
		PackageID:    polar.FieldString(metadata, "package_id"),
		PolarOrderID: polar.FieldString(data, "id"),
	})
	return err
}

// handleRefundCreated reverses the credit purchase if one exists for the
// order and revokes any repository access it paid for.
func (h *Handlers) handleRefundCreated(ctx context.Context, event webhooks.Event) error {
	data := event.Data
	_, err := h.credits.Refund(ctx, RefundRequest{
		PolarOrderID:       polar.FieldString(data, "order_id"),
		PolarTransactionID: polar.FieldString(data, "id"),
	})
	if err != nil && !core.IsNotFound(err) {
		return err
	}
	if core.IsNotFound(err) {
		h.logger.Info("refund without matching credit purchase", "order_id", polar.FieldString(data, "order_id"))
	}
	return h.access.HandleRefund(ctx, data)
}

func (h *Handlers) handleSubscriptionCreated(ctx context.Context, event webhooks.Event) error {
	if err := h.tiers.HandleCreated(ctx, event.Data); err != nil {
		return err
	}
	return h.access.HandleSubscriptionAccess(ctx, event.Data)
}

func (h *Handlers) handleSubscriptionCancelled(ctx context.Context, event webhooks.Event) error {
	if err := h.tiers.HandleCancelled(ctx, event.Data); err != nil {
		return err
	}
	return h.access.HandleSubscriptionCancelled(ctx, event.Data)
}
