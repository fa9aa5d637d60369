package command

import (
	"context"

	"github.com/goliatone/go-billing/billing"
	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/webhooks"
	gocmd "github.com/goliatone/go-command"
)

// CreditMutatingService is the slice of the credits service the command
// layer drives. *billing.Credits satisfies it.
type CreditMutatingService interface {
	Consume(ctx context.Context, req billing.ConsumeRequest) (core.LedgerEntry, error)
	Add(ctx context.Context, req billing.AddRequest) (core.LedgerEntry, error)
	Refund(ctx context.Context, req billing.RefundRequest) (core.LedgerEntry, error)
	GrantWelcome(ctx context.Context, accountID string) (core.LedgerEntry, error)
}

// AccessMutatingService is the slice of the access service the command
// layer drives. *billing.Access satisfies it.
type AccessMutatingService interface {
	Grant(ctx context.Context, req billing.GrantRequest) (core.RepositoryAccess, error)
	Revoke(ctx context.Context, accountID string, repositoryID string, reason string) (core.RepositoryAccess, error)
}

type ConsumeCreditsCommand struct {
	service CreditMutatingService
}

func NewConsumeCreditsCommand(service CreditMutatingService) *ConsumeCreditsCommand {
	return &ConsumeCreditsCommand{service: service}
}

func (c *ConsumeCreditsCommand) Execute(ctx context.Context, msg ConsumeCreditsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credits service is required")
	}
	out, err := c.service.Consume(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AddCreditsCommand struct {
	service CreditMutatingService
}

func NewAddCreditsCommand(service CreditMutatingService) *AddCreditsCommand {
	return &AddCreditsCommand{service: service}
}

func (c *AddCreditsCommand) Execute(ctx context.Context, msg AddCreditsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credits service is required")
	}
	out, err := c.service.Add(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefundCreditsCommand struct {
	service CreditMutatingService
}

func NewRefundCreditsCommand(service CreditMutatingService) *RefundCreditsCommand {
	return &RefundCreditsCommand{service: service}
}

func (c *RefundCreditsCommand) Execute(ctx context.Context, msg RefundCreditsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credits service is required")
	}
	out, err := c.service.Refund(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GrantWelcomeCreditsCommand struct {
	service CreditMutatingService
}

func NewGrantWelcomeCreditsCommand(service CreditMutatingService) *GrantWelcomeCreditsCommand {
	return &GrantWelcomeCreditsCommand{service: service}
}

func (c *GrantWelcomeCreditsCommand) Execute(ctx context.Context, msg GrantWelcomeCreditsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: credits service is required")
	}
	out, err := c.service.GrantWelcome(ctx, msg.AccountID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GrantAccessCommand struct {
	service AccessMutatingService
}

func NewGrantAccessCommand(service AccessMutatingService) *GrantAccessCommand {
	return &GrantAccessCommand{service: service}
}

func (c *GrantAccessCommand) Execute(ctx context.Context, msg GrantAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access service is required")
	}
	out, err := c.service.Grant(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RevokeAccessCommand struct {
	service AccessMutatingService
}

func NewRevokeAccessCommand(service AccessMutatingService) *RevokeAccessCommand {
	return &RevokeAccessCommand{service: service}
}

func (c *RevokeAccessCommand) Execute(ctx context.Context, msg RevokeAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access service is required")
	}
	out, err := c.service.Revoke(ctx, msg.AccountID, msg.RepositoryID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// WebhookDispatching is the slice of the webhook pipeline the command layer
// drives. *webhooks.Dispatcher satisfies it.
type WebhookDispatching interface {
	Dispatch(ctx context.Context, req webhooks.InboundRequest) webhooks.Outcome
}

// ProcessWebhookCommand routes a raw delivery to the dispatcher registered
// for its source. The dispatch outcome is stored for the caller; only an
// internal failure surfaces as a command error so queue retries replay the
// delivery.
type ProcessWebhookCommand struct {
	dispatchers map[string]WebhookDispatching
}

func NewProcessWebhookCommand(dispatchers map[string]WebhookDispatching) *ProcessWebhookCommand {
	return &ProcessWebhookCommand{dispatchers: dispatchers}
}

func (c *ProcessWebhookCommand) Execute(ctx context.Context, msg ProcessWebhookMessage) error {
	if c == nil || len(c.dispatchers) == 0 {
		return commandDependencyError("command: webhook dispatchers are required")
	}
	dispatcher, ok := c.dispatchers[msg.Source]
	if !ok || dispatcher == nil {
		return commandInvalidInputError("command: no dispatcher for webhook source " + msg.Source)
	}

	outcome := dispatcher.Dispatch(ctx, webhooks.InboundRequest{
		Source:  msg.Source,
		Body:    msg.Body,
		Headers: msg.Headers,
	})
	storeResult(ctx, outcome)
	if outcome == webhooks.OutcomeInternalError {
		return commandInternalError("command: webhook reconciliation failed for " + msg.Source)
	}
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
