package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-billing/billing"
)

const (
	TypeConsumeCredits      = "billing.command.credits.consume"
	TypeAddCredits          = "billing.command.credits.add"
	TypeRefundCredits       = "billing.command.credits.refund"
	TypeGrantWelcomeCredits = "billing.command.credits.grant_welcome"
	TypeGrantAccess         = "billing.command.access.grant"
	TypeRevokeAccess        = "billing.command.access.revoke"
	TypeProcessWebhook      = "billing.command.webhooks.process"
)

type ConsumeCreditsMessage struct {
	Request billing.ConsumeRequest
}

func (ConsumeCreditsMessage) Type() string { return TypeConsumeCredits }

func (m ConsumeCreditsMessage) Validate() error {
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(m.Request.OperationType) == "" {
		return fmt.Errorf("command: operation type is required")
	}
	return nil
}

type AddCreditsMessage struct {
	Request billing.AddRequest
}

func (AddCreditsMessage) Type() string { return TypeAddCredits }

func (m AddCreditsMessage) Validate() error {
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if m.Request.Amount <= 0 {
		return fmt.Errorf("command: amount must be positive")
	}
	return nil
}

type RefundCreditsMessage struct {
	Request billing.RefundRequest
}

func (RefundCreditsMessage) Type() string { return TypeRefundCredits }

func (m RefundCreditsMessage) Validate() error {
	if strings.TrimSpace(m.Request.PolarOrderID) == "" && strings.TrimSpace(m.Request.PolarTransactionID) == "" {
		return fmt.Errorf("command: order id or transaction id is required")
	}
	return nil
}

type GrantWelcomeCreditsMessage struct {
	AccountID string
}

func (GrantWelcomeCreditsMessage) Type() string { return TypeGrantWelcomeCredits }

func (m GrantWelcomeCreditsMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	return nil
}

type GrantAccessMessage struct {
	Request billing.GrantRequest
}

func (GrantAccessMessage) Type() string { return TypeGrantAccess }

func (m GrantAccessMessage) Validate() error {
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(m.Request.RepositoryID) == "" {
		return fmt.Errorf("command: repository id is required")
	}
	return nil
}

type RevokeAccessMessage struct {
	AccountID    string
	RepositoryID string
	Reason       string
}

func (RevokeAccessMessage) Type() string { return TypeRevokeAccess }

func (m RevokeAccessMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(m.RepositoryID) == "" {
		return fmt.Errorf("command: repository id is required")
	}
	return nil
}

// ProcessWebhookMessage carries a raw provider delivery through the command
// bus so webhook reconciliation can run behind the same dispatch surface as
// the rest of the mutating operations.
type ProcessWebhookMessage struct {
	Source  string
	Body    []byte
	Headers map[string]string
}

func (ProcessWebhookMessage) Type() string { return TypeProcessWebhook }

func (m ProcessWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Source) == "" {
		return fmt.Errorf("command: webhook source is required")
	}
	if len(m.Body) == 0 {
		return fmt.Errorf("command: webhook body is required")
	}
	return nil
}
