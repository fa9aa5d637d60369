package command

import (
	"github.com/goliatone/go-billing/webhooks"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[ConsumeCreditsMessage]      = (*ConsumeCreditsCommand)(nil)
	_ gocmd.Commander[AddCreditsMessage]          = (*AddCreditsCommand)(nil)
	_ gocmd.Commander[RefundCreditsMessage]       = (*RefundCreditsCommand)(nil)
	_ gocmd.Commander[GrantWelcomeCreditsMessage] = (*GrantWelcomeCreditsCommand)(nil)
	_ gocmd.Commander[GrantAccessMessage]         = (*GrantAccessCommand)(nil)
	_ gocmd.Commander[RevokeAccessMessage]        = (*RevokeAccessCommand)(nil)
	_ gocmd.Commander[ProcessWebhookMessage]      = (*ProcessWebhookCommand)(nil)

	_ WebhookDispatching = (*webhooks.Dispatcher)(nil)
)
