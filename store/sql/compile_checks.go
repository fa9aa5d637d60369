package sqlstore

import (
	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/webhooks"
)

var (
	_ core.AccountStore           = (*AccountStore)(nil)
	_ core.LedgerStore            = (*LedgerStore)(nil)
	_ core.UsageRecordStore       = (*UsageRecordStore)(nil)
	_ core.AlertStore             = (*AlertStore)(nil)
	_ core.CreditPackageStore     = (*CreditPackageStore)(nil)
	_ core.SubscriptionStore      = (*SubscriptionStore)(nil)
	_ core.TierDefinitionStore    = (*TierDefinitionStore)(nil)
	_ core.QuotaStore             = (*QuotaStore)(nil)
	_ core.RepositoryStore        = (*RepositoryStore)(nil)
	_ core.RepositoryPackageStore = (*RepositoryPackageStore)(nil)
	_ core.AccessStore            = (*AccessStore)(nil)
	_ core.TxRunner               = (*TxRunner)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ webhooks.DeliveryLedger     = (*WebhookDeliveryStore)(nil)
)
