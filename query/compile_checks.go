package query

import (
	"github.com/goliatone/go-billing/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetAccountMessage, core.Account]                  = (*GetAccountQuery)(nil)
	_ gocmd.Querier[CreditHistoryMessage, []core.LedgerEntry]         = (*CreditHistoryQuery)(nil)
	_ gocmd.Querier[ListUsageRecordsMessage, []core.UsageRecord]      = (*ListUsageRecordsQuery)(nil)
	_ gocmd.Querier[ListCreditPackagesMessage, []core.CreditPackage]  = (*ListCreditPackagesQuery)(nil)
	_ gocmd.Querier[ListTiersMessage, []core.TierDefinition]          = (*ListTiersQuery)(nil)
	_ gocmd.Querier[GetUsageQuotaMessage, core.UsageQuota]            = (*GetUsageQuotaQuery)(nil)
	_ gocmd.Querier[ListAccessGrantsMessage, []core.RepositoryAccess] = (*ListAccessGrantsQuery)(nil)

	_ AccountReader       = (core.AccountStore)(nil)
	_ UsageRecordReader   = (core.UsageRecordStore)(nil)
	_ CreditPackageReader = (core.CreditPackageStore)(nil)
	_ TierReader          = (core.TierDefinitionStore)(nil)
	_ QuotaReader         = (core.QuotaStore)(nil)
	_ AccessGrantReader   = (core.AccessStore)(nil)
)
