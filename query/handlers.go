package query

import (
	"context"

	"github.com/goliatone/go-billing/core"
)

// AccountReader matches core.AccountStore so the factory's store can be
// handed to the query layer directly.
type AccountReader interface {
	Get(ctx context.Context, id string) (core.Account, error)
}

// LedgerHistoryReader matches the credits service's read surface.
type LedgerHistoryReader interface {
	History(ctx context.Context, accountID string) ([]core.LedgerEntry, error)
}

type UsageRecordReader interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]core.UsageRecord, error)
}

type CreditPackageReader interface {
	List(ctx context.Context) ([]core.CreditPackage, error)
}

type TierReader interface {
	List(ctx context.Context) ([]core.TierDefinition, error)
}

type QuotaReader interface {
	GetByAccount(ctx context.Context, accountID string) (core.UsageQuota, error)
}

type AccessGrantReader interface {
	ListByOrderID(ctx context.Context, polarOrderID string) ([]core.RepositoryAccess, error)
}

type GetAccountQuery struct {
	reader AccountReader
}

func NewGetAccountQuery(reader AccountReader) *GetAccountQuery {
	return &GetAccountQuery{reader: reader}
}

func (q *GetAccountQuery) Query(ctx context.Context, msg GetAccountMessage) (core.Account, error) {
	if q == nil || q.reader == nil {
		return core.Account{}, queryDependencyError("query: account reader is required")
	}
	return q.reader.Get(ctx, msg.AccountID)
}

type CreditHistoryQuery struct {
	reader LedgerHistoryReader
}

func NewCreditHistoryQuery(reader LedgerHistoryReader) *CreditHistoryQuery {
	return &CreditHistoryQuery{reader: reader}
}

func (q *CreditHistoryQuery) Query(ctx context.Context, msg CreditHistoryMessage) ([]core.LedgerEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: ledger history reader is required")
	}
	return q.reader.History(ctx, msg.AccountID)
}

type ListUsageRecordsQuery struct {
	reader UsageRecordReader
}

func NewListUsageRecordsQuery(reader UsageRecordReader) *ListUsageRecordsQuery {
	return &ListUsageRecordsQuery{reader: reader}
}

func (q *ListUsageRecordsQuery) Query(
	ctx context.Context,
	msg ListUsageRecordsMessage,
) ([]core.UsageRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: usage record reader is required")
	}
	return q.reader.ListByAccount(ctx, msg.AccountID, msg.Limit)
}

type ListCreditPackagesQuery struct {
	reader CreditPackageReader
}

func NewListCreditPackagesQuery(reader CreditPackageReader) *ListCreditPackagesQuery {
	return &ListCreditPackagesQuery{reader: reader}
}

func (q *ListCreditPackagesQuery) Query(
	ctx context.Context,
	msg ListCreditPackagesMessage,
) ([]core.CreditPackage, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: credit package reader is required")
	}
	return q.reader.List(ctx)
}

type ListTiersQuery struct {
	reader TierReader
}

func NewListTiersQuery(reader TierReader) *ListTiersQuery {
	return &ListTiersQuery{reader: reader}
}

func (q *ListTiersQuery) Query(ctx context.Context, msg ListTiersMessage) ([]core.TierDefinition, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: tier reader is required")
	}
	return q.reader.List(ctx)
}

type GetUsageQuotaQuery struct {
	reader QuotaReader
}

func NewGetUsageQuotaQuery(reader QuotaReader) *GetUsageQuotaQuery {
	return &GetUsageQuotaQuery{reader: reader}
}

func (q *GetUsageQuotaQuery) Query(ctx context.Context, msg GetUsageQuotaMessage) (core.UsageQuota, error) {
	if q == nil || q.reader == nil {
		return core.UsageQuota{}, queryDependencyError("query: quota reader is required")
	}
	return q.reader.GetByAccount(ctx, msg.AccountID)
}

type ListAccessGrantsQuery struct {
	reader AccessGrantReader
}

func NewListAccessGrantsQuery(reader AccessGrantReader) *ListAccessGrantsQuery {
	return &ListAccessGrantsQuery{reader: reader}
}

func (q *ListAccessGrantsQuery) Query(
	ctx context.Context,
	msg ListAccessGrantsMessage,
) ([]core.RepositoryAccess, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: access grant reader is required")
	}
	return q.reader.ListByOrderID(ctx, msg.PolarOrderID)
}
