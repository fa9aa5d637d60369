package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

type UsageRecordStore struct {
	db *bun.DB
}

func NewUsageRecordStore(db *bun.DB) (*UsageRecordStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &UsageRecordStore{db: db}, nil
}

func (s *UsageRecordStore) Create(ctx context.Context, record core.UsageRecord) (core.UsageRecord, error) {
	if s == nil || s.db == nil {
		return core.UsageRecord{}, errStoreNotConfigured("usage record store")
	}
	if strings.TrimSpace(record.ID) == "" {
		return core.UsageRecord{}, core.NewBadInputError("usage record id is required")
	}
	row := newUsageRecordRow(record)
	if _, err := conn(ctx, s.db).NewInsert().Model(row).Exec(ctx); err != nil {
		return core.UsageRecord{}, err
	}
	return row.toDomain(), nil
}

func (s *UsageRecordStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]core.UsageRecord, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("usage record store")
	}
	var rows []*usageRecordRow
	query := conn(ctx, s.db).NewSelect().
		Model(&rows).
		Where("?TableAlias.account_id = ?", strings.TrimSpace(accountID)).
		OrderExpr("?TableAlias.completed_at DESC, ?TableAlias.id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.UsageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
