package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

type QuotaStore struct {
	db *bun.DB
}

func NewQuotaStore(db *bun.DB) (*QuotaStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &QuotaStore{db: db}, nil
}

func (s *QuotaStore) GetByAccount(ctx context.Context, accountID string) (core.UsageQuota, error) {
	if s == nil || s.db == nil {
		return core.UsageQuota{}, errStoreNotConfigured("quota store")
	}
	record := &usageQuotaRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.account_id = ?", strings.TrimSpace(accountID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.UsageQuota{}, core.NewNotFoundError(
				fmt.Sprintf("quota for account %s not found", accountID),
			)
		}
		return core.UsageQuota{}, err
	}
	return record.toDomain(), nil
}

func (s *QuotaStore) Save(ctx context.Context, quota core.UsageQuota) (core.UsageQuota, error) {
	if s == nil || s.db == nil {
		return core.UsageQuota{}, errStoreNotConfigured("quota store")
	}
	if strings.TrimSpace(quota.AccountID) == "" {
		return core.UsageQuota{}, core.NewBadInputError("quota account id is required")
	}
	record := newUsageQuotaRecord(quota)
	_, err := conn(ctx, s.db).NewInsert().
		Model(record).
		On("CONFLICT (account_id) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Set("used = EXCLUDED.used").
		Set("limits = EXCLUDED.limits").
		Set("features_enabled = EXCLUDED.features_enabled").
		Set("current_period_start = EXCLUDED.current_period_start").
		Set("current_period_end = EXCLUDED.current_period_end").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.UsageQuota{}, err
	}
	return record.toDomain(), nil
}
