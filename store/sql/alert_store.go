package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

type AlertStore struct {
	db *bun.DB
}

func NewAlertStore(db *bun.DB) (*AlertStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &AlertStore{db: db}, nil
}

func (s *AlertStore) Create(ctx context.Context, alert core.Alert) (core.Alert, error) {
	if s == nil || s.db == nil {
		return core.Alert{}, errStoreNotConfigured("alert store")
	}
	if strings.TrimSpace(alert.ID) == "" {
		return core.Alert{}, core.NewBadInputError("alert id is required")
	}
	record := newAlertRecord(alert)
	if _, err := conn(ctx, s.db).NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Alert{}, err
	}
	return record.toDomain(), nil
}

func (s *AlertStore) HasRecent(ctx context.Context, accountID string, alertType string, since time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, errStoreNotConfigured("alert store")
	}
	return conn(ctx, s.db).NewSelect().
		Model((*alertRecord)(nil)).
		Where("?TableAlias.account_id = ?", strings.TrimSpace(accountID)).
		Where("?TableAlias.alert_type = ?", strings.TrimSpace(alertType)).
		Where("?TableAlias.triggered_at > ?", since.UTC()).
		Exists(ctx)
}

func (s *AlertStore) DismissActive(ctx context.Context, accountID string, alertTypes []string, at time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, errStoreNotConfigured("alert store")
	}
	if len(alertTypes) == 0 {
		return 0, nil
	}
	dismissedAt := at.UTC()
	result, err := conn(ctx, s.db).NewUpdate().
		Model((*alertRecord)(nil)).
		Set("status = ?", core.AlertStatusDismissed).
		Set("dismissed_at = ?", dismissedAt).
		Where("account_id = ?", strings.TrimSpace(accountID)).
		Where("status = ?", core.AlertStatusActive).
		Where("alert_type IN (?)", bun.In(alertTypes)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
