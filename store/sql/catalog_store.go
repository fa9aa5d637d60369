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

// CreditPackageStore reads the purchasable credit package catalog. The
// catalog is operator managed, so the store is read-only.
type CreditPackageStore struct {
	db *bun.DB
}

func NewCreditPackageStore(db *bun.DB) (*CreditPackageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &CreditPackageStore{db: db}, nil
}

func (s *CreditPackageStore) Get(ctx context.Context, id string) (core.CreditPackage, error) {
	if s == nil || s.db == nil {
		return core.CreditPackage{}, errStoreNotConfigured("credit package store")
	}
	record := &creditPackageRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.CreditPackage{}, core.NewNotFoundError(fmt.Sprintf("credit package %s not found", id))
		}
		return core.CreditPackage{}, err
	}
	return record.toDomain(), nil
}

func (s *CreditPackageStore) List(ctx context.Context) ([]core.CreditPackage, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("credit package store")
	}
	var records []*creditPackageRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.active = ?", true).
		OrderExpr("?TableAlias.credits ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.CreditPackage, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// TierDefinitionStore persists the tier catalog keyed by tier name.
type TierDefinitionStore struct {
	db *bun.DB
}

func NewTierDefinitionStore(db *bun.DB) (*TierDefinitionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &TierDefinitionStore{db: db}, nil
}

func (s *TierDefinitionStore) Get(ctx context.Context, name string) (core.TierDefinition, error) {
	if s == nil || s.db == nil {
		return core.TierDefinition{}, errStoreNotConfigured("tier definition store")
	}
	record := &tierDefinitionRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.TierDefinition{}, core.NewNotFoundError(fmt.Sprintf("tier %s not found", name))
		}
		return core.TierDefinition{}, err
	}
	return record.toDomain(), nil
}

func (s *TierDefinitionStore) FindByProductID(ctx context.Context, productID string) (core.TierDefinition, error) {
	if s == nil || s.db == nil {
		return core.TierDefinition{}, errStoreNotConfigured("tier definition store")
	}
	trimmed := strings.TrimSpace(productID)
	record := &tierDefinitionRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.polar_monthly_product_id = ?", trimmed).
				WhereOr("?TableAlias.polar_yearly_product_id = ?", trimmed)
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.TierDefinition{}, core.NewNotFoundError(
				fmt.Sprintf("tier for product %s not found", productID),
			)
		}
		return core.TierDefinition{}, err
	}
	return record.toDomain(), nil
}

func (s *TierDefinitionStore) List(ctx context.Context) ([]core.TierDefinition, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("tier definition store")
	}
	var records []*tierDefinitionRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.sort_order ASC, ?TableAlias.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.TierDefinition, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *TierDefinitionStore) Save(ctx context.Context, definition core.TierDefinition) (core.TierDefinition, error) {
	if s == nil || s.db == nil {
		return core.TierDefinition{}, errStoreNotConfigured("tier definition store")
	}
	if strings.TrimSpace(definition.Name) == "" {
		return core.TierDefinition{}, core.NewBadInputError("tier name is required")
	}
	record := newTierDefinitionRecord(definition)
	_, err := conn(ctx, s.db).NewInsert().
		Model(record).
		On("CONFLICT (name) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("description = EXCLUDED.description").
		Set("monthly_price = EXCLUDED.monthly_price").
		Set("yearly_price = EXCLUDED.yearly_price").
		Set("polar_monthly_product_id = EXCLUDED.polar_monthly_product_id").
		Set("polar_yearly_product_id = EXCLUDED.polar_yearly_product_id").
		Set("projects_limit = EXCLUDED.projects_limit").
		Set("team_members_limit = EXCLUDED.team_members_limit").
		Set("storage_limit_bytes = EXCLUDED.storage_limit_bytes").
		Set("api_calls_limit = EXCLUDED.api_calls_limit").
		Set("features = EXCLUDED.features").
		Set("active = EXCLUDED.active").
		Set("sort_order = EXCLUDED.sort_order").
		Exec(ctx)
	if err != nil {
		return core.TierDefinition{}, err
	}
	return record.toDomain(), nil
}
