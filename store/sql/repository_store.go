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

// RepositoryStore reads the sellable repository catalog.
type RepositoryStore struct {
	db *bun.DB
}

func NewRepositoryStore(db *bun.DB) (*RepositoryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &RepositoryStore{db: db}, nil
}

func (s *RepositoryStore) Get(ctx context.Context, id string) (core.Repository, error) {
	if s == nil || s.db == nil {
		return core.Repository{}, errStoreNotConfigured("repository store")
	}
	record := &repositoryRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Repository{}, core.NewNotFoundError(fmt.Sprintf("repository %s not found", id))
		}
		return core.Repository{}, err
	}
	return record.toDomain(), nil
}

func (s *RepositoryStore) FindByGithubID(ctx context.Context, githubID string) (core.Repository, error) {
	if s == nil || s.db == nil {
		return core.Repository{}, errStoreNotConfigured("repository store")
	}
	record := &repositoryRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.github_id = ?", strings.TrimSpace(githubID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Repository{}, core.NewNotFoundError(
				fmt.Sprintf("repository with github id %s not found", githubID),
			)
		}
		return core.Repository{}, err
	}
	return record.toDomain(), nil
}

func (s *RepositoryStore) ListByPackage(ctx context.Context, packageID string) ([]core.Repository, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("repository store")
	}
	pkg := &repositoryPackageRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(pkg).
		Where("?TableAlias.id = ?", strings.TrimSpace(packageID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError(fmt.Sprintf("repository package %s not found", packageID))
		}
		return nil, err
	}
	if len(pkg.RepositoryIDs) == 0 {
		return []core.Repository{}, nil
	}
	var records []*repositoryRecord
	err = conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.id IN (?)", bun.In(pkg.RepositoryIDs)).
		OrderExpr("?TableAlias.full_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return repositoriesToDomain(records), nil
}

func (s *RepositoryStore) ListByProduct(ctx context.Context, polarProductID string) ([]core.Repository, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("repository store")
	}
	var records []*repositoryRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.polar_product_id = ?", strings.TrimSpace(polarProductID)).
		OrderExpr("?TableAlias.full_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return repositoriesToDomain(records), nil
}

func repositoriesToDomain(records []*repositoryRecord) []core.Repository {
	out := make([]core.Repository, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}

type RepositoryPackageStore struct {
	db *bun.DB
}

func NewRepositoryPackageStore(db *bun.DB) (*RepositoryPackageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &RepositoryPackageStore{db: db}, nil
}

func (s *RepositoryPackageStore) Get(ctx context.Context, id string) (core.RepositoryPackage, error) {
	if s == nil || s.db == nil {
		return core.RepositoryPackage{}, errStoreNotConfigured("repository package store")
	}
	record := &repositoryPackageRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RepositoryPackage{}, core.NewNotFoundError(
				fmt.Sprintf("repository package %s not found", id),
			)
		}
		return core.RepositoryPackage{}, err
	}
	return record.toDomain(), nil
}
