package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

type AccessStore struct {
	db   *bun.DB
	repo repository.Repository[*repositoryAccessRecord]
}

func NewAccessStore(db *bun.DB) (*AccessStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*repositoryAccessRecord](db, repositoryAccessHandlers())
	if err := validateRepository(repo, "repository access"); err != nil {
		return nil, err
	}
	return &AccessStore{db: db, repo: repo}, nil
}

func (s *AccessStore) Get(ctx context.Context, id string) (core.RepositoryAccess, error) {
	if s == nil || s.db == nil {
		return core.RepositoryAccess{}, errStoreNotConfigured("access store")
	}
	record := &repositoryAccessRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RepositoryAccess{}, core.NewNotFoundError(fmt.Sprintf("access grant %s not found", id))
		}
		return core.RepositoryAccess{}, err
	}
	return record.toDomain(), nil
}

func (s *AccessStore) FindByAccountAndRepository(ctx context.Context, accountID string, repositoryID string) (core.RepositoryAccess, error) {
	if s == nil || s.db == nil {
		return core.RepositoryAccess{}, errStoreNotConfigured("access store")
	}
	record := &repositoryAccessRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.account_id = ?", strings.TrimSpace(accountID)).
		Where("?TableAlias.repository_id = ?", strings.TrimSpace(repositoryID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RepositoryAccess{}, core.NewNotFoundError(
				fmt.Sprintf("access grant for account %s on repository %s not found", accountID, repositoryID),
			)
		}
		return core.RepositoryAccess{}, err
	}
	return record.toDomain(), nil
}

func (s *AccessStore) ListByPurchaseReference(ctx context.Context, reference string) ([]core.RepositoryAccess, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("access store")
	}
	var records []*repositoryAccessRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.purchase_reference = ?", strings.TrimSpace(reference)).
		OrderExpr("?TableAlias.granted_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accessesToDomain(records), nil
}

func (s *AccessStore) ListByOrderID(ctx context.Context, polarOrderID string) ([]core.RepositoryAccess, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("access store")
	}
	var records []*repositoryAccessRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.polar_order_id = ?", strings.TrimSpace(polarOrderID)).
		OrderExpr("?TableAlias.granted_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accessesToDomain(records), nil
}

// Save inserts a new grant or rewrites an existing one in place. Grants keep
// their row identity across revoke and re-grant cycles.
func (s *AccessStore) Save(ctx context.Context, access core.RepositoryAccess) (core.RepositoryAccess, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.RepositoryAccess{}, errStoreNotConfigured("access store")
	}
	id := strings.TrimSpace(access.ID)
	if id == "" {
		return core.RepositoryAccess{}, core.NewBadInputError("access grant id is required")
	}
	exists, err := conn(ctx, s.db).NewSelect().
		Model((*repositoryAccessRecord)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	record := newRepositoryAccessRecord(access)
	if exists {
		if _, err := conn(ctx, s.db).NewUpdate().
			Model(record).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return core.RepositoryAccess{}, err
		}
		return record.toDomain(), nil
	}
	created, err := s.repo.CreateTx(ctx, conn(ctx, s.db), record)
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	return created.toDomain(), nil
}

func accessesToDomain(records []*repositoryAccessRecord) []core.RepositoryAccess {
	out := make([]core.RepositoryAccess, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}
