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

type AccountStore struct {
	db   *bun.DB
	repo repository.Repository[*accountRecord]
}

func NewAccountStore(db *bun.DB) (*AccountStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*accountRecord](db, accountHandlers())
	if err := validateRepository(repo, "account"); err != nil {
		return nil, err
	}
	return &AccountStore{db: db, repo: repo}, nil
}

func (s *AccountStore) Get(ctx context.Context, id string) (core.Account, error) {
	if s == nil || s.db == nil {
		return core.Account{}, errStoreNotConfigured("account store")
	}
	record := &accountRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, core.NewNotFoundError(fmt.Sprintf("account %s not found", id))
		}
		return core.Account{}, err
	}
	return record.toDomain(), nil
}

func (s *AccountStore) FindByCustomerID(ctx context.Context, polarCustomerID string) (core.Account, error) {
	if s == nil || s.db == nil {
		return core.Account{}, errStoreNotConfigured("account store")
	}
	record := &accountRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.polar_customer_id = ?", strings.TrimSpace(polarCustomerID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, core.NewNotFoundError(
				fmt.Sprintf("account for customer %s not found", polarCustomerID),
			)
		}
		return core.Account{}, err
	}
	return record.toDomain(), nil
}

func (s *AccountStore) FindByGithubUsername(ctx context.Context, username string) (core.Account, error) {
	if s == nil || s.db == nil {
		return core.Account{}, errStoreNotConfigured("account store")
	}
	record := &accountRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("lower(?TableAlias.github_username) = lower(?)", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, core.NewNotFoundError(
				fmt.Sprintf("account for github user %s not found", username),
			)
		}
		return core.Account{}, err
	}
	return record.toDomain(), nil
}

func (s *AccountStore) Create(ctx context.Context, account core.Account) (core.Account, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Account{}, errStoreNotConfigured("account store")
	}
	if strings.TrimSpace(account.ID) == "" {
		return core.Account{}, core.NewBadInputError("account id is required")
	}
	created, err := s.repo.CreateTx(ctx, conn(ctx, s.db), newAccountRecord(account))
	if err != nil {
		return core.Account{}, err
	}
	return created.toDomain(), nil
}

func (s *AccountStore) Update(ctx context.Context, account core.Account) (core.Account, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Account{}, errStoreNotConfigured("account store")
	}
	id := strings.TrimSpace(account.ID)
	if id == "" {
		return core.Account{}, core.NewBadInputError("account id is required")
	}
	updated, err := s.repo.UpdateTx(ctx, conn(ctx, s.db), newAccountRecord(account), repository.UpdateByID(id))
	if err != nil {
		return core.Account{}, err
	}
	return updated.toDomain(), nil
}
