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

type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*subscriptionRecord](db, subscriptionHandlers())
	if err := validateRepository(repo, "subscription"); err != nil {
		return nil, err
	}
	return &SubscriptionStore{db: db, repo: repo}, nil
}

func (s *SubscriptionStore) FindByPolarID(ctx context.Context, polarSubscriptionID string) (core.Subscription, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, errStoreNotConfigured("subscription store")
	}
	record := &subscriptionRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.polar_subscription_id = ?", strings.TrimSpace(polarSubscriptionID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Subscription{}, core.NewNotFoundError(
				fmt.Sprintf("subscription %s not found", polarSubscriptionID),
			)
		}
		return core.Subscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) Create(ctx context.Context, subscription core.Subscription) (core.Subscription, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Subscription{}, errStoreNotConfigured("subscription store")
	}
	if strings.TrimSpace(subscription.ID) == "" {
		return core.Subscription{}, core.NewBadInputError("subscription id is required")
	}
	if strings.TrimSpace(subscription.PolarSubscriptionID) == "" {
		return core.Subscription{}, core.NewBadInputError("polar subscription id is required")
	}
	created, err := s.repo.CreateTx(ctx, conn(ctx, s.db), newSubscriptionRecord(subscription))
	if err != nil {
		return core.Subscription{}, err
	}
	return created.toDomain(), nil
}

func (s *SubscriptionStore) Update(ctx context.Context, subscription core.Subscription) (core.Subscription, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Subscription{}, errStoreNotConfigured("subscription store")
	}
	id := strings.TrimSpace(subscription.ID)
	if id == "" {
		return core.Subscription{}, core.NewBadInputError("subscription id is required")
	}
	updated, err := s.repo.UpdateTx(ctx, conn(ctx, s.db), newSubscriptionRecord(subscription), repository.UpdateByID(id))
	if err != nil {
		return core.Subscription{}, err
	}
	return updated.toDomain(), nil
}
