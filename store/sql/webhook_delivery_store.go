package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/webhooks"
)

// WebhookDeliveryStore backs the dispatcher's replay guard with a unique
// (source, delivery_id) row. The insert race is the claim: whichever worker
// inserts first owns the delivery, everyone else sees the unique violation.
type WebhookDeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookDeliveryRecord]
}

func NewWebhookDeliveryStore(db *bun.DB) (*WebhookDeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookDeliveryRecord](db, webhookDeliveryHandlers())
	if err := validateRepository(repo, "webhook delivery"); err != nil {
		return nil, err
	}
	return &WebhookDeliveryStore{db: db, repo: repo}, nil
}

func (s *WebhookDeliveryStore) Claim(
	ctx context.Context,
	source string,
	deliveryID string,
	payload []byte,
) (webhooks.DeliveryRecord, bool, error) {
	if s == nil || s.db == nil {
		return webhooks.DeliveryRecord{}, false, errStoreNotConfigured("webhook delivery store")
	}
	source = strings.TrimSpace(source)
	deliveryID = strings.TrimSpace(deliveryID)
	if source == "" || deliveryID == "" {
		return webhooks.DeliveryRecord{}, false, fmt.Errorf("sqlstore: source and delivery id are required")
	}

	now := time.Now().UTC()
	record := &webhookDeliveryRecord{
		ID:         uuid.NewString(),
		Source:     source,
		DeliveryID: deliveryID,
		Status:     webhooks.DeliveryStatusProcessing,
		Attempts:   1,
		Payload:    append([]byte(nil), payload...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if !isUniqueViolation(err) {
			return webhooks.DeliveryRecord{}, false, err
		}
		existing, findErr := s.find(ctx, source, deliveryID)
		if findErr != nil {
			return webhooks.DeliveryRecord{}, false, findErr
		}
		if existing.Status != webhooks.DeliveryStatusFailed {
			return existing.toDomain(), false, nil
		}
		// Failed deliveries may be retried by the sender; take the claim back.
		existing.Status = webhooks.DeliveryStatusProcessing
		existing.Attempts++
		existing.LastError = ""
		existing.UpdatedAt = time.Now().UTC()
		if _, err := s.db.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return webhooks.DeliveryRecord{}, false, err
		}
		return existing.toDomain(), true, nil
	}
	return record.toDomain(), true, nil
}

func (s *WebhookDeliveryStore) Complete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errStoreNotConfigured("webhook delivery store")
	}
	_, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", webhooks.DeliveryStatusProcessed).
		Set("last_error = ?", "").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func (s *WebhookDeliveryStore) Fail(ctx context.Context, id string, cause error) error {
	if s == nil || s.db == nil {
		return errStoreNotConfigured("webhook delivery store")
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", webhooks.DeliveryStatusFailed).
		Set("last_error = ?", message).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func (s *WebhookDeliveryStore) find(ctx context.Context, source string, deliveryID string) (*webhookDeliveryRecord, error) {
	record := &webhookDeliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.source = ?", source).
		Where("?TableAlias.delivery_id = ?", deliveryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf(
				"sqlstore: webhook delivery not found for source %q delivery %q",
				source,
				deliveryID,
			)
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ webhooks.DeliveryLedger = (*WebhookDeliveryStore)(nil)
