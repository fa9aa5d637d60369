package webhooks

import (
	"context"
	"fmt"
	"time"
)

const (
	DeliveryStatusProcessing = "processing"
	DeliveryStatusProcessed  = "processed"
	DeliveryStatusFailed     = "failed"
)

type DeliveryRecord struct {
	ID         string
	Source     string
	DeliveryID string
	Status     string
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeliveryLedger guards against replayed deliveries. Claim returns false
// when the (source, delivery id) pair was already claimed; the dispatcher
// then acknowledges without invoking handlers.
type DeliveryLedger interface {
	Claim(ctx context.Context, source string, deliveryID string, payload []byte) (DeliveryRecord, bool, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string, cause error) error
}

type DeliveryIDExtractor func(req InboundRequest) (string, error)

func DefaultDeliveryIDExtractor(req InboundRequest) (string, error) {
	if value := req.Header(HeaderWebhookID); value != "" {
		return value, nil
	}
	if value := req.Header(HeaderGitHubDelivery); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("webhooks: delivery id is required for dedupe")
}
