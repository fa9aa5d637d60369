package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// Outcome is the acknowledgement the transport returns to the sender. The
// sender only needs to know whether to retry, so handler failures collapse
// to OutcomeInternalError and unknown event types are acknowledged.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeUnauthorized  Outcome = "unauthorized"
	OutcomeBadRequest    Outcome = "bad_request"
	OutcomeInternalError Outcome = "internal_server_error"
)

func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeOK:
		return http.StatusOK
	case OutcomeUnauthorized:
		return http.StatusUnauthorized
	case OutcomeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type Handler func(ctx context.Context, event Event) error

// Dispatcher verifies, parses, dedupes, and routes inbound deliveries.
// Verification failures never reach handlers and handler failures never
// escape as panics.
type Dispatcher struct {
	verifier  Verifier
	ledger    DeliveryLedger
	extractID DeliveryIDExtractor
	logger    glog.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

type DispatcherOption func(*Dispatcher)

func WithDeliveryLedger(ledger DeliveryLedger) DispatcherOption {
	return func(d *Dispatcher) {
		d.ledger = ledger
	}
}

func WithDeliveryIDExtractor(extract DeliveryIDExtractor) DispatcherOption {
	return func(d *Dispatcher) {
		if extract != nil {
			d.extractID = extract
		}
	}
}

func WithLogger(logger glog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(verifier Verifier, opts ...DispatcherOption) *Dispatcher {
	_, logger := glog.Resolve("webhooks", nil, nil)
	d := &Dispatcher{
		verifier:  verifier,
		extractID: DefaultDeliveryIDExtractor,
		logger:    logger,
		handlers:  map[string][]Handler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Register appends a handler for an event type. Multiple handlers per type
// run in registration order.
func (d *Dispatcher) Register(eventType string, handler Handler) {
	if d == nil || handler == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Dispatch runs the full inbound pipeline and always returns a terminal
// outcome, never a partial one.
func (d *Dispatcher) Dispatch(ctx context.Context, req InboundRequest) Outcome {
	if d == nil {
		return OutcomeInternalError
	}

	if d.verifier != nil {
		if err := d.verifier.Verify(ctx, req); err != nil {
			d.logger.Warn("webhook signature rejected", "source", req.Source, "error", err)
			return OutcomeUnauthorized
		}
	}

	event, err := d.parse(req)
	if err != nil {
		d.logger.Warn("webhook payload rejected", "source", req.Source, "error", err)
		return OutcomeBadRequest
	}

	var claim DeliveryRecord
	if d.ledger != nil {
		deliveryID, err := d.extractID(req)
		if err != nil {
			d.logger.Warn("webhook delivery id missing", "source", req.Source, "type", event.Type, "error", err)
			return OutcomeBadRequest
		}
		record, claimed, err := d.ledger.Claim(ctx, req.Source, deliveryID, req.Body)
		if err != nil {
			d.logger.Error("webhook ledger claim failed", "source", req.Source, "delivery_id", deliveryID, "error", err)
			return OutcomeInternalError
		}
		if !claimed {
			d.logger.Info("webhook delivery deduped", "source", req.Source, "delivery_id", deliveryID, "type", event.Type)
			return OutcomeOK
		}
		claim = record
	}

	d.mu.RLock()
	handlers := d.handlers[event.Type]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Info("webhook event has no handler", "source", req.Source, "type", event.Type)
		d.complete(ctx, claim)
		return OutcomeOK
	}

	for _, handler := range handlers {
		if err := d.invoke(ctx, handler, event); err != nil {
			d.logger.Error("webhook handler failed", "source", req.Source, "type", event.Type, "error", err)
			if d.ledger != nil && claim.ID != "" {
				if failErr := d.ledger.Fail(ctx, claim.ID, err); failErr != nil {
					d.logger.Error("webhook ledger fail mark failed", "delivery_id", claim.DeliveryID, "error", failErr)
				}
			}
			return OutcomeInternalError
		}
	}

	d.complete(ctx, claim)
	return OutcomeOK
}

func (d *Dispatcher) parse(req InboundRequest) (Event, error) {
	if strings.TrimSpace(req.Source) == SourceGitHub {
		return ParseGitHubEvent(req.Header(HeaderGitHubEvent), req.Body)
	}
	event, err := ParseEvent(req.Body)
	if err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("webhooks: event type is required")
	}
	return event, nil
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("webhooks: handler panic: %v", recovered)
		}
	}()
	return handler(ctx, event)
}

func (d *Dispatcher) complete(ctx context.Context, claim DeliveryRecord) {
	if d.ledger == nil || claim.ID == "" {
		return
	}
	if err := d.ledger.Complete(ctx, claim.ID); err != nil {
		d.logger.Error("webhook ledger complete failed", "delivery_id", claim.DeliveryID, "error", err)
	}
}
