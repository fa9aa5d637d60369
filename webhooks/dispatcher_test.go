package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

type memoryLedger struct {
	mu        sync.Mutex
	records   map[string]DeliveryRecord
	completed []string
	failed    []string
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: map[string]DeliveryRecord{}}
}

func (l *memoryLedger) Claim(_ context.Context, source string, deliveryID string, _ []byte) (DeliveryRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := source + ":" + deliveryID
	if existing, ok := l.records[key]; ok {
		return existing, false, nil
	}
	record := DeliveryRecord{
		ID:         fmt.Sprintf("claim-%d", len(l.records)+1),
		Source:     source,
		DeliveryID: deliveryID,
		Status:     DeliveryStatusProcessing,
		Attempts:   1,
	}
	l.records[key] = record
	return record, true, nil
}

func (l *memoryLedger) Complete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, id)
	return nil
}

func (l *memoryLedger) Fail(_ context.Context, id string, _ error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, id)
	return nil
}

func polarRequest(secret string, body []byte, extra map[string]string) InboundRequest {
	headers := map[string]string{
		HeaderPolarSignature: signHex(secret, body),
	}
	for key, value := range extra {
		headers[key] = value
	}
	return InboundRequest{Source: SourcePolar, Body: body, Headers: headers}
}

func TestDispatchRejectsInvalidSignature(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))
	dispatcher.Register("order.created", func(context.Context, Event) error {
		t.Fatal("handler should not run on rejected delivery")
		return nil
	})

	req := InboundRequest{
		Source:  SourcePolar,
		Body:    []byte(`{"type":"order.created"}`),
		Headers: map[string]string{HeaderPolarSignature: signHex("wrong_secret", []byte(`{"type":"order.created"}`))},
	}
	if outcome := dispatcher.Dispatch(context.Background(), req); outcome != OutcomeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", outcome)
	}
}

func TestDispatchRejectsMalformedPayload(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))
	body := []byte(`{"type":`)

	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", body, nil)); outcome != OutcomeBadRequest {
		t.Fatalf("expected bad_request, got %s", outcome)
	}
}

func TestDispatchRequiresEventType(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))
	body := []byte(`{"data":{"id":"ord_1"}}`)

	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", body, nil)); outcome != OutcomeBadRequest {
		t.Fatalf("expected bad_request for missing type, got %s", outcome)
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))

	var received Event
	dispatcher.Register("order.created", func(_ context.Context, event Event) error {
		received = event
		return nil
	})

	body := []byte(`{"type":"order.created","data":{"id":"ord_1","amount":500}}`)
	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", body, nil)); outcome != OutcomeOK {
		t.Fatalf("expected ok, got %s", outcome)
	}
	if received.Type != "order.created" {
		t.Fatalf("expected routed event, got %q", received.Type)
	}
	if received.Data["id"] != "ord_1" {
		t.Fatalf("expected event data to carry payload, got %v", received.Data)
	}
}

func TestDispatchAcknowledgesUnknownEventType(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))
	body := []byte(`{"type":"customer.state_changed","data":{}}`)

	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", body, nil)); outcome != OutcomeOK {
		t.Fatalf("expected unknown type to be acknowledged, got %s", outcome)
	}
}

func TestDispatchContainsHandlerErrorsAndPanics(t *testing.T) {
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"))
	dispatcher.Register("order.created", func(context.Context, Event) error {
		return errors.New("boom")
	})
	dispatcher.Register("order.refunded", func(context.Context, Event) error {
		panic("handler exploded")
	})

	created := []byte(`{"type":"order.created","data":{}}`)
	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", created, nil)); outcome != OutcomeInternalError {
		t.Fatalf("expected internal error on handler failure, got %s", outcome)
	}

	refunded := []byte(`{"type":"order.refunded","data":{}}`)
	if outcome := dispatcher.Dispatch(context.Background(), polarRequest("whsec_test", refunded, nil)); outcome != OutcomeInternalError {
		t.Fatalf("expected panic to be contained, got %s", outcome)
	}
}

func TestDispatchDedupesByDeliveryID(t *testing.T) {
	ledger := newMemoryLedger()
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"), WithDeliveryLedger(ledger))

	var calls int
	dispatcher.Register("order.created", func(context.Context, Event) error {
		calls++
		return nil
	})

	body := []byte(`{"type":"order.created","data":{}}`)
	req := polarRequest("whsec_test", body, map[string]string{HeaderWebhookID: "wh_1"})

	if outcome := dispatcher.Dispatch(context.Background(), req); outcome != OutcomeOK {
		t.Fatalf("expected first delivery to succeed, got %s", outcome)
	}
	if outcome := dispatcher.Dispatch(context.Background(), req); outcome != OutcomeOK {
		t.Fatalf("expected replay to be acknowledged, got %s", outcome)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if len(ledger.completed) != 1 {
		t.Fatalf("expected one completed claim, got %d", len(ledger.completed))
	}
}

func TestDispatchMarksFailedClaims(t *testing.T) {
	ledger := newMemoryLedger()
	dispatcher := NewDispatcher(NewPolarVerifier("whsec_test"), WithDeliveryLedger(ledger))
	dispatcher.Register("order.created", func(context.Context, Event) error {
		return errors.New("boom")
	})

	body := []byte(`{"type":"order.created","data":{}}`)
	req := polarRequest("whsec_test", body, map[string]string{HeaderWebhookID: "wh_2"})

	if outcome := dispatcher.Dispatch(context.Background(), req); outcome != OutcomeInternalError {
		t.Fatalf("expected internal error, got %s", outcome)
	}
	if len(ledger.failed) != 1 {
		t.Fatalf("expected claim to be marked failed, got %d", len(ledger.failed))
	}
}

func TestDispatchParsesGitHubEvents(t *testing.T) {
	dispatcher := NewDispatcher(NewGitHubVerifier("gh_secret"))

	var received Event
	dispatcher.Register("member.added", func(_ context.Context, event Event) error {
		received = event
		return nil
	})

	body := []byte(`{"action":"added","member":{"login":"octocat"},"repository":{"id":42}}`)
	mac := signHex("gh_secret", body)
	req := InboundRequest{
		Source: SourceGitHub,
		Body:   body,
		Headers: map[string]string{
			HeaderGitHubSignature: "sha256=" + mac,
			HeaderGitHubEvent:     "member",
		},
	}
	if outcome := dispatcher.Dispatch(context.Background(), req); outcome != OutcomeOK {
		t.Fatalf("expected github delivery to succeed, got %s", outcome)
	}
	if received.Type != "member.added" {
		t.Fatalf("expected dotted event type, got %q", received.Type)
	}
}

func TestOutcomeStatusCodes(t *testing.T) {
	cases := map[Outcome]int{
		OutcomeOK:            http.StatusOK,
		OutcomeUnauthorized:  http.StatusUnauthorized,
		OutcomeBadRequest:    http.StatusBadRequest,
		OutcomeInternalError: http.StatusInternalServerError,
		Outcome("unknown"):   http.StatusInternalServerError,
	}
	for outcome, want := range cases {
		if got := outcome.StatusCode(); got != want {
			t.Fatalf("outcome %s: expected status %d, got %d", outcome, want, got)
		}
	}
}
