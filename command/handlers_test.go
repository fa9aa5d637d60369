package command

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-billing/billing"
	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/webhooks"
	gocmd "github.com/goliatone/go-command"
)

type stubCreditService struct {
	consumeFn      func(ctx context.Context, req billing.ConsumeRequest) (core.LedgerEntry, error)
	addFn          func(ctx context.Context, req billing.AddRequest) (core.LedgerEntry, error)
	refundFn       func(ctx context.Context, req billing.RefundRequest) (core.LedgerEntry, error)
	grantWelcomeFn func(ctx context.Context, accountID string) (core.LedgerEntry, error)
}

func (s stubCreditService) Consume(ctx context.Context, req billing.ConsumeRequest) (core.LedgerEntry, error) {
	if s.consumeFn == nil {
		return core.LedgerEntry{}, nil
	}
	return s.consumeFn(ctx, req)
}

func (s stubCreditService) Add(ctx context.Context, req billing.AddRequest) (core.LedgerEntry, error) {
	if s.addFn == nil {
		return core.LedgerEntry{}, nil
	}
	return s.addFn(ctx, req)
}

func (s stubCreditService) Refund(ctx context.Context, req billing.RefundRequest) (core.LedgerEntry, error) {
	if s.refundFn == nil {
		return core.LedgerEntry{}, nil
	}
	return s.refundFn(ctx, req)
}

func (s stubCreditService) GrantWelcome(ctx context.Context, accountID string) (core.LedgerEntry, error) {
	if s.grantWelcomeFn == nil {
		return core.LedgerEntry{}, nil
	}
	return s.grantWelcomeFn(ctx, accountID)
}

type stubAccessService struct {
	grantFn  func(ctx context.Context, req billing.GrantRequest) (core.RepositoryAccess, error)
	revokeFn func(ctx context.Context, accountID string, repositoryID string, reason string) (core.RepositoryAccess, error)
}

func (s stubAccessService) Grant(ctx context.Context, req billing.GrantRequest) (core.RepositoryAccess, error) {
	if s.grantFn == nil {
		return core.RepositoryAccess{}, nil
	}
	return s.grantFn(ctx, req)
}

func (s stubAccessService) Revoke(ctx context.Context, accountID string, repositoryID string, reason string) (core.RepositoryAccess, error) {
	if s.revokeFn == nil {
		return core.RepositoryAccess{}, nil
	}
	return s.revokeFn(ctx, accountID, repositoryID, reason)
}

func TestConsumeCreditsCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.LedgerEntry{ID: "le_1", AccountID: "acct_1", Amount: -1, BalanceAfter: 49}
	called := false

	svc := stubCreditService{
		consumeFn: func(_ context.Context, req billing.ConsumeRequest) (core.LedgerEntry, error) {
			called = true
			if req.OperationType != "basic_api_call" {
				t.Fatalf("expected basic_api_call, got %q", req.OperationType)
			}
			return expected, nil
		},
	}

	cmd := NewConsumeCreditsCommand(svc)
	collector := gocmd.NewResult[core.LedgerEntry]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ConsumeCreditsMessage{Request: billing.ConsumeRequest{
		AccountID:     "acct_1",
		OperationType: "basic_api_call",
	}})
	if err != nil {
		t.Fatalf("execute consume: %v", err)
	}
	if !called {
		t.Fatalf("expected consume invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.BalanceAfter != expected.BalanceAfter {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestCreditCommands_DelegateToService(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		called := false
		svc := stubCreditService{
			addFn: func(_ context.Context, req billing.AddRequest) (core.LedgerEntry, error) {
				called = true
				if req.PolarOrderID != "ord_1" || req.Amount != 100 {
					t.Fatalf("unexpected add payload: %#v", req)
				}
				return core.LedgerEntry{ID: "le_add"}, nil
			},
		}
		cmd := NewAddCreditsCommand(svc)
		if err := cmd.Execute(context.Background(), AddCreditsMessage{Request: billing.AddRequest{
			AccountID:    "acct_1",
			Amount:       100,
			PolarOrderID: "ord_1",
		}}); err != nil {
			t.Fatalf("execute add: %v", err)
		}
		if !called {
			t.Fatalf("expected add invocation")
		}
	})

	t.Run("refund", func(t *testing.T) {
		called := false
		svc := stubCreditService{
			refundFn: func(_ context.Context, req billing.RefundRequest) (core.LedgerEntry, error) {
				called = true
				if req.PolarOrderID != "ord_1" || req.Reason != "chargeback" {
					t.Fatalf("unexpected refund payload: %#v", req)
				}
				return core.LedgerEntry{ID: "le_refund"}, nil
			},
		}
		cmd := NewRefundCreditsCommand(svc)
		if err := cmd.Execute(context.Background(), RefundCreditsMessage{Request: billing.RefundRequest{
			PolarOrderID: "ord_1",
			Reason:       "chargeback",
		}}); err != nil {
			t.Fatalf("execute refund: %v", err)
		}
		if !called {
			t.Fatalf("expected refund invocation")
		}
	})

	t.Run("grant welcome", func(t *testing.T) {
		called := false
		svc := stubCreditService{
			grantWelcomeFn: func(_ context.Context, accountID string) (core.LedgerEntry, error) {
				called = true
				if accountID != "acct_1" {
					t.Fatalf("unexpected account id %q", accountID)
				}
				return core.LedgerEntry{ID: "le_welcome"}, nil
			},
		}
		cmd := NewGrantWelcomeCreditsCommand(svc)
		if err := cmd.Execute(context.Background(), GrantWelcomeCreditsMessage{AccountID: "acct_1"}); err != nil {
			t.Fatalf("execute grant welcome: %v", err)
		}
		if !called {
			t.Fatalf("expected grant welcome invocation")
		}
	})
}

func TestAccessCommands_DelegateToService(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC()

	t.Run("grant", func(t *testing.T) {
		called := false
		svc := stubAccessService{
			grantFn: func(_ context.Context, req billing.GrantRequest) (core.RepositoryAccess, error) {
				called = true
				if req.RepositoryID != "repo_1" || req.AccessSource != core.AccessSourceIndividual {
					t.Fatalf("unexpected grant payload: %#v", req)
				}
				return core.RepositoryAccess{ID: "rac_1", Status: core.AccessStatusPending}, nil
			},
		}
		cmd := NewGrantAccessCommand(svc)
		collector := gocmd.NewResult[core.RepositoryAccess]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := cmd.Execute(ctx, GrantAccessMessage{Request: billing.GrantRequest{
			AccountID:    "acct_1",
			RepositoryID: "repo_1",
			ExpiresAt:    &expires,
			AccessSource: core.AccessSourceIndividual,
		}})
		if err != nil {
			t.Fatalf("execute grant: %v", err)
		}
		if !called {
			t.Fatalf("expected grant invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected grant result")
		}
		if stored.Status != core.AccessStatusPending {
			t.Fatalf("unexpected grant result: %#v", stored)
		}
	})

	t.Run("revoke", func(t *testing.T) {
		called := false
		svc := stubAccessService{
			revokeFn: func(_ context.Context, accountID string, repositoryID string, reason string) (core.RepositoryAccess, error) {
				called = true
				if accountID != "acct_1" || repositoryID != "repo_1" || reason != "refund" {
					t.Fatalf("unexpected revoke payload: %q %q %q", accountID, repositoryID, reason)
				}
				return core.RepositoryAccess{ID: "rac_1", Status: core.AccessStatusRevoked}, nil
			},
		}
		cmd := NewRevokeAccessCommand(svc)
		if err := cmd.Execute(context.Background(), RevokeAccessMessage{
			AccountID:    "acct_1",
			RepositoryID: "repo_1",
			Reason:       "refund",
		}); err != nil {
			t.Fatalf("execute revoke: %v", err)
		}
		if !called {
			t.Fatalf("expected revoke invocation")
		}
	})
}

func TestMessages_ValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		msg  interface{ Validate() error }
	}{
		{"consume missing account", ConsumeCreditsMessage{Request: billing.ConsumeRequest{OperationType: "basic_api_call"}}},
		{"consume missing operation", ConsumeCreditsMessage{Request: billing.ConsumeRequest{AccountID: "acct_1"}}},
		{"add non positive amount", AddCreditsMessage{Request: billing.AddRequest{AccountID: "acct_1"}}},
		{"refund missing references", RefundCreditsMessage{}},
		{"welcome missing account", GrantWelcomeCreditsMessage{}},
		{"grant missing repository", GrantAccessMessage{Request: billing.GrantRequest{AccountID: "acct_1"}}},
		{"revoke missing repository", RevokeAccessMessage{AccountID: "acct_1"}},
		{"webhook missing source", ProcessWebhookMessage{Body: []byte(`{}`)}},
		{"webhook missing body", ProcessWebhookMessage{Source: "polar"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.msg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMessages_ValidateAcceptsCompletePayloads(t *testing.T) {
	valid := []interface{ Validate() error }{
		ConsumeCreditsMessage{Request: billing.ConsumeRequest{AccountID: "acct_1", OperationType: "basic_api_call"}},
		AddCreditsMessage{Request: billing.AddRequest{AccountID: "acct_1", Amount: 50}},
		RefundCreditsMessage{Request: billing.RefundRequest{PolarTransactionID: "txn_1"}},
		GrantWelcomeCreditsMessage{AccountID: "acct_1"},
		GrantAccessMessage{Request: billing.GrantRequest{AccountID: "acct_1", RepositoryID: "repo_1"}},
		RevokeAccessMessage{AccountID: "acct_1", RepositoryID: "repo_1"},
		ProcessWebhookMessage{Source: "polar", Body: []byte(`{"type":"order.completed"}`)},
	}
	for _, msg := range valid {
		if err := msg.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
	}
}

type stubWebhookDispatcher struct {
	outcome  webhooks.Outcome
	requests []webhooks.InboundRequest
}

func (s *stubWebhookDispatcher) Dispatch(_ context.Context, req webhooks.InboundRequest) webhooks.Outcome {
	s.requests = append(s.requests, req)
	return s.outcome
}

func TestProcessWebhookCommand_RoutesBySource(t *testing.T) {
	polarStub := &stubWebhookDispatcher{outcome: webhooks.OutcomeOK}
	githubStub := &stubWebhookDispatcher{outcome: webhooks.OutcomeOK}
	cmd := NewProcessWebhookCommand(map[string]WebhookDispatching{
		webhooks.SourcePolar:  polarStub,
		webhooks.SourceGitHub: githubStub,
	})

	msg := ProcessWebhookMessage{
		Source:  webhooks.SourceGitHub,
		Body:    []byte(`{"action":"added"}`),
		Headers: map[string]string{"X-GitHub-Event": "member"},
	}

	collector := gocmd.NewResult[webhooks.Outcome]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(githubStub.requests) != 1 || len(polarStub.requests) != 0 {
		t.Fatalf("expected the github dispatcher to receive the delivery")
	}
	if githubStub.requests[0].Headers["X-GitHub-Event"] != "member" {
		t.Fatalf("headers must pass through, got %v", githubStub.requests[0].Headers)
	}
	outcome, ok := collector.Load()
	if !ok || outcome != webhooks.OutcomeOK {
		t.Fatalf("expected stored outcome ok, got %v %v", outcome, ok)
	}
}

func TestProcessWebhookCommand_FailureModes(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		cmd := NewProcessWebhookCommand(map[string]WebhookDispatching{
			webhooks.SourcePolar: &stubWebhookDispatcher{outcome: webhooks.OutcomeOK},
		})
		err := cmd.Execute(context.Background(), ProcessWebhookMessage{Source: "shopify", Body: []byte(`{}`)})
		if err == nil {
			t.Fatal("expected unknown source error")
		}
	})

	t.Run("internal outcome surfaces as error", func(t *testing.T) {
		stub := &stubWebhookDispatcher{outcome: webhooks.OutcomeInternalError}
		cmd := NewProcessWebhookCommand(map[string]WebhookDispatching{webhooks.SourcePolar: stub})

		collector := gocmd.NewResult[webhooks.Outcome]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := cmd.Execute(ctx, ProcessWebhookMessage{Source: webhooks.SourcePolar, Body: []byte(`{}`)})
		if err == nil {
			t.Fatal("expected reconciliation failure error")
		}
		outcome, ok := collector.Load()
		if !ok || outcome != webhooks.OutcomeInternalError {
			t.Fatalf("outcome must still be stored, got %v %v", outcome, ok)
		}
	})

	t.Run("no dispatchers configured", func(t *testing.T) {
		cmd := NewProcessWebhookCommand(nil)
		if err := cmd.Execute(context.Background(), ProcessWebhookMessage{Source: webhooks.SourcePolar, Body: []byte(`{}`)}); err == nil {
			t.Fatal("expected dependency error")
		}
	})
}
