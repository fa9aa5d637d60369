package billing

import (
	"context"
	"testing"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/webhooks"
)

func handlersFixture(t *testing.T) (*memoryStores, *Handlers) {
	t.Helper()
	stores := newMemoryStores()
	seedAccount(t, stores, core.Account{
		ID:              "acc-1",
		PolarCustomerID: "cus-1",
		GithubUsername:  "octocat",
	})
	seedRepository(t, stores, core.Repository{
		ID:       "repo-1",
		GithubID: "4242",
		Name:     "widgets",
		FullName: "example/widgets",
		Active:   true,
	})
	seedTierCatalog(t, stores)

	credits := newTestCredits(stores)
	tiers := newTestTiers(stores)
	access := newTestAccess(stores, &fakeCollaboration{})
	return stores, NewHandlers(credits, tiers, access, stores)
}

func orderEvent(metadata map[string]any) webhooks.Event {
	return webhooks.Event{
		Type: "order.completed",
		Data: map[string]any{
			"id":          "ord-1",
			"customer_id": "cus-1",
			"metadata":    metadata,
		},
	}
}

func TestOrderRoutesCreditPurchase(t *testing.T) {
	stores, handlers := handlersFixture(t)

	err := handlers.handleOrderCompleted(context.Background(), orderEvent(map[string]any{
		"type":           "credits",
		"credits_amount": "500",
	}))
	if err != nil {
		t.Fatalf("order handler failed: %v", err)
	}

	account, _ := stores.AccountStore().Get(context.Background(), "acc-1")
	if account.CreditBalance != 500 {
		t.Fatalf("expected 500 credits, got %g", account.CreditBalance)
	}
}

func TestOrderRoutesRepositoryPurchase(t *testing.T) {
	stores, handlers := handlersFixture(t)
	ctx := context.Background()

	err := handlers.handleOrderCompleted(ctx, orderEvent(map[string]any{
		"repository_id": "repo-1",
	}))
	if err != nil {
		t.Fatalf("order handler failed: %v", err)
	}

	grant, err := stores.AccessStore().FindByAccountAndRepository(ctx, "acc-1", "repo-1")
	if err != nil {
		t.Fatalf("expected access grant: %v", err)
	}
	if grant.PolarOrderID != "ord-1" {
		t.Fatalf("unexpected grant %+v", grant)
	}
}

func TestOrderWithoutActionableMetadataIsAcknowledged(t *testing.T) {
	stores, handlers := handlersFixture(t)

	if err := handlers.handleOrderCompleted(context.Background(), orderEvent(nil)); err != nil {
		t.Fatalf("expected plain order to be acknowledged, got %v", err)
	}
	if len(stores.ledger) != 0 || len(stores.accessRows) != 0 {
		t.Fatal("expected no side effects for a plain order")
	}
}

func TestRefundWithoutPurchaseStillRevokesAccess(t *testing.T) {
	stores, handlers := handlersFixture(t)
	ctx := context.Background()

	err := handlers.handleOrderCompleted(ctx, orderEvent(map[string]any{
		"repository_id": "repo-1",
	}))
	if err != nil {
		t.Fatalf("order handler failed: %v", err)
	}

	err = handlers.handleRefundCreated(ctx, webhooks.Event{
		Type: "refund.created",
		Data: map[string]any{"id": "ref-1", "order_id": "ord-1"},
	})
	if err != nil {
		t.Fatalf("refund handler failed: %v", err)
	}

	grant, _ := stores.AccessStore().FindByAccountAndRepository(ctx, "acc-1", "repo-1")
	if grant.Status != core.AccessStatusRevoked {
		t.Fatalf("expected access revoked after refund, got %s", grant.Status)
	}
}

func TestSubscriptionCreatedGrantsProductAccess(t *testing.T) {
	stores, handlers := handlersFixture(t)
	stores.mu.Lock()
	repo := stores.repos["repo-1"]
	repo.PolarProductID = "prod-pro-m"
	stores.repos["repo-1"] = repo
	stores.mu.Unlock()
	ctx := context.Background()

	err := handlers.handleSubscriptionCreated(ctx, webhooks.Event{
		Type: "subscription.created",
		Data: subscriptionEvent(nil),
	})
	if err != nil {
		t.Fatalf("subscription handler failed: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected pro tier, got %s", account.CurrentTier)
	}

	grant, err := stores.AccessStore().FindByAccountAndRepository(ctx, "acc-1", "repo-1")
	if err != nil {
		t.Fatalf("expected subscription grant: %v", err)
	}
	if grant.PurchaseReference != "subscription_sub-1" {
		t.Fatalf("unexpected reference %q", grant.PurchaseReference)
	}
}
