package billing

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-billing/core"
)

func seedTierCatalog(t *testing.T, stores *memoryStores) {
	t.Helper()
	ctx := context.Background()
	definitions := []core.TierDefinition{
		{
			Name:              core.TierFree,
			ProjectsLimit:     1,
			TeamMembersLimit:  1,
			StorageLimitBytes: 100 * megabyte,
			APICallsLimit:     100,
			Features:          map[string]bool{"api_access": false},
			Active:            true,
		},
		{
			Name:                  core.TierStarter,
			PolarMonthlyProductID: "prod-starter-m",
			PolarYearlyProductID:  "prod-starter-y",
			ProjectsLimit:         5,
			TeamMembersLimit:      3,
			StorageLimitBytes:     1024 * megabyte,
			APICallsLimit:         10000,
			Features:              map[string]bool{"api_access": true},
			Active:                true,
		},
		{
			Name:                  core.TierPro,
			PolarMonthlyProductID: "prod-pro-m",
			PolarYearlyProductID:  "prod-pro-y",
			ProjectsLimit:         50,
			TeamMembersLimit:      20,
			StorageLimitBytes:     10240 * megabyte,
			APICallsLimit:         100000,
			Features:              map[string]bool{"api_access": true, "priority_support": true},
			Active:                true,
		},
	}
	for _, definition := range definitions {
		if _, err := stores.TierDefinitionStore().Save(ctx, definition); err != nil {
			t.Fatalf("seed tier %s: %v", definition.Name, err)
		}
	}
}

func newTestTiers(stores *memoryStores, opts ...TiersOption) *Tiers {
	opts = append([]TiersOption{WithTiersClock(testClock())}, opts...)
	return NewTiers(stores, core.DefaultConfig(), opts...)
}

func subscriptionEvent(overrides map[string]any) map[string]any {
	data := map[string]any{
		"id":                   "sub-1",
		"customer_id":          "cus-1",
		"product_id":           "prod-pro-m",
		"status":               core.SubscriptionStatusActive,
		"amount":               2900.0,
		"currency":             "USD",
		"recurring_interval":   "month",
		"current_period_start": "2026-03-01T00:00:00Z",
		"current_period_end":   "2026-04-01T00:00:00Z",
	}
	for key, value := range overrides {
		data[key] = value
	}
	return data
}

func TestHandleCreatedMovesAccountToTier(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1", CurrentTier: core.TierFree})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected tier pro, got %s", account.CurrentTier)
	}

	subscription, err := stores.SubscriptionStore().FindByPolarID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("subscription not stored: %v", err)
	}
	if subscription.Amount != 29 {
		t.Fatalf("expected amount converted from cents to 29, got %g", subscription.Amount)
	}
	if subscription.BillingInterval != core.BillingIntervalMonthly {
		t.Fatalf("expected monthly interval, got %s", subscription.BillingInterval)
	}

	quota, err := stores.QuotaStore().GetByAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("quota not stored: %v", err)
	}
	if quota.Tier != core.TierPro || quota.Limits[core.QuotaResourceProjects] != 50 {
		t.Fatalf("expected pro quota limits, got %+v", quota)
	}
}

func TestHandleCreatedReplayFoldsIntoUpdate(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("first created: %v", err)
	}
	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("replayed created: %v", err)
	}
	if len(stores.subs) != 1 {
		t.Fatalf("expected a single subscription row, got %d", len(stores.subs))
	}
}

func TestHandleCreatedSkipsUnknownCustomer(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	tiers := newTestTiers(stores)

	if err := tiers.HandleCreated(context.Background(), subscriptionEvent(nil)); err != nil {
		t.Fatalf("expected unknown customer to be skipped, got %v", err)
	}
	if len(stores.subs) != 0 {
		t.Fatal("expected no subscription for unknown customer")
	}
}

func TestHandleCreatedFallsBackForUnknownProduct(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	event := subscriptionEvent(map[string]any{"product_id": "prod-unlisted"})
	if err := tiers.HandleCreated(ctx, event); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierStarter {
		t.Fatalf("expected fallback tier starter, got %s", account.CurrentTier)
	}
}

func TestHandleUpdatedForUnknownSubscriptionCreates(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleUpdated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle updated: %v", err)
	}
	if _, err := stores.SubscriptionStore().FindByPolarID(ctx, "sub-1"); err != nil {
		t.Fatalf("expected out-of-order update to create the subscription: %v", err)
	}
}

func TestHandleUpdatedUpgradeResetsUsage(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	created := subscriptionEvent(map[string]any{"product_id": "prod-starter-m"})
	if err := tiers.HandleCreated(ctx, created); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	quota, _ := stores.QuotaStore().GetByAccount(ctx, "acc-1")
	quota.Used = map[string]int64{core.QuotaResourceProjects: 4}
	if _, err := stores.QuotaStore().Save(ctx, quota); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	upgraded := subscriptionEvent(map[string]any{"product_id": "prod-pro-m"})
	if err := tiers.HandleUpdated(ctx, upgraded); err != nil {
		t.Fatalf("handle updated: %v", err)
	}

	quota, _ = stores.QuotaStore().GetByAccount(ctx, "acc-1")
	if quota.Tier != core.TierPro {
		t.Fatalf("expected pro quota, got %s", quota.Tier)
	}
	if len(quota.Used) != 0 {
		t.Fatalf("expected usage counters reset on upgrade, got %v", quota.Used)
	}
}

func TestHandleUpdatedDowngradeKeepsUsage(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	quota, _ := stores.QuotaStore().GetByAccount(ctx, "acc-1")
	quota.Used = map[string]int64{core.QuotaResourceProjects: 12}
	if _, err := stores.QuotaStore().Save(ctx, quota); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	downgraded := subscriptionEvent(map[string]any{"product_id": "prod-starter-m"})
	if err := tiers.HandleUpdated(ctx, downgraded); err != nil {
		t.Fatalf("handle updated: %v", err)
	}

	quota, _ = stores.QuotaStore().GetByAccount(ctx, "acc-1")
	if quota.Tier != core.TierStarter {
		t.Fatalf("expected starter quota, got %s", quota.Tier)
	}
	if quota.Used[core.QuotaResourceProjects] != 12 {
		t.Fatalf("expected usage preserved on downgrade, got %v", quota.Used)
	}
	if quota.Limits[core.QuotaResourceProjects] != 5 {
		t.Fatalf("expected starter limits applied, got %v", quota.Limits)
	}
}

func TestHandleCancelledGracePeriodKeepsTier(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	periodEnd := time.Now().UTC().Add(20 * 24 * time.Hour).Format(time.RFC3339)
	created := subscriptionEvent(map[string]any{"current_period_end": periodEnd})
	if err := tiers.HandleCreated(ctx, created); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	cancelled := subscriptionEvent(map[string]any{
		"status":               core.SubscriptionStatusCancelled,
		"cancel_at_period_end": true,
		"current_period_end":   periodEnd,
	})
	if err := tiers.HandleCancelled(ctx, cancelled); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected tier kept through grace period, got %s", account.CurrentTier)
	}

	subscription, _ := stores.SubscriptionStore().FindByPolarID(ctx, "sub-1")
	if subscription.Status != core.SubscriptionStatusCancelled || subscription.CancelledAt == nil {
		t.Fatalf("expected cancelled subscription with timestamp, got %+v", subscription)
	}
}

func TestHandleCancelledDowngradesAfterGraceElapses(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	tiers := NewTiers(stores, core.DefaultConfig(), WithTiersClock(func() time.Time { return now }))
	ctx := context.Background()

	periodEnd := now.Add(20 * 24 * time.Hour)
	created := subscriptionEvent(map[string]any{"current_period_end": periodEnd.Format(time.RFC3339)})
	if err := tiers.HandleCreated(ctx, created); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	cancelled := subscriptionEvent(map[string]any{
		"status":               core.SubscriptionStatusCancelled,
		"cancel_at_period_end": true,
		"current_period_end":   periodEnd.Format(time.RFC3339),
	})
	if err := tiers.HandleCancelled(ctx, cancelled); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected tier kept while paid period is open, got %s", account.CurrentTier)
	}

	now = periodEnd.Add(time.Hour)
	if err := tiers.HandleUpdated(ctx, cancelled); err != nil {
		t.Fatalf("handle updated after period end: %v", err)
	}

	account, _ = stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierFree {
		t.Fatalf("expected floor tier once the paid period lapsed, got %s", account.CurrentTier)
	}

	quota, err := stores.QuotaStore().GetByAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("quota not stored: %v", err)
	}
	if quota.Tier != core.TierFree {
		t.Fatalf("expected free quota after downgrade, got %s", quota.Tier)
	}
}

func TestHandleCancelledImmediateDropsToFloor(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	cancelled := subscriptionEvent(map[string]any{
		"status":               core.SubscriptionStatusCancelled,
		"cancel_at_period_end": false,
	})
	if err := tiers.HandleCancelled(ctx, cancelled); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierFree {
		t.Fatalf("expected floor tier free, got %s", account.CurrentTier)
	}
}

func TestHandleCancelledUnknownSubscriptionSkips(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	tiers := newTestTiers(stores)

	if err := tiers.HandleCancelled(context.Background(), subscriptionEvent(nil)); err != nil {
		t.Fatalf("expected unknown subscription to be skipped, got %v", err)
	}
}

func TestHandleResumedRestoresTier(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle created: %v", err)
	}
	cancelled := subscriptionEvent(map[string]any{
		"status":               core.SubscriptionStatusCancelled,
		"cancel_at_period_end": false,
	})
	if err := tiers.HandleCancelled(ctx, cancelled); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	if err := tiers.HandleResumed(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle resumed: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected tier restored to pro, got %s", account.CurrentTier)
	}

	subscription, _ := stores.SubscriptionStore().FindByPolarID(ctx, "sub-1")
	if subscription.Status != core.SubscriptionStatusActive || subscription.CancelledAt != nil {
		t.Fatalf("expected active subscription with cleared cancellation, got %+v", subscription)
	}
}

func TestHandleUpdatedPastDueInGracePeriodKeepsTier(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	periodEnd := time.Now().UTC().Add(10 * 24 * time.Hour).Format(time.RFC3339)
	created := subscriptionEvent(map[string]any{"current_period_end": periodEnd})
	if err := tiers.HandleCreated(ctx, created); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	pastDue := subscriptionEvent(map[string]any{
		"status":               core.SubscriptionStatusPastDue,
		"cancel_at_period_end": true,
		"current_period_end":   periodEnd,
	})
	if err := tiers.HandleUpdated(ctx, pastDue); err != nil {
		t.Fatalf("handle updated: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierPro {
		t.Fatalf("expected tier kept while in grace period, got %s", account.CurrentTier)
	}
}

func TestHandleUpdatedUnpaidDropsToFloor(t *testing.T) {
	stores := newMemoryStores()
	seedTierCatalog(t, stores)
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	if err := tiers.HandleCreated(ctx, subscriptionEvent(nil)); err != nil {
		t.Fatalf("handle created: %v", err)
	}

	unpaid := subscriptionEvent(map[string]any{"status": core.SubscriptionStatusUnpaid})
	if err := tiers.HandleUpdated(ctx, unpaid); err != nil {
		t.Fatalf("handle updated: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.CurrentTier != core.TierFree {
		t.Fatalf("expected floor tier for unpaid subscription, got %s", account.CurrentTier)
	}
}

func TestHandleCustomerUpdatedSyncsEmail(t *testing.T) {
	stores := newMemoryStores()
	seedAccount(t, stores, core.Account{ID: "acc-1", PolarCustomerID: "cus-1", Email: "old@example.com"})
	tiers := newTestTiers(stores)
	ctx := context.Background()

	err := tiers.HandleCustomerUpdated(ctx, map[string]any{
		"id":    "cus-1",
		"email": "new@example.com",
	})
	if err != nil {
		t.Fatalf("handle customer updated: %v", err)
	}

	account, _ := stores.AccountStore().Get(ctx, "acc-1")
	if account.Email != "new@example.com" {
		t.Fatalf("expected email synced, got %s", account.Email)
	}
}
