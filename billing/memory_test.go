package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-billing/core"
)

// memoryStores implements core.StoreProvider over maps for service tests.
type memoryStores struct {
	mu         sync.Mutex
	accounts   map[string]core.Account
	ledger     []core.LedgerEntry
	usage      []core.UsageRecord
	alerts     []core.Alert
	packages   map[string]core.CreditPackage
	subs       map[string]core.Subscription
	tiers      map[string]core.TierDefinition
	quotas     map[string]core.UsageQuota
	repos      map[string]core.Repository
	repoPkgs   map[string]core.RepositoryPackage
	accessRows map[string]core.RepositoryAccess
}

func newMemoryStores() *memoryStores {
	return &memoryStores{
		accounts:   map[string]core.Account{},
		packages:   map[string]core.CreditPackage{},
		subs:       map[string]core.Subscription{},
		tiers:      map[string]core.TierDefinition{},
		quotas:     map[string]core.UsageQuota{},
		repos:      map[string]core.Repository{},
		repoPkgs:   map[string]core.RepositoryPackage{},
		accessRows: map[string]core.RepositoryAccess{},
	}
}

func accessKey(accountID, repositoryID string) string {
	return accountID + "|" + repositoryID
}

func (m *memoryStores) AccountStore() core.AccountStore                     { return memAccounts{m} }
func (m *memoryStores) LedgerStore() core.LedgerStore                       { return memLedger{m} }
func (m *memoryStores) UsageRecordStore() core.UsageRecordStore             { return memUsage{m} }
func (m *memoryStores) AlertStore() core.AlertStore                         { return memAlerts{m} }
func (m *memoryStores) CreditPackageStore() core.CreditPackageStore         { return memPackages{m} }
func (m *memoryStores) SubscriptionStore() core.SubscriptionStore           { return memSubs{m} }
func (m *memoryStores) TierDefinitionStore() core.TierDefinitionStore       { return memTiers{m} }
func (m *memoryStores) QuotaStore() core.QuotaStore                         { return memQuotas{m} }
func (m *memoryStores) RepositoryStore() core.RepositoryStore               { return memRepos{m} }
func (m *memoryStores) RepositoryPackageStore() core.RepositoryPackageStore { return memRepoPkgs{m} }
func (m *memoryStores) AccessStore() core.AccessStore                       { return memAccess{m} }
func (m *memoryStores) TxRunner() core.TxRunner                             { return memTx{m} }

type memTx struct{ m *memoryStores }

func (t memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memAccounts struct{ m *memoryStores }

func (s memAccounts) Get(_ context.Context, id string) (core.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	account, ok := s.m.accounts[id]
	if !ok {
		return core.Account{}, core.NewNotFoundError("account not found")
	}
	return account, nil
}

func (s memAccounts) FindByCustomerID(_ context.Context, customerID string) (core.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, account := range s.m.accounts {
		if account.PolarCustomerID == customerID && customerID != "" {
			return account, nil
		}
	}
	return core.Account{}, core.NewNotFoundError("account not found")
}

func (s memAccounts) FindByGithubUsername(_ context.Context, username string) (core.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, account := range s.m.accounts {
		if account.GithubUsername == username && username != "" {
			return account, nil
		}
	}
	return core.Account{}, core.NewNotFoundError("account not found")
}

func (s memAccounts) Create(_ context.Context, account core.Account) (core.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.accounts[account.ID] = account
	return account, nil
}

func (s memAccounts) Update(_ context.Context, account core.Account) (core.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.accounts[account.ID]; !ok {
		return core.Account{}, core.NewNotFoundError("account not found")
	}
	s.m.accounts[account.ID] = account
	return account, nil
}

type memLedger struct{ m *memoryStores }

func (s memLedger) Append(_ context.Context, entry core.LedgerEntry) (core.LedgerEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.m.ledger = append(s.m.ledger, entry)
	return entry, nil
}

func (s memLedger) Get(_ context.Context, id string) (core.LedgerEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, entry := range s.m.ledger {
		if entry.ID == id {
			return entry, nil
		}
	}
	return core.LedgerEntry{}, core.NewNotFoundError("ledger entry not found")
}

func (s memLedger) FindPurchaseByOrderID(_ context.Context, orderID string) (core.LedgerEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, entry := range s.m.ledger {
		if entry.Type == core.LedgerEntryPurchase && entry.PolarOrderID == orderID && orderID != "" {
			return entry, nil
		}
	}
	return core.LedgerEntry{}, core.NewNotFoundError("purchase not found")
}

func (s memLedger) FindByTransactionID(_ context.Context, transactionID string) (core.LedgerEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, entry := range s.m.ledger {
		if entry.PolarTransactionID == transactionID && transactionID != "" {
			return entry, nil
		}
	}
	return core.LedgerEntry{}, core.NewNotFoundError("entry not found")
}

func (s memLedger) MarkRefunded(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i, entry := range s.m.ledger {
		if entry.ID == id {
			s.m.ledger[i].Status = core.LedgerStatusRefunded
			return nil
		}
	}
	return core.NewNotFoundError("ledger entry not found")
}

func (s memLedger) ListByAccount(_ context.Context, accountID string) ([]core.LedgerEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var entries []core.LedgerEntry
	for _, entry := range s.m.ledger {
		if entry.AccountID == accountID {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

type memUsage struct{ m *memoryStores }

func (s memUsage) Create(_ context.Context, record core.UsageRecord) (core.UsageRecord, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.usage = append(s.m.usage, record)
	return record, nil
}

func (s memUsage) ListByAccount(_ context.Context, accountID string, limit int) ([]core.UsageRecord, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var records []core.UsageRecord
	for _, record := range s.m.usage {
		if record.AccountID == accountID {
			records = append(records, record)
		}
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

type memAlerts struct{ m *memoryStores }

func (s memAlerts) Create(_ context.Context, alert core.Alert) (core.Alert, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.alerts = append(s.m.alerts, alert)
	return alert, nil
}

func (s memAlerts) HasRecent(_ context.Context, accountID string, alertType string, since time.Time) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, alert := range s.m.alerts {
		if alert.AccountID == accountID && alert.Type == alertType && alert.TriggeredAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s memAlerts) DismissActive(_ context.Context, accountID string, alertTypes []string, at time.Time) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	dismissed := 0
	for i, alert := range s.m.alerts {
		if alert.AccountID != accountID || alert.Status != core.AlertStatusActive {
			continue
		}
		for _, alertType := range alertTypes {
			if alert.Type == alertType {
				s.m.alerts[i].Status = core.AlertStatusDismissed
				s.m.alerts[i].DismissedAt = &at
				dismissed++
				break
			}
		}
	}
	return dismissed, nil
}

type memPackages struct{ m *memoryStores }

func (s memPackages) Get(_ context.Context, id string) (core.CreditPackage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pkg, ok := s.m.packages[id]
	if !ok {
		return core.CreditPackage{}, core.NewNotFoundError("credit package not found")
	}
	return pkg, nil
}

func (s memPackages) List(_ context.Context) ([]core.CreditPackage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var packages []core.CreditPackage
	for _, pkg := range s.m.packages {
		packages = append(packages, pkg)
	}
	return packages, nil
}

type memSubs struct{ m *memoryStores }

func (s memSubs) FindByPolarID(_ context.Context, polarID string) (core.Subscription, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, sub := range s.m.subs {
		if sub.PolarSubscriptionID == polarID && polarID != "" {
			return sub, nil
		}
	}
	return core.Subscription{}, core.NewNotFoundError("subscription not found")
}

func (s memSubs) Create(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.subs[sub.ID] = sub
	return sub, nil
}

func (s memSubs) Update(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.subs[sub.ID]; !ok {
		return core.Subscription{}, core.NewNotFoundError("subscription not found")
	}
	s.m.subs[sub.ID] = sub
	return sub, nil
}

type memTiers struct{ m *memoryStores }

func (s memTiers) Get(_ context.Context, name string) (core.TierDefinition, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	tier, ok := s.m.tiers[name]
	if !ok {
		return core.TierDefinition{}, core.NewNotFoundError("tier definition not found")
	}
	return tier, nil
}

func (s memTiers) FindByProductID(_ context.Context, productID string) (core.TierDefinition, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, tier := range s.m.tiers {
		if tier.MatchesProduct(productID) {
			return tier, nil
		}
	}
	return core.TierDefinition{}, core.NewNotFoundError("tier definition not found")
}

func (s memTiers) List(_ context.Context) ([]core.TierDefinition, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var tiers []core.TierDefinition
	for _, tier := range s.m.tiers {
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func (s memTiers) Save(_ context.Context, tier core.TierDefinition) (core.TierDefinition, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.tiers[tier.Name] = tier
	return tier, nil
}

type memQuotas struct{ m *memoryStores }

func (s memQuotas) GetByAccount(_ context.Context, accountID string) (core.UsageQuota, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	quota, ok := s.m.quotas[accountID]
	if !ok {
		return core.UsageQuota{}, core.NewNotFoundError("quota not found")
	}
	return quota, nil
}

func (s memQuotas) Save(_ context.Context, quota core.UsageQuota) (core.UsageQuota, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.quotas[quota.AccountID] = quota
	return quota, nil
}

type memRepos struct{ m *memoryStores }

func (s memRepos) Get(_ context.Context, id string) (core.Repository, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	repo, ok := s.m.repos[id]
	if !ok {
		return core.Repository{}, core.NewNotFoundError("repository not found")
	}
	return repo, nil
}

func (s memRepos) FindByGithubID(_ context.Context, githubID string) (core.Repository, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, repo := range s.m.repos {
		if repo.GithubID == githubID && githubID != "" {
			return repo, nil
		}
	}
	return core.Repository{}, core.NewNotFoundError("repository not found")
}

func (s memRepos) ListByPackage(_ context.Context, packageID string) ([]core.Repository, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pkg, ok := s.m.repoPkgs[packageID]
	if !ok {
		return nil, nil
	}
	var repos []core.Repository
	for _, id := range pkg.RepositoryIDs {
		if repo, ok := s.m.repos[id]; ok {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

func (s memRepos) ListByProduct(_ context.Context, productID string) ([]core.Repository, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var repos []core.Repository
	for _, repo := range s.m.repos {
		if repo.PolarProductID == productID && productID != "" {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

type memRepoPkgs struct{ m *memoryStores }

func (s memRepoPkgs) Get(_ context.Context, id string) (core.RepositoryPackage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pkg, ok := s.m.repoPkgs[id]
	if !ok {
		return core.RepositoryPackage{}, core.NewNotFoundError("repository package not found")
	}
	return pkg, nil
}

type memAccess struct{ m *memoryStores }

func (s memAccess) Get(_ context.Context, id string) (core.RepositoryAccess, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, access := range s.m.accessRows {
		if access.ID == id {
			return access, nil
		}
	}
	return core.RepositoryAccess{}, core.NewNotFoundError("access not found")
}

func (s memAccess) FindByAccountAndRepository(_ context.Context, accountID string, repositoryID string) (core.RepositoryAccess, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	access, ok := s.m.accessRows[accessKey(accountID, repositoryID)]
	if !ok {
		return core.RepositoryAccess{}, core.NewNotFoundError("access not found")
	}
	return access, nil
}

func (s memAccess) ListByPurchaseReference(_ context.Context, reference string) ([]core.RepositoryAccess, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var grants []core.RepositoryAccess
	for _, access := range s.m.accessRows {
		if access.PurchaseReference == reference && reference != "" {
			grants = append(grants, access)
		}
	}
	return grants, nil
}

func (s memAccess) ListByOrderID(_ context.Context, orderID string) ([]core.RepositoryAccess, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var grants []core.RepositoryAccess
	for _, access := range s.m.accessRows {
		if access.PolarOrderID == orderID && orderID != "" {
			grants = append(grants, access)
		}
	}
	return grants, nil
}

func (s memAccess) Save(_ context.Context, access core.RepositoryAccess) (core.RepositoryAccess, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.accessRows[accessKey(access.AccountID, access.RepositoryID)] = access
	return access, nil
}
