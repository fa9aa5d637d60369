package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

// RepositoryFactory wires every billing store to one bun handle and hands
// the bundle to the services as a core.StoreProvider.
type RepositoryFactory struct {
	db *bun.DB

	accountStore           *AccountStore
	ledgerStore            *LedgerStore
	usageRecordStore       *UsageRecordStore
	alertStore             *AlertStore
	creditPackageStore     *CreditPackageStore
	subscriptionStore      *SubscriptionStore
	tierDefinitionStore    core.TierDefinitionStore
	quotaStore             *QuotaStore
	repositoryStore        *RepositoryStore
	repositoryPackageStore *RepositoryPackageStore
	accessStore            *AccessStore
	webhookDeliveryStore   *WebhookDeliveryStore
	txRunner               *TxRunner

	tierCache repositorycache.CacheService
}

type FactoryOption func(*RepositoryFactory)

// WithTierDefinitionCache layers the tier catalog reads over the given
// cache service.
func WithTierDefinitionCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.tierCache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.accountStore != nil && f.ledgerStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) AccountStore() core.AccountStore {
	if f == nil {
		return nil
	}
	return f.accountStore
}

func (f *RepositoryFactory) LedgerStore() core.LedgerStore {
	if f == nil {
		return nil
	}
	return f.ledgerStore
}

func (f *RepositoryFactory) UsageRecordStore() core.UsageRecordStore {
	if f == nil {
		return nil
	}
	return f.usageRecordStore
}

func (f *RepositoryFactory) AlertStore() core.AlertStore {
	if f == nil {
		return nil
	}
	return f.alertStore
}

func (f *RepositoryFactory) CreditPackageStore() core.CreditPackageStore {
	if f == nil {
		return nil
	}
	return f.creditPackageStore
}

func (f *RepositoryFactory) SubscriptionStore() core.SubscriptionStore {
	if f == nil {
		return nil
	}
	return f.subscriptionStore
}

func (f *RepositoryFactory) TierDefinitionStore() core.TierDefinitionStore {
	if f == nil {
		return nil
	}
	return f.tierDefinitionStore
}

func (f *RepositoryFactory) QuotaStore() core.QuotaStore {
	if f == nil {
		return nil
	}
	return f.quotaStore
}

func (f *RepositoryFactory) RepositoryStore() core.RepositoryStore {
	if f == nil {
		return nil
	}
	return f.repositoryStore
}

func (f *RepositoryFactory) RepositoryPackageStore() core.RepositoryPackageStore {
	if f == nil {
		return nil
	}
	return f.repositoryPackageStore
}

func (f *RepositoryFactory) AccessStore() core.AccessStore {
	if f == nil {
		return nil
	}
	return f.accessStore
}

func (f *RepositoryFactory) TxRunner() core.TxRunner {
	if f == nil {
		return nil
	}
	return f.txRunner
}

func (f *RepositoryFactory) WebhookDeliveryStore() *WebhookDeliveryStore {
	if f == nil {
		return nil
	}
	return f.webhookDeliveryStore
}

func (f *RepositoryFactory) initStores() error {
	accountStore, err := NewAccountStore(f.db)
	if err != nil {
		return err
	}
	f.accountStore = accountStore

	ledgerStore, err := NewLedgerStore(f.db)
	if err != nil {
		return err
	}
	f.ledgerStore = ledgerStore

	usageRecordStore, err := NewUsageRecordStore(f.db)
	if err != nil {
		return err
	}
	f.usageRecordStore = usageRecordStore

	alertStore, err := NewAlertStore(f.db)
	if err != nil {
		return err
	}
	f.alertStore = alertStore

	creditPackageStore, err := NewCreditPackageStore(f.db)
	if err != nil {
		return err
	}
	f.creditPackageStore = creditPackageStore

	subscriptionStore, err := NewSubscriptionStore(f.db)
	if err != nil {
		return err
	}
	f.subscriptionStore = subscriptionStore

	tierDefinitionStore, err := NewTierDefinitionStore(f.db)
	if err != nil {
		return err
	}
	f.tierDefinitionStore = tierDefinitionStore
	if f.tierCache != nil {
		cached, cacheErr := NewCachedTierDefinitionStore(tierDefinitionStore, f.tierCache)
		if cacheErr != nil {
			return cacheErr
		}
		f.tierDefinitionStore = cached
	}

	quotaStore, err := NewQuotaStore(f.db)
	if err != nil {
		return err
	}
	f.quotaStore = quotaStore

	repositoryStore, err := NewRepositoryStore(f.db)
	if err != nil {
		return err
	}
	f.repositoryStore = repositoryStore

	repositoryPackageStore, err := NewRepositoryPackageStore(f.db)
	if err != nil {
		return err
	}
	f.repositoryPackageStore = repositoryPackageStore

	accessStore, err := NewAccessStore(f.db)
	if err != nil {
		return err
	}
	f.accessStore = accessStore

	webhookDeliveryStore, err := NewWebhookDeliveryStore(f.db)
	if err != nil {
		return err
	}
	f.webhookDeliveryStore = webhookDeliveryStore

	f.txRunner = NewTxRunner(f.db)

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.StoreProvider = (*RepositoryFactory)(nil)
