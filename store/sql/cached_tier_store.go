package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-billing/core"
)

const tierDefinitionCacheKeyPrefix = "go-billing::tier_definition::v1"

// CachedTierDefinitionStore caches tier catalog reads. The catalog changes
// rarely but is consulted on every subscription webhook, so reads go through
// the cache and writes invalidate the touched keys.
type CachedTierDefinitionStore struct {
	base  core.TierDefinitionStore
	cache repositorycache.CacheService
}

func NewCachedTierDefinitionStore(
	base core.TierDefinitionStore,
	cacheService repositorycache.CacheService,
) (*CachedTierDefinitionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base tier definition store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: tier definition cache service is required")
	}
	return &CachedTierDefinitionStore{base: base, cache: cacheService}, nil
}

func tierNameCacheKey(name string) string {
	return strings.Join([]string{
		tierDefinitionCacheKeyPrefix,
		"name",
		url.PathEscape(strings.TrimSpace(name)),
	}, "::")
}

func tierProductCacheKey(productID string) string {
	return strings.Join([]string{
		tierDefinitionCacheKeyPrefix,
		"product",
		url.PathEscape(strings.TrimSpace(productID)),
	}, "::")
}

func (s *CachedTierDefinitionStore) Get(ctx context.Context, name string) (core.TierDefinition, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.TierDefinition{}, errStoreNotConfigured("cached tier definition store")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, tierNameCacheKey(name), func(ctx context.Context) (core.TierDefinition, error) {
		return s.base.Get(ctx, name)
	})
}

func (s *CachedTierDefinitionStore) FindByProductID(ctx context.Context, productID string) (core.TierDefinition, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.TierDefinition{}, errStoreNotConfigured("cached tier definition store")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, tierProductCacheKey(productID), func(ctx context.Context) (core.TierDefinition, error) {
		return s.base.FindByProductID(ctx, productID)
	})
}

// List always hits the base store: the full catalog is a rare admin read and
// keeping a list key coherent with per-name keys is not worth it.
func (s *CachedTierDefinitionStore) List(ctx context.Context) ([]core.TierDefinition, error) {
	if s == nil || s.base == nil {
		return nil, errStoreNotConfigured("cached tier definition store")
	}
	return s.base.List(ctx)
}

func (s *CachedTierDefinitionStore) Save(ctx context.Context, definition core.TierDefinition) (core.TierDefinition, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.TierDefinition{}, errStoreNotConfigured("cached tier definition store")
	}
	saved, err := s.base.Save(ctx, definition)
	if err != nil {
		return core.TierDefinition{}, err
	}
	keys := []string{tierNameCacheKey(saved.Name)}
	if strings.TrimSpace(saved.PolarMonthlyProductID) != "" {
		keys = append(keys, tierProductCacheKey(saved.PolarMonthlyProductID))
	}
	if strings.TrimSpace(saved.PolarYearlyProductID) != "" {
		keys = append(keys, tierProductCacheKey(saved.PolarYearlyProductID))
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return core.TierDefinition{}, err
		}
	}
	return saved, nil
}

var _ core.TierDefinitionStore = (*CachedTierDefinitionStore)(nil)
