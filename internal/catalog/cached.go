package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/store"
)

type Cache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, data []byte, ttl time.Duration) error
	ClearCache(ctx context.Context) error
}

// CachedCatalog is a read-through TTL cache in front of another Catalog.
// It writes to its cache on misses, so it must not be consulted from inside
// an open write transaction on the same database.
type CachedCatalog struct {
	catalog  Catalog
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedCatalog(catalog Catalog, cache Cache, cacheTTL time.Duration) *CachedCatalog {
	return &CachedCatalog{
		catalog:  catalog,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *CachedCatalog) GetKara(ctx context.Context, ref domain.KaraRef) (*domain.Kara, error) {
	cacheKey := karaCacheKey(ref)

	data, err := c.cache.GetCache(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var kara domain.Kara
		if err := json.Unmarshal(data, &kara); err == nil {
			return &kara, nil
		}
	}

	kara, err := c.catalog.GetKara(ctx, ref)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, kara)
	return kara, nil
}

func (c *CachedCatalog) GetKaras(ctx context.Context, ids []int64) (map[int64]*domain.Kara, error) {
	out := make(map[int64]*domain.Kara, len(ids))
	var misses []int64

	for _, id := range ids {
		data, err := c.cache.GetCache(ctx, karaCacheKey(domain.KaraByID(id)))
		if err != nil {
			return nil, err
		}
		var kara domain.Kara
		if data != nil && json.Unmarshal(data, &kara) == nil {
			out[id] = &kara
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.catalog.GetKaras(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, kara := range fetched {
		out[id] = kara
		c.store(ctx, karaCacheKey(domain.KaraByID(id)), kara)
	}
	return out, nil
}

func (c *CachedCatalog) GetTag(ctx context.Context, id string) (*domain.Tag, error) {
	cacheKey := fmt.Sprintf("tag:%s", id)

	data, err := c.cache.GetCache(ctx, cacheKey)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var tag domain.Tag
		if err := json.Unmarshal(data, &tag); err == nil {
			return &tag, nil
		}
	}

	tag, err := c.catalog.GetTag(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, cacheKey, tag)
	return tag, nil
}

func (c *CachedCatalog) ClearCache(ctx context.Context) error {
	return c.cache.ClearCache(ctx)
}

// store is best effort: a failed cache write never fails the lookup.
func (c *CachedCatalog) store(ctx context.Context, key string, v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.SetCache(ctx, key, data, c.cacheTTL)
	}
}

func karaCacheKey(ref domain.KaraRef) string {
	if ref.KID != "" {
		return fmt.Sprintf("kara:kid:%s", ref.KID)
	}
	return fmt.Sprintf("kara:id:%d", ref.ID)
}

var _ Catalog = (*CachedCatalog)(nil)

type storeCache struct {
	store *store.DB
}

// NewStoreCache adapts the database cache table to the Cache interface.
func NewStoreCache(db *store.DB) Cache {
	return &storeCache{store: db}
}

func (s *storeCache) GetCache(ctx context.Context, key string) ([]byte, error) {
	return s.store.GetCache(ctx, key)
}

func (s *storeCache) SetCache(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.store.SetCache(ctx, key, data, ttl)
}

func (s *storeCache) ClearCache(ctx context.Context) error {
	return s.store.ClearCache(ctx)
}

var _ Cache = (*storeCache)(nil)
