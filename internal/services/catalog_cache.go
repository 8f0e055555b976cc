package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// CatalogLoader reads a fresh catalog snapshot
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*models.Catalog, error)
}

// CatalogCache holds the active permission catalog. Readers share one snapshot; it is
// replaced wholesale on refresh and never mutated in place.
type CatalogCache struct {
	mu       sync.RWMutex
	loader   CatalogLoader
	catalog  *models.Catalog
	loadedAt time.Time
}

func NewCatalogCache(loader CatalogLoader) *CatalogCache {
	return &CatalogCache{loader: loader}
}

// Get returns the cached snapshot, loading it on first use or after Invalidate.
func (c *CatalogCache) Get(ctx context.Context) (*models.Catalog, error) {
	c.mu.RLock()
	catalog := c.catalog
	c.mu.RUnlock()

	if catalog != nil {
		return catalog, nil
	}
	return c.Refresh(ctx)
}

// Refresh reloads the snapshot. On failure the previous snapshot stays in place.
func (c *CatalogCache) Refresh(ctx context.Context) (*models.Catalog, error) {
	catalog, err := c.loader.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission catalog: %w", err)
	}

	c.mu.Lock()
	c.catalog = catalog
	c.loadedAt = time.Now()
	c.mu.Unlock()

	return catalog, nil
}

// Invalidate drops the snapshot so the next Get reloads it.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.catalog = nil
	c.mu.Unlock()
}

// LoadedAt reports when the current snapshot was read; zero when none is held.
func (c *CatalogCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil {
		return time.Time{}
	}
	return c.loadedAt
}
