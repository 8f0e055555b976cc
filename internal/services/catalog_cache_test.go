package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCache_LoadsOnce(t *testing.T) {
	store := catalogStoreFor(testCatalog())
	cache := NewCatalogCache(store)

	assert.True(t, cache.LoadedAt().IsZero())

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.LoadCount)
	assert.False(t, cache.LoadedAt().IsZero())
}

func TestCatalogCache_InvalidateReloads(t *testing.T) {
	store := catalogStoreFor(testCatalog())
	cache := NewCatalogCache(store)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, store.LoadCount)
}

func TestCatalogCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	catalog := testCatalog()
	fail := false
	store := &MockCatalogStore{
		LoadCatalogFunc: func(ctx context.Context) (*models.Catalog, error) {
			if fail {
				return nil, errors.New("database unavailable")
			}
			return catalog, nil
		},
	}
	cache := NewCatalogCache(store)

	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = cache.Refresh(context.Background())
	require.Error(t, err)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, catalog, got)
}

func TestCatalogCache_ConcurrentReaders(t *testing.T) {
	var mu sync.Mutex
	loads := 0
	store := &MockCatalogStore{
		LoadCatalogFunc: func(ctx context.Context) (*models.Catalog, error) {
			mu.Lock()
			loads++
			mu.Unlock()
			return testCatalog(), nil
		},
	}
	cache := NewCatalogCache(store)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			catalog, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.Len(t, catalog.Modules, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loads)
}
