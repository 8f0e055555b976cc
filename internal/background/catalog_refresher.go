package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
)

// CatalogSource reloads the permission catalog snapshot
type CatalogSource interface {
	Refresh(ctx context.Context) (*models.Catalog, error)
}

// CatalogRefresher periodically reloads the cached permission catalog so catalog rows
// edited outside this instance become visible
type CatalogRefresher struct {
	source   CatalogSource
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCatalogRefresher(
	source CatalogSource,
	m *metrics.Metrics,
	logger *slog.Logger,
	interval time.Duration,
) *CatalogRefresher {
	return &CatalogRefresher{
		source:   source,
		metrics:  m,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start loads the catalog immediately, then again on every tick until stopped.
func (cr *CatalogRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(cr.interval)
	defer ticker.Stop()

	cr.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			cr.refresh(ctx)
		case <-cr.stopCh:
			cr.logger.Info("catalog refresher stopped")
			return
		case <-ctx.Done():
			cr.logger.Info("catalog refresher context cancelled")
			return
		}
	}
}

func (cr *CatalogRefresher) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	catalog, err := cr.source.Refresh(refreshCtx)
	cr.metrics.ObserveCatalogRefresh(err)
	if err != nil {
		cr.logger.Error("failed to refresh permission catalog", slog.Any("error", err))
		return
	}

	cr.logger.Debug("permission catalog refreshed",
		slog.Int("modules", len(catalog.Modules)),
		slog.Int("entries", len(catalog.Entries)))
}

// Stop signals the refresher to stop. It is safe to call more than once.
func (cr *CatalogRefresher) Stop() {
	cr.stopOnce.Do(func() { close(cr.stopCh) })
}
