package workers

import (
	"context"
	"log/slog"
	"time"
)

// ExpiringCache drops its expired entries on demand.
type ExpiringCache interface {
	EvictExpired(ctx context.Context) (int64, error)
}

// CacheJanitor periodically evicts expired threat-history cache entries.
type CacheJanitor struct {
	logger *slog.Logger
	cache  ExpiringCache

	// How often to run the eviction
	interval time.Duration
}

const defaultJanitorInterval = time.Minute

// NewCacheJanitor falls back to one minute when interval is not positive.
func NewCacheJanitor(logger *slog.Logger, cache ExpiringCache, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}

	return &CacheJanitor{
		logger:   logger,
		cache:    cache,
		interval: interval,
	}
}

// Start runs until ctx is cancelled.
func (j *CacheJanitor) Start(ctx context.Context) {
	j.logger.Info("Starting cache janitor worker", "interval", j.interval.String())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Cache janitor worker stopped")
			return
		case <-ticker.C:
			j.evict(ctx)
		}
	}
}

func (j *CacheJanitor) evict(ctx context.Context) {
	count, err := j.cache.EvictExpired(ctx)
	if err != nil {
		j.logger.Error("Cache eviction failed", "error", err)
		return
	}

	if count > 0 {
		j.logger.Info("Evicted expired cache entries", "count", count)
	} else {
		j.logger.Debug("No expired cache entries")
	}
}
