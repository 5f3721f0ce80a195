package threat

import (
	"context"
	"log/slog"
	"time"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

var _ ports.ThreatLookup = (*CachedLookup)(nil)

// CachedLookup serves lookups from cache and falls through to the store on a miss.
// Cache failures are logged and never fail a lookup.
type CachedLookup struct {
	logger *slog.Logger
	store  ports.ThreatLookup
	cache  Cache
	ttl    time.Duration
}

func NewCachedLookup(logger *slog.Logger, store ports.ThreatLookup, cache Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		logger: logger,
		store:  store,
		cache:  cache,
		ttl:    ttl,
	}
}

func (l *CachedLookup) Lookup(ctx context.Context, address string) (*entities.ThreatHistory, error) {
	key := shared.NormalizeAddress(address)

	cached, ok, err := l.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.ThreatCacheTotal.WithLabelValues("error").Inc()
		l.logger.WarnContext(ctx, "Threat cache read failed", "address", key, "error", err)
	case ok:
		metrics.ThreatCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.ThreatCacheTotal.WithLabelValues("miss").Inc()
	}

	history, err := l.store.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := l.cache.Set(ctx, key, history, l.ttl); err != nil {
		l.logger.WarnContext(ctx, "Threat cache write failed", "address", key, "error", err)
	}

	return history, nil
}
