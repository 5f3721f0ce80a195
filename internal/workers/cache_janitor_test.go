package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/threat"
)

func TestCacheJanitor_EvictsExpiredEntries(t *testing.T) {
	var now time.Time
	clock := func() time.Time { return now }
	now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cache := threat.NewMemoryCache(clock)
	require.NoError(t, cache.Set(context.Background(), "old", &entities.ThreatHistory{}, time.Second))
	require.NoError(t, cache.Set(context.Background(), "fresh", &entities.ThreatHistory{}, time.Hour))

	now = now.Add(time.Minute)

	j := NewCacheJanitor(slog.New(slog.NewTextHandler(io.Discard, nil)), cache, time.Hour)
	j.evict(context.Background())

	require.Equal(t, 1, cache.Len())
	_, ok, err := cache.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheJanitor_StopsOnCancel(t *testing.T) {
	j := NewCacheJanitor(slog.New(slog.NewTextHandler(io.Discard, nil)), threat.NewMemoryCache(nil), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestCacheJanitor_NonPositiveIntervalFallsBack(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		j := NewCacheJanitor(slog.New(slog.NewTextHandler(io.Discard, nil)), threat.NewMemoryCache(nil), interval)
		require.Equal(t, defaultJanitorInterval, j.interval)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NotPanics(t, func() { j.Start(ctx) })
	}
}
