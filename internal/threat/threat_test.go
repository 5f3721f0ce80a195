package threat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/pkg/database"
)

const addr = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

type countingStore struct {
	calls atomic.Int32
	inner *MemoryStore
	err   error
}

func (s *countingStore) Lookup(ctx context.Context, address string) (*entities.ThreatHistory, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Lookup(ctx, address)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*entities.ThreatHistory, bool, error) {
	return nil, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, *entities.ThreatHistory, time.Duration) error {
	return errors.New("cache down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStore_CaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	s.AddVerifiedReports(addr, 2)
	s.AddVerifiedReports("0X8BA1F109551BD432803012645AC136DDD64DBA72", 1)
	s.Blacklist(addr)

	h, err := s.Lookup(context.Background(), "0x8BA1F109551BD432803012645AC136DDD64DBA72")
	require.NoError(t, err)
	require.Equal(t, 3, h.VerifiedReports)
	require.True(t, h.IsBlacklisted)

	h, err = s.Lookup(context.Background(), "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.Zero(t, h.VerifiedReports)
	require.False(t, h.IsBlacklisted)
}

func TestMemoryCache_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", &entities.ThreatHistory{VerifiedReports: 4}, time.Minute))

	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, v.VerifiedReports)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 1, c.Len())
	n, err := c.EvictExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, 0, c.Len())
}

func TestMemoryCache_Isolated(t *testing.T) {
	a := NewMemoryCache(nil)
	b := NewMemoryCache(nil)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", &entities.ThreatHistory{}, time.Hour))
	_, ok, _ := b.Get(ctx, "k")
	require.False(t, ok)
}

func TestCachedLookup_HitsStoreOnce(t *testing.T) {
	inner := NewMemoryStore()
	inner.AddVerifiedReports(addr, 1)
	store := &countingStore{inner: inner}

	l := NewCachedLookup(discardLogger(), store, NewMemoryCache(nil), time.Minute)
	for range 3 {
		h, err := l.Lookup(context.Background(), addr)
		require.NoError(t, err)
		require.Equal(t, 1, h.VerifiedReports)
	}
	require.Equal(t, int32(1), store.calls.Load())
}

func TestCachedLookup_CacheFailureFallsThrough(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore()}
	l := NewCachedLookup(discardLogger(), store, brokenCache{}, time.Minute)

	_, err := l.Lookup(context.Background(), addr)
	require.NoError(t, err)
	_, err = l.Lookup(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, int32(2), store.calls.Load())
}

func TestCachedLookup_StoreError(t *testing.T) {
	store := &countingStore{inner: NewMemoryStore(), err: errors.New("db down")}
	l := NewCachedLookup(discardLogger(), store, NewMemoryCache(nil), time.Minute)

	_, err := l.Lookup(context.Background(), addr)
	require.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := database.NewRedis(ctx, redisURL)
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisCache(client, "test:threat:")
	key := "0xredis" + time.Now().Format("150405.000000")

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, key, &entities.ThreatHistory{Address: key, VerifiedReports: 2, IsBlacklisted: true}, time.Minute))
	v, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v.VerifiedReports)
	require.True(t, v.IsBlacklisted)
}
