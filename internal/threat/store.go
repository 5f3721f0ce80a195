// Package threat answers how often an address was reported and whether it is blacklisted.
package threat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tx "github.com/Thiht/transactor/pgx"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
	"github.com/sand/wallet-risk-engine/backend/pkg/database"
)

const reportStatusVerified = "verified"

// PostgresStore reads the report store. Addresses are compared case-insensitively.
type PostgresStore struct {
	logger *slog.Logger
	db     tx.DBGetter
}

func NewPostgresStore(logger *slog.Logger, pg *database.Postgres) *PostgresStore {
	return &PostgresStore{
		logger: logger,
		db:     pg.DBGetter,
	}
}

func (s *PostgresStore) Lookup(ctx context.Context, address string) (*entities.ThreatHistory, error) {
	address = shared.NormalizeAddress(address)

	query := `SELECT
                (SELECT COUNT(*) FROM scam_reports WHERE LOWER(wallet_address) = $1 AND status = $2),
                EXISTS (SELECT 1 FROM blacklisted_addresses WHERE LOWER(address) = $1)`

	history := entities.ThreatHistory{Address: address}
	var count int64
	err := s.db(ctx).QueryRow(ctx, query, address, reportStatusVerified).Scan(&count, &history.IsBlacklisted)
	if err != nil {
		return nil, fmt.Errorf("failed to query threat history: %w", err)
	}
	history.VerifiedReports = int(count)

	return &history, nil
}

// MemoryStore is an in-process report store used when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	reports     map[string]int
	blacklisted map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:     make(map[string]int),
		blacklisted: make(map[string]struct{}),
	}
}

// AddVerifiedReports records n additional verified reports for address.
func (s *MemoryStore) AddVerifiedReports(address string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[shared.NormalizeAddress(address)] += n
}

func (s *MemoryStore) Blacklist(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklisted[shared.NormalizeAddress(address)] = struct{}{}
}

func (s *MemoryStore) Lookup(_ context.Context, address string) (*entities.ThreatHistory, error) {
	address = shared.NormalizeAddress(address)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, blacklisted := s.blacklisted[address]
	return &entities.ThreatHistory{
		Address:         address,
		VerifiedReports: s.reports[address],
		IsBlacklisted:   blacklisted,
	}, nil
}
