package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/pkg/database"
)

var ErrDuplicateRecord = errors.New("audit record already exists")

// ListFilter narrows a listing. An empty WalletAddress lists every wallet.
type ListFilter struct {
	WalletAddress string
	Limit         int
}

// Store persists sealed records. Records are append-only.
type Store interface {
	Insert(ctx context.Context, log *entities.EncryptedAuditLog) error
	Get(ctx context.Context, transactionHash string) (*entities.EncryptedAuditLog, error)
	List(ctx context.Context, filter ListFilter) ([]entities.EncryptedAuditLog, error)
}

var auditColumns = []string{
	"transaction_hash",
	"wallet_address",
	"transaction_value_aed",
	"risk_score",
	"risk_level",
	"encrypted_data",
	"encryption_iv",
	"data_hash",
	"timestamp_utc",
}

type PostgresStore struct {
	logger     *slog.Logger
	db         tx.DBGetter
	transactor *tx.Transactor
	builder    sq.StatementBuilderType
}

func NewPostgresStore(logger *slog.Logger, pg *database.Postgres) *PostgresStore {
	return &PostgresStore{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
		builder:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *PostgresStore) Insert(ctx context.Context, log *entities.EncryptedAuditLog) error {
	return s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.Get(ctx, log.TransactionHash)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateRecord, log.TransactionHash)
		}

		query, args, err := s.builder.Insert("audit_logs").
			Columns(auditColumns...).
			Values(
				log.TransactionHash,
				log.WalletAddress,
				log.TransactionValueAED,
				log.RiskScore,
				string(log.RiskLevel),
				log.EncryptedData,
				log.EncryptionIV,
				log.DataHash,
				log.TimestampUTC,
			).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build audit insert: %w", err)
		}

		if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert audit log: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Get(ctx context.Context, transactionHash string) (*entities.EncryptedAuditLog, error) {
	query, args, err := s.builder.Select(auditColumns...).
		From("audit_logs").
		Where(sq.Eq{"transaction_hash": transactionHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	log, err := scanAuditLog(s.db(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	return log, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]entities.EncryptedAuditLog, error) {
	builder := s.builder.Select(auditColumns...).
		From("audit_logs").
		OrderBy("timestamp_utc DESC", "transaction_hash")
	if filter.WalletAddress != "" {
		builder = builder.Where(sq.Eq{"wallet_address": filter.WalletAddress})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit list query: %w", err)
	}

	rows, err := s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entities.EncryptedAuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}

func scanAuditLog(row pgx.Row) (*entities.EncryptedAuditLog, error) {
	var (
		log   entities.EncryptedAuditLog
		level string
	)
	err := row.Scan(
		&log.TransactionHash,
		&log.WalletAddress,
		&log.TransactionValueAED,
		&log.RiskScore,
		&level,
		&log.EncryptedData,
		&log.EncryptionIV,
		&log.DataHash,
		&log.TimestampUTC,
	)
	if err != nil {
		return nil, err
	}
	log.RiskLevel = entities.RiskLevel(level)
	log.TimestampUTC = log.TimestampUTC.UTC()
	return &log, nil
}

// MemoryStore keeps records in process, used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]entities.EncryptedAuditLog
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]entities.EncryptedAuditLog)}
}

func (s *MemoryStore) Insert(_ context.Context, log *entities.EncryptedAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[log.TransactionHash]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRecord, log.TransactionHash)
	}
	s.records[log.TransactionHash] = *log
	s.order = append(s.order, log.TransactionHash)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, transactionHash string) (*entities.EncryptedAuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.records[transactionHash]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]entities.EncryptedAuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]entities.EncryptedAuditLog, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		log := s.records[s.order[i]]
		if filter.WalletAddress != "" && log.WalletAddress != filter.WalletAddress {
			continue
		}
		logs = append(logs, log)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].TimestampUTC.After(logs[j].TimestampUTC)
	})
	if filter.Limit > 0 && len(logs) > filter.Limit {
		logs = logs[:filter.Limit]
	}
	return logs, nil
}
