package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

var _ ports.AuditLogger = (*Service)(nil)

const defaultListLimit = 100

type Service struct {
	logger    *slog.Logger
	vault     *Vault
	store     Store
	listLimit int
	now       func() time.Time
}

func NewService(logger *slog.Logger, vault *Vault, store Store, listLimit int) *Service {
	if listLimit <= 0 {
		listLimit = defaultListLimit
	}
	if !vault.Configured() {
		logger.Warn("Audit vault is disabled: no encryption key configured")
	}

	return &Service{
		logger:    logger,
		vault:     vault,
		store:     store,
		listLimit: listLimit,
		now:       time.Now,
	}
}

func (s *Service) Configured() bool {
	return s.vault.Configured()
}

// Log validates, seals and stores data. It fails closed when the vault has no key.
func (s *Service) Log(ctx context.Context, data entities.AuditLogData) (*entities.AuditReceipt, error) {
	if !s.vault.Configured() {
		metrics.AuditWritesTotal.WithLabelValues("unconfigured").Inc()
		return nil, fmt.Errorf("audit vault: %w", shared.ErrNotConfigured)
	}

	if err := validate(&data, s.vault.minValueAED); err != nil {
		metrics.AuditWritesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = s.now().UTC()
	}
	if data.AnalysisDetails == nil {
		data.AnalysisDetails = map[string]any{}
	}

	sealed, err := s.vault.Seal(data)
	if err != nil {
		metrics.AuditWritesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.store.Insert(ctx, sealed); err != nil {
		metrics.AuditWritesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store audit log: %w", err)
	}

	metrics.AuditWritesTotal.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "Audit log written",
		"transaction_hash", sealed.TransactionHash,
		"wallet", sealed.WalletAddress,
		"risk_level", sealed.RiskLevel)

	return &entities.AuditReceipt{
		TransactionHash: sealed.TransactionHash,
		DataHash:        sealed.DataHash,
		Timestamp:       sealed.TimestampUTC,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]entities.AuditLogSummary, error) {
	return s.list(ctx, ListFilter{Limit: s.listLimit})
}

func (s *Service) ListByAddress(ctx context.Context, address string) ([]entities.AuditLogSummary, error) {
	if !shared.IsWalletAddress(address) {
		return nil, shared.NewValidationError("address", "invalid wallet address", "عنوان المحفظة غير صالح")
	}
	return s.list(ctx, ListFilter{WalletAddress: shared.NormalizeAddress(address), Limit: s.listLimit})
}

func (s *Service) list(ctx context.Context, filter ListFilter) ([]entities.AuditLogSummary, error) {
	logs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]entities.AuditLogSummary, 0, len(logs))
	for _, l := range logs {
		summaries = append(summaries, l.Summary())
	}
	return summaries, nil
}

// Decrypt returns the plaintext record behind transactionHash.
func (s *Service) Decrypt(ctx context.Context, transactionHash string) (*entities.AuditLogData, error) {
	if !s.vault.Configured() {
		return nil, fmt.Errorf("audit vault: %w", shared.ErrNotConfigured)
	}

	record, err := s.store.Get(ctx, transactionHash)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("audit log %s: %w", transactionHash, shared.ErrNotFound)
	}

	data, err := s.vault.Open(record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Audit log decryption failed",
			"transaction_hash", transactionHash,
			"error", err)
		return nil, err
	}
	return data, nil
}

func validate(data *entities.AuditLogData, minValueAED float64) error {
	if !shared.IsWalletAddress(data.WalletAddress) {
		return shared.NewValidationError("walletAddress", "invalid wallet address", "عنوان المحفظة غير صالح")
	}
	data.WalletAddress = shared.NormalizeAddress(data.WalletAddress)

	if data.TransactionValueAED < minValueAED {
		return shared.NewValidationError("transactionValueAED",
			fmt.Sprintf("transaction value must be at least %.0f AED", minValueAED),
			fmt.Sprintf("يجب ألا تقل قيمة المعاملة عن %.0f درهم", minValueAED))
	}
	if data.RiskScore < 0 || data.RiskScore > 100 {
		return shared.NewValidationError("riskScore", "risk score must be between 0 and 100", "يجب أن تكون درجة المخاطر بين 0 و 100")
	}
	if !data.RiskLevel.Valid() {
		return shared.NewValidationError("riskLevel", "risk level must be safe, suspicious or danger", "مستوى المخاطر غير صالح")
	}
	return nil
}
