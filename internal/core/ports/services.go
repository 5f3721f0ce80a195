package ports

import (
	"context"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

// FactGatherer builds an on-chain snapshot of an address.
type FactGatherer interface {
	Configured() bool
	Gather(ctx context.Context, address, network string, limit int) (*entities.OnChainFacts, error)
}

// ThreatLookup returns verified-report counts and the blacklist flag for an address.
type ThreatLookup interface {
	Lookup(ctx context.Context, address string) (*entities.ThreatHistory, error)
}

// InsightProvider produces a qualitative assessment of a proposed transfer.
type InsightProvider interface {
	IsEnabled() bool
	Insight(ctx context.Context, facts *entities.OnChainFacts, amountAED float64) (*entities.AIInsight, error)
}

// AuditLogger seals and stores audit records.
type AuditLogger interface {
	Configured() bool
	Log(ctx context.Context, data entities.AuditLogData) (*entities.AuditReceipt, error)
}

// RiskScorer is the deterministic score function.
type RiskScorer interface {
	Score(input entities.RiskInput) entities.RiskOutput
}
