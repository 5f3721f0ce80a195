// Package verification runs hybrid verification: on-chain facts, threat history,
// AI insight and mixer screening combined into one certified result.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sand/wallet-risk-engine/backend/internal/ai"
	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const (
	defaultAssetType = "ETH"

	sourceOK        = "ok"
	sourceDegraded  = "degraded"
	sourceSimulated = "simulated"

	degradedThreatHistory = "threatHistory"
	degradedAIInsight     = "aiInsight"
)

// Status describes whether hybrid verification can run.
type Status struct {
	Configured   bool    `json:"configured"`
	MinAmountAED float64 `json:"minAmountAED"`
}

type Orchestrator struct {
	logger   *slog.Logger
	gatherer ports.FactGatherer
	threats  ports.ThreatLookup
	insights ports.InsightProvider
	auditor  ports.AuditLogger

	mixers            MixerSet
	minAmountAED      float64
	transferLimit     int
	aiTimeout         time.Duration
	simulationEnabled bool

	now    func() time.Time
	random io.Reader
}

type Option func(*Orchestrator)

func MinAmountAED(v float64) Option {
	return func(o *Orchestrator) {
		if v > 0 {
			o.minAmountAED = v
		}
	}
}

func TransferLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.transferLimit = n
		}
	}
}

// AITimeout bounds the insight call; on expiry the safe default insight is used.
func AITimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.aiTimeout = d
		}
	}
}

func Simulation(enabled bool) Option {
	return func(o *Orchestrator) {
		o.simulationEnabled = enabled
	}
}

func Mixers(addresses []string) Option {
	return func(o *Orchestrator) {
		o.mixers = NewMixerSet(addresses)
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator wires the collaborators. auditor may be nil, in which case
// persistence requests are ignored.
func NewOrchestrator(
	logger *slog.Logger,
	gatherer ports.FactGatherer,
	threats ports.ThreatLookup,
	insights ports.InsightProvider,
	auditor ports.AuditLogger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		logger:        logger,
		gatherer:      gatherer,
		threats:       threats,
		insights:      insights,
		auditor:       auditor,
		mixers:        NewMixerSet(KnownMixers),
		minAmountAED:  ports.HybridMinAmountAED,
		transferLimit: ports.HybridTransferLimit,
		aiTimeout:     ports.DefaultAIInsightTimeout,
		now:           time.Now,
		random:        rand.Reader,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Status() Status {
	return Status{
		Configured:   o.gatherer.Configured(),
		MinAmountAED: o.minAmountAED,
	}
}

// Verify runs validate, fetch, enrich, screen, finalize and persist in that order.
// Only validation and a missing blockchain provider are returned as errors;
// threat, AI and persistence failures degrade the result instead.
func (o *Orchestrator) Verify(ctx context.Context, req entities.HybridVerificationRequest) (*entities.HybridVerificationResult, error) {
	if err := o.validate(&req); err != nil {
		metrics.VerificationsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if req.SimulationScenario != "" {
		result := simulatedResult(req, o.now().UTC())
		if err := o.certify(result); err != nil {
			return nil, err
		}
		metrics.VerificationsTotal.WithLabelValues("simulated").Inc()
		o.logger.InfoContext(ctx, "Simulated hybrid verification returned",
			"scenario", req.SimulationScenario,
			"verification_id", result.VerificationID)
		return result, nil
	}

	if !o.gatherer.Configured() {
		metrics.VerificationsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("blockchain provider: %w", shared.ErrNotConfigured)
	}

	result := &entities.HybridVerificationResult{
		WalletAddress:        req.WalletAddress,
		DestinationWallet:    req.DestinationWallet,
		Network:              req.Network,
		AssetType:            req.AssetType,
		TransactionAmountAED: req.TransactionAmountAED,
		ThresholdMet:         true,
	}

	history, err := o.fetch(ctx, req, result)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result.AIInsight = o.enrich(ctx, result)

	candidates := make([]string, 0, 2*len(result.OnChainFacts.RecentTransactions)+1)
	for _, t := range result.OnChainFacts.RecentTransactions {
		candidates = append(candidates, t.From, t.To)
	}
	candidates = append(candidates, req.DestinationWallet)
	result.MixerMatches = o.mixers.Matches(candidates...)
	result.MixerInteractionDetected = len(result.MixerMatches) > 0

	result.VerifiedThreatCount = history.VerifiedReports
	result.SanctionCheckPassed = !history.IsBlacklisted
	result.VerificationTimestamp = o.now().UTC()
	result.Status = entities.StatusCompleted
	if len(result.Degraded) > 0 {
		result.Status = entities.StatusDegraded
	}
	if err := o.certify(result); err != nil {
		return nil, err
	}

	if req.PersistAudit {
		o.persist(ctx, result)
	}

	metrics.VerificationsTotal.WithLabelValues(string(result.Status)).Inc()
	o.logger.InfoContext(ctx, "Hybrid verification completed",
		"verification_id", result.VerificationID,
		"certificate_id", result.CertificateID,
		"wallet", result.WalletAddress,
		"network", result.Network,
		"risk_level", result.AIInsight.RiskLevel,
		"mixer_detected", result.MixerInteractionDetected,
		"status", result.Status)

	return result, nil
}

func (o *Orchestrator) validate(req *entities.HybridVerificationRequest) error {
	if !shared.IsWalletAddress(req.WalletAddress) {
		return shared.NewValidationError("walletAddress", "invalid wallet address", "عنوان المحفظة غير صالح")
	}
	req.WalletAddress = shared.NormalizeAddress(req.WalletAddress)

	if req.DestinationWallet != "" {
		if !shared.IsWalletAddress(req.DestinationWallet) {
			return shared.NewValidationError("destinationWallet", "invalid destination wallet address", "عنوان محفظة الوجهة غير صالح")
		}
		req.DestinationWallet = shared.NormalizeAddress(req.DestinationWallet)
	}

	if req.Network == "" {
		req.Network = ports.NetworkEthereum
	}
	req.Network = strings.ToLower(req.Network)
	if !ports.IsSupportedNetwork(req.Network) {
		return shared.NewValidationError("network",
			fmt.Sprintf("unsupported network %q", req.Network),
			"الشبكة غير مدعومة")
	}

	if !(req.TransactionAmountAED >= o.minAmountAED) {
		return shared.NewValidationError("transactionAmountAED",
			fmt.Sprintf("hybrid verification requires a transaction of at least %.0f AED", o.minAmountAED),
			fmt.Sprintf("يتطلب التحقق الهجين معاملة لا تقل عن %.0f درهم", o.minAmountAED))
	}

	if req.AssetType == "" {
		req.AssetType = defaultAssetType
	}

	if req.SimulationScenario != "" {
		if !o.simulationEnabled {
			return shared.NewValidationError("simulationScenario", "simulation is disabled", "المحاكاة معطلة")
		}
		if req.SimulationScenario != entities.SimulationHighRisk {
			return shared.NewValidationError("simulationScenario",
				fmt.Sprintf("unknown simulation scenario %q", req.SimulationScenario),
				"سيناريو المحاكاة غير معروف")
		}
	}

	return nil
}

// fetch gathers on-chain facts and threat history concurrently.
func (o *Orchestrator) fetch(ctx context.Context, req entities.HybridVerificationRequest, result *entities.HybridVerificationResult) (*entities.ThreatHistory, error) {
	var (
		facts    *entities.OnChainFacts
		threatOK bool
	)
	history := &entities.ThreatHistory{Address: req.WalletAddress}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := o.gatherer.Gather(gctx, req.WalletAddress, req.Network, o.transferLimit)
		if err != nil {
			return fmt.Errorf("failed to gather on-chain facts: %w", err)
		}
		facts = f
		return nil
	})

	g.Go(func() error {
		h, err := o.threats.Lookup(gctx, req.WalletAddress)
		if err != nil {
			o.logger.WarnContext(ctx, "Threat history lookup failed, continuing without it",
				"wallet", req.WalletAddress,
				"error", err)
			return nil
		}
		history = h
		threatOK = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.OnChainFacts = facts
	result.Degraded = append(result.Degraded, facts.Degraded...)

	chainStatus := sourceOK
	if len(facts.Degraded) > 0 {
		chainStatus = sourceDegraded
	}
	result.Sources = append(result.Sources, entities.ProvenanceSource{Name: "alchemy", Kind: "blockchain", Status: chainStatus})

	threatStatus := sourceOK
	if !threatOK {
		threatStatus = sourceDegraded
		result.Degraded = append(result.Degraded, degradedThreatHistory)
	}
	result.Sources = append(result.Sources, entities.ProvenanceSource{Name: "report-store", Kind: "threat-store", Status: threatStatus})

	return history, nil
}

// enrich never fails: any provider problem yields the safe default insight.
func (o *Orchestrator) enrich(ctx context.Context, result *entities.HybridVerificationResult) entities.AIInsight {
	fallback := func(reason string, err error) entities.AIInsight {
		metrics.AIInsightsTotal.WithLabelValues(reason).Inc()
		o.logger.WarnContext(ctx, "AI insight unavailable, using safe default",
			"wallet", result.WalletAddress,
			"reason", reason,
			"error", err)
		result.Degraded = append(result.Degraded, degradedAIInsight)
		result.Sources = append(result.Sources, entities.ProvenanceSource{Name: "ai", Kind: "ai", Status: sourceDegraded})
		return ai.SafeDefaultInsight()
	}

	if o.insights == nil || !o.insights.IsEnabled() {
		return fallback("disabled", nil)
	}

	aiCtx, cancel := context.WithTimeout(ctx, o.aiTimeout)
	defer cancel()

	insight, err := o.insights.Insight(aiCtx, result.OnChainFacts, result.TransactionAmountAED)
	if err != nil {
		return fallback("fallback", err)
	}

	metrics.AIInsightsTotal.WithLabelValues("ok").Inc()
	result.Sources = append(result.Sources, entities.ProvenanceSource{Name: "ai", Kind: "ai", Status: sourceOK})
	return *insight
}

// certify assigns a fresh verification id and certificate id.
func (o *Orchestrator) certify(result *entities.HybridVerificationResult) error {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(o.random, buf); err != nil {
		return fmt.Errorf("failed to generate certificate id: %w", err)
	}

	if result.VerificationTimestamp.IsZero() {
		result.VerificationTimestamp = o.now().UTC()
	}
	result.VerificationID = uuid.NewString()
	result.CertificateID = fmt.Sprintf("SV-%04d-%s-UAE", result.VerificationTimestamp.Year(), strings.ToUpper(hex.EncodeToString(buf)))
	return nil
}

// persist writes an audit record and logs, never returns, any failure.
func (o *Orchestrator) persist(ctx context.Context, result *entities.HybridVerificationResult) {
	if o.auditor == nil || !o.auditor.Configured() {
		o.logger.WarnContext(ctx, "Audit persistence requested but audit vault is not configured",
			"verification_id", result.VerificationID)
		return
	}

	data := entities.AuditLogData{
		WalletAddress:       result.WalletAddress,
		TransactionValueAED: result.TransactionAmountAED,
		RiskScore:           result.AIInsight.RiskScore,
		RiskLevel:           result.AIInsight.RiskLevel,
		AnalysisDetails: map[string]any{
			"verificationId":           result.VerificationID,
			"certificateId":            result.CertificateID,
			"verdict":                  result.AIInsight.Verdict,
			"fraudPatterns":            result.AIInsight.FraudPatterns,
			"mixerInteractionDetected": result.MixerInteractionDetected,
			"sanctionCheckPassed":      result.SanctionCheckPassed,
			"verifiedThreatCount":      result.VerifiedThreatCount,
			"status":                   string(result.Status),
		},
		BlockchainData: map[string]any{
			"network":          result.Network,
			"balanceEther":     result.OnChainFacts.Balance.Ether,
			"transactionCount": result.OnChainFacts.TransactionCount,
			"walletAgeDays":    result.OnChainFacts.WalletAgeDays,
			"isContract":       result.OnChainFacts.IsContract,
		},
		Timestamp: result.VerificationTimestamp,
	}

	receipt, err := o.auditor.Log(ctx, data)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to persist hybrid verification audit record",
			"verification_id", result.VerificationID,
			"error", err)
		return
	}
	result.AuditTransactionHash = receipt.TransactionHash
}
