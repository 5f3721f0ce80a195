package handlers

import (
	"math"
	"net/http"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

type riskCalculationResponse struct {
	entities.RiskOutput
	VerifiedThreatCount int  `json:"verifiedThreatCount"`
	IsBlacklisted       bool `json:"isBlacklisted"`
}

// CalculateRisk scores the submitted signals after adding live report counts for the address.
func (h *HTTPHandler) CalculateRisk(w http.ResponseWriter, r *http.Request) {
	var input entities.RiskInput
	if err := h.decode(w, r, &input); err != nil {
		h.writeError(w, r, invalidBody(err))
		return
	}
	if err := validateRiskInput(&input); err != nil {
		h.writeError(w, r, err)
		return
	}

	var history entities.ThreatHistory
	if found, err := h.threats.Lookup(r.Context(), input.Address); err != nil {
		h.logger.WarnContext(r.Context(), "Threat history lookup failed, scoring without it",
			"address", input.Address,
			"error", err)
	} else {
		history = *found
	}

	input.BlacklistAssociations = addAssociations(input.BlacklistAssociations, history.VerifiedReports)
	input.IsDirectlyBlacklisted = input.IsDirectlyBlacklisted || history.IsBlacklisted

	out := h.scorer.Score(input)
	metrics.RiskCalculationsTotal.WithLabelValues(string(out.RiskLevel)).Inc()

	h.logger.InfoContext(r.Context(), "Risk calculated",
		"address", input.Address,
		"risk_score", out.RiskScore,
		"risk_level", out.RiskLevel,
		"verified_reports", history.VerifiedReports)

	h.writeJSON(w, http.StatusOK, riskCalculationResponse{
		RiskOutput:          out,
		VerifiedThreatCount: history.VerifiedReports,
		IsBlacklisted:       history.IsBlacklisted,
	})
}

func validateRiskInput(input *entities.RiskInput) error {
	if !shared.IsWalletAddress(input.Address) {
		return shared.NewValidationError("address", "invalid wallet address", "عنوان المحفظة غير صالح")
	}
	input.Address = shared.NormalizeAddress(input.Address)

	if input.WalletAgeDays < 1 {
		return shared.NewValidationError("walletAgeDays", "walletAgeDays must be at least 1", "يجب ألا يقل عمر المحفظة عن يوم واحد")
	}
	if input.TransactionCount < 0 {
		return shared.NewValidationError("transactionCount", "transactionCount must not be negative", "يجب ألا يكون عدد المعاملات سالبًا")
	}
	if input.BlacklistAssociations < 0 {
		return shared.NewValidationError("blacklistAssociations", "blacklistAssociations must not be negative", "يجب ألا يكون عدد الارتباطات سالبًا")
	}
	if input.TransactionValue != nil && *input.TransactionValue < 0 {
		return shared.NewValidationError("transactionValue", "transactionValue must not be negative", "يجب ألا تكون قيمة المعاملة سالبة")
	}
	return nil
}

// addAssociations sums two non-negative counts, saturating at math.MaxInt.
func addAssociations(declared, verified int) int {
	if verified > math.MaxInt-declared {
		return math.MaxInt
	}
	return declared + verified
}
