// Package risk implements the deterministic wallet risk score.
package risk

import (
	"fmt"
	"math"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const (
	historyWeight     = 0.4
	associationWeight = 0.6
	maxScore          = 100
	maxConfidence     = 90
	contractBonus     = 20

	DangerThreshold     = 70
	SuspiciousThreshold = 40
)

type band struct {
	level          entities.RiskLevel
	label          entities.LocalizedText
	recommendation entities.LocalizedText
}

var (
	dangerBand = band{
		level: entities.RiskLevelDanger,
		label: entities.LocalizedText{En: "Danger", Ar: "خطر"},
		recommendation: entities.LocalizedText{
			En: "High fraud risk detected. Do not send funds to this wallet.",
			Ar: "تم رصد مخاطر احتيال عالية. لا ترسل أي أموال إلى هذه المحفظة.",
		},
	}
	suspiciousBand = band{
		level: entities.RiskLevelSuspicious,
		label: entities.LocalizedText{En: "Suspicious", Ar: "مشبوه"},
		recommendation: entities.LocalizedText{
			En: "Proceed with caution. Verify the recipient through an independent channel before sending funds.",
			Ar: "توخَّ الحذر. تحقق من المستلم عبر قناة مستقلة قبل إرسال الأموال.",
		},
	}
	safeBand = band{
		level: entities.RiskLevelSafe,
		label: entities.LocalizedText{En: "Safe", Ar: "آمن"},
		recommendation: entities.LocalizedText{
			En: "No significant risk indicators found. Standard precautions still apply.",
			Ar: "لم يتم العثور على مؤشرات خطر كبيرة. تظل الاحتياطات المعتادة سارية.",
		},
	}
)

// Scorer is a stateless ports.RiskScorer.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Score(input entities.RiskInput) entities.RiskOutput {
	return Score(input)
}

// Score computes the bounded risk score of input. It performs no I/O and
// always returns the same output for the same input.
func Score(input entities.RiskInput) entities.RiskOutput {
	history := HistoryScore(input.TransactionCount, input.WalletAgeDays)
	association := AssociationScore(input.BlacklistAssociations, input.IsDirectlyBlacklisted, input.IsSmartContract != nil && *input.IsSmartContract)

	ageDays := max(input.WalletAgeDays, 1)
	factor := math.Sqrt(float64(ageDays))

	historyPart := float64(history) * historyWeight
	associationPart := float64(association) * associationWeight / factor
	score := shared.Clamp(int(math.Round(historyPart+associationPart)), 0, maxScore)

	b := classify(score)

	return entities.RiskOutput{
		RiskScore:        score,
		RiskLevel:        b.level,
		RiskLabel:        b.label,
		HistoryScore:     history,
		AssociationScore: association,
		WalletAgeFactor:  factor,
		Recommendation:   b.recommendation,
		Confidence:       Confidence(input.WalletAgeDays, input.TransactionCount),
		Formula: fmt.Sprintf(
			"riskScore = round(%d * %.1f + (%d * %.1f) / sqrt(%d)) = round(%.2f + %.2f) = %d",
			history, historyWeight, association, associationWeight, ageDays, historyPart, associationPart, score,
		),
	}
}

// HistoryScore rates activity: fewer transactions and a younger wallet mean more risk.
func HistoryScore(transactionCount, walletAgeDays int) int {
	var score int
	switch {
	case transactionCount < 5:
		score = 100
	case transactionCount < 20:
		score = 70
	case transactionCount < 50:
		score = 40
	case transactionCount < 100:
		score = 20
	default:
		score = 10
	}

	switch {
	case walletAgeDays < 30:
		score += 30
	case walletAgeDays < 90:
		score += 15
	case walletAgeDays < 180:
		score += 5
	}

	return min(score, maxScore)
}

// AssociationScore rates links to reported fraud.
func AssociationScore(associations int, directlyBlacklisted, smartContract bool) int {
	var score int
	switch {
	case directlyBlacklisted:
		score = 100
	case associations >= 3:
		score = 90
	case associations == 2:
		score = 70
	case associations == 1:
		score = 40
	}

	if smartContract && associations > 0 {
		score += contractBonus
	}

	return min(score, maxScore)
}

// Confidence grows with wallet age and activity, capped at 90.
func Confidence(walletAgeDays, transactionCount int) int {
	c := 50 + float64(walletAgeDays)/10 + float64(transactionCount)/5
	return min(maxConfidence, int(math.Round(c)))
}

// Classify maps a score to its risk level.
func Classify(score int) entities.RiskLevel {
	return classify(score).level
}

func classify(score int) band {
	switch {
	case score >= DangerThreshold:
		return dangerBand
	case score >= SuspiciousThreshold:
		return suspiciousBand
	default:
		return safeBand
	}
}
