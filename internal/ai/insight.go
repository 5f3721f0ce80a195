// Package ai requests a qualitative risk assessment from an OpenAI-compatible chat-completion API.
package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

// SafeDefaultInsight is used whenever the provider is disabled, unreachable or returns something unusable.
func SafeDefaultInsight() entities.AIInsight {
	return entities.AIInsight{
		RiskLevel:           entities.RiskLevelSafe,
		RiskScore:           0,
		FraudPatterns:       []string{},
		LiquidityRisk:       "unknown",
		LargeAmountAnalysis: "AI analysis unavailable.",
		Analysis:            "AI analysis unavailable. The assessment is based on on-chain data only.",
		AnalysisAr:          "تحليل الذكاء الاصطناعي غير متاح. يستند التقييم إلى بيانات السلسلة فقط.",
		Verdict:             "No AI verdict available.",
		VerdictAr:           "لا يتوفر حكم من الذكاء الاصطناعي.",
		Recommendation:      "Review the on-chain facts before proceeding.",
		RecommendationAr:    "راجع بيانات السلسلة قبل المتابعة.",
	}
}

// DecodeInsight parses a model reply into an AIInsight. Unknown fields, trailing data,
// an unknown riskLevel or a riskScore outside 0..100 are rejected.
func DecodeInsight(content string) (*entities.AIInsight, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, errors.New("empty insight content")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()

	var insight entities.AIInsight
	if err := dec.Decode(&insight); err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after insight object")
	}

	if !insight.RiskLevel.Valid() {
		return nil, fmt.Errorf("invalid riskLevel %q", insight.RiskLevel)
	}
	if insight.RiskScore < 0 || insight.RiskScore > 100 {
		return nil, fmt.Errorf("riskScore %d out of range", insight.RiskScore)
	}
	if insight.Analysis == "" || insight.Verdict == "" {
		return nil, errors.New("insight is missing analysis or verdict")
	}
	if insight.FraudPatterns == nil {
		insight.FraudPatterns = []string{}
	}

	return &insight, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
