package entities

// AIInsight is the qualitative assessment returned by the chat-completion provider.
type AIInsight struct {
	RiskLevel           RiskLevel `json:"riskLevel"`
	RiskScore           int       `json:"riskScore"`
	FraudPatterns       []string  `json:"fraudPatterns"`
	LiquidityRisk       string    `json:"liquidityRisk"`
	LargeAmountAnalysis string    `json:"largeAmountAnalysis"`
	Analysis            string    `json:"analysis"`
	AnalysisAr          string    `json:"analysisAr"`
	Verdict             string    `json:"verdict"`
	VerdictAr           string    `json:"verdictAr"`
	Recommendation      string    `json:"recommendation"`
	RecommendationAr    string    `json:"recommendationAr"`
}
