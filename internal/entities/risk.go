package entities

// RiskLevel is the classification band of a risk score.
type RiskLevel string

const (
	RiskLevelSafe       RiskLevel = "safe"
	RiskLevelSuspicious RiskLevel = "suspicious"
	RiskLevelDanger     RiskLevel = "danger"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelSafe, RiskLevelSuspicious, RiskLevelDanger:
		return true
	}
	return false
}

// LocalizedText carries the same message in English and Arabic.
type LocalizedText struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// RiskInput holds the signals scored for a single address.
type RiskInput struct {
	Address               string   `json:"address"`
	WalletAgeDays         int      `json:"walletAgeDays"`
	TransactionCount      int      `json:"transactionCount"`
	BlacklistAssociations int      `json:"blacklistAssociations"`
	IsDirectlyBlacklisted bool     `json:"isDirectlyBlacklisted"`
	TransactionValue      *float64 `json:"transactionValue,omitempty"`
	IsSmartContract       *bool    `json:"isSmartContract,omitempty"`
}

// RiskOutput is the explainable result of scoring a RiskInput.
type RiskOutput struct {
	RiskScore        int           `json:"riskScore"`
	RiskLevel        RiskLevel     `json:"riskLevel"`
	RiskLabel        LocalizedText `json:"riskLabel"`
	HistoryScore     int           `json:"historyScore"`
	AssociationScore int           `json:"associationScore"`
	WalletAgeFactor  float64       `json:"walletAgeFactor"`
	Recommendation   LocalizedText `json:"recommendation"`
	Confidence       int           `json:"confidence"`
	Formula          string        `json:"formula"`
}
