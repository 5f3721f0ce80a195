package entities

import "time"

// AuditLogData is the plaintext compliance record sealed by the audit vault.
// AnalysisDetails and BlockchainData come back from decryption as generic JSON
// values: numbers are float64 and nested objects are map[string]any, so two
// records are equal when their JSON encodings are.
type AuditLogData struct {
	WalletAddress       string         `json:"walletAddress"`
	TransactionValueAED float64        `json:"transactionValueAED"`
	RiskScore           int            `json:"riskScore"`
	RiskLevel           RiskLevel      `json:"riskLevel"`
	AnalysisDetails     map[string]any `json:"analysisDetails"`
	BlockchainData      map[string]any `json:"blockchainData,omitempty"`
	Timestamp           time.Time      `json:"timestamp"`
}

// EncryptedAuditLog is the stored, write-once form of an AuditLogData.
type EncryptedAuditLog struct {
	TransactionHash     string    `json:"transactionHash"`
	WalletAddress       string    `json:"walletAddress"`
	TransactionValueAED float64   `json:"transactionValueAED"`
	RiskScore           int       `json:"riskScore"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	EncryptedData       string    `json:"encryptedData"`
	EncryptionIV        string    `json:"encryptionIV"`
	DataHash            string    `json:"dataHash"`
	TimestampUTC        time.Time `json:"timestampUtc"`
}

// Summary drops the ciphertext and IV.
func (l EncryptedAuditLog) Summary() AuditLogSummary {
	return AuditLogSummary{
		TransactionHash:     l.TransactionHash,
		WalletAddress:       l.WalletAddress,
		TransactionValueAED: l.TransactionValueAED,
		RiskScore:           l.RiskScore,
		RiskLevel:           l.RiskLevel,
		DataHash:            l.DataHash,
		TimestampUTC:        l.TimestampUTC,
	}
}

// AuditLogSummary is the list form of an audit record.
type AuditLogSummary struct {
	TransactionHash     string    `json:"transactionHash"`
	WalletAddress       string    `json:"walletAddress"`
	TransactionValueAED float64   `json:"transactionValueAED"`
	RiskScore           int       `json:"riskScore"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	DataHash            string    `json:"dataHash"`
	TimestampUTC        time.Time `json:"timestampUtc"`
}

type AuditReceipt struct {
	TransactionHash string    `json:"transactionHash"`
	DataHash        string    `json:"dataHash"`
	Timestamp       time.Time `json:"timestamp"`
}
