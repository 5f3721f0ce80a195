package entities

import "time"

// SimulationHighRisk is the only recognised simulation scenario.
const SimulationHighRisk = "high_risk"

type VerificationStatus string

const (
	StatusCompleted VerificationStatus = "completed"
	StatusDegraded  VerificationStatus = "degraded"
)

// HybridVerificationRequest is the input of a hybrid verification run.
// SimulationScenario selects a fixed demo response and never touches live data.
type HybridVerificationRequest struct {
	WalletAddress        string  `json:"walletAddress"`
	Network              string  `json:"network"`
	TransactionAmountAED float64 `json:"transactionAmountAED"`
	DestinationWallet    string  `json:"destinationWallet,omitempty"`
	AssetType            string  `json:"assetType,omitempty"`
	SimulationScenario   string  `json:"simulationScenario,omitempty"`
	PersistAudit         bool    `json:"persistAudit,omitempty"`
}

// ProvenanceSource names one collaborator that contributed to a result.
type ProvenanceSource struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

type HybridVerificationResult struct {
	VerificationID           string             `json:"verificationId"`
	CertificateID            string             `json:"certificateId"`
	WalletAddress            string             `json:"walletAddress"`
	DestinationWallet        string             `json:"destinationWallet,omitempty"`
	Network                  string             `json:"network"`
	AssetType                string             `json:"assetType"`
	TransactionAmountAED     float64            `json:"transactionAmountAED"`
	ThresholdMet             bool               `json:"thresholdMet"`
	OnChainFacts             *OnChainFacts      `json:"onChainFacts"`
	AIInsight                AIInsight          `json:"aiInsight"`
	VerifiedThreatCount      int                `json:"verifiedThreatCount"`
	SanctionCheckPassed      bool               `json:"sanctionCheckPassed"`
	MixerInteractionDetected bool               `json:"mixerInteractionDetected"`
	MixerMatches             []string           `json:"mixerMatches,omitempty"`
	VerificationTimestamp    time.Time          `json:"verificationTimestamp"`
	Sources                  []ProvenanceSource `json:"provenanceSources"`
	Status                   VerificationStatus `json:"status"`
	Degraded                 []string           `json:"degraded,omitempty"`
	Simulated                bool               `json:"simulated,omitempty"`
	AuditTransactionHash     string             `json:"auditTransactionHash,omitempty"`
}
