package ports

import (
	"slices"
	"time"
)

const (
	HybridMinAmountAED      = 10000           // Minimum transaction value for hybrid verification
	AuditMinAmountAED       = 50000           // Minimum transaction value accepted by the audit log endpoint
	DefaultTransferLimit    = 10              // Recent transfers kept in a plain facts snapshot
	HybridTransferLimit     = 20              // Recent transfers collected for hybrid verification
	DefaultAIInsightTimeout = 8 * time.Second // Upper bound for one chat-completion call
	BalanceFractionDigits   = 6
)

// Supported EVM networks.
const (
	NetworkEthereum = "ethereum"
	NetworkPolygon  = "polygon"
	NetworkArbitrum = "arbitrum"
	NetworkOptimism = "optimism"
	NetworkBase     = "base"
)

var SupportedNetworks = []string{NetworkEthereum, NetworkPolygon, NetworkArbitrum, NetworkOptimism, NetworkBase}

func IsSupportedNetwork(network string) bool {
	return slices.Contains(SupportedNetworks, network)
}
