package ai

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

const systemPrompt = `You are a crypto fraud analyst for a UAE compliance team.
Assess the risk of sending the proposed amount to the wallet described by the user.
Reply with a single JSON object and nothing else, using exactly these fields:
{"riskLevel":"safe|suspicious|danger","riskScore":0-100,"fraudPatterns":["..."],
"liquidityRisk":"low|medium|high","largeAmountAnalysis":"...","analysis":"...","analysisAr":"...",
"verdict":"...","verdictAr":"...","recommendation":"...","recommendationAr":"..."}
Fields ending in Ar are Arabic translations of the matching English field.`

const promptTransfers = 10

type promptFacts struct {
	Address          string              `json:"address"`
	Network          string              `json:"network"`
	BalanceEther     string              `json:"balanceEther"`
	TransactionCount uint64              `json:"transactionCount"`
	WalletAgeDays    int                 `json:"walletAgeDays"`
	IsContract       bool                `json:"isContract"`
	Unavailable      []string            `json:"unavailableFacts,omitempty"`
	Recent           []entities.Transfer `json:"recentTransfers"`
}

// BuildUserPrompt renders the facts and proposed amount as the user message.
func BuildUserPrompt(facts *entities.OnChainFacts, amountAED float64) (string, error) {
	pf := promptFacts{
		Address:          facts.Address,
		Network:          facts.Network,
		BalanceEther:     facts.Balance.Ether,
		TransactionCount: facts.TransactionCount,
		WalletAgeDays:    facts.WalletAgeDays,
		IsContract:       facts.IsContract,
		Unavailable:      facts.Degraded,
		Recent:           facts.RecentTransactions,
	}
	if len(pf.Recent) > promptTransfers {
		pf.Recent = pf.Recent[:promptTransfers]
	}

	raw, err := json.Marshal(pf)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt facts: %w", err)
	}

	return fmt.Sprintf("Proposed transfer: %s AED.\nOn-chain facts:\n%s",
		decimal.NewFromFloat(amountAED).StringFixed(2), raw), nil
}
