package entities

// Balance of an address in the smallest unit and in ether with 6 fraction digits.
type Balance struct {
	Wei   string `json:"wei"`
	Ether string `json:"ether"`
}

// Transfer is one asset transfer touching an address.
type Transfer struct {
	UniqueID    string  `json:"uniqueId,omitempty"`
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Value       float64 `json:"value"`
	Asset       string  `json:"asset"`
	Category    string  `json:"category"`
	BlockNumber uint64  `json:"blockNumber"`
}

// ContractInfo describes who deployed a contract address.
type ContractInfo struct {
	Deployer    string `json:"deployer"`
	DeployBlock uint64 `json:"deployBlock"`
}

// OnChainFacts is a per-call snapshot of an address on one network.
// Sub-facts that could not be fetched keep their zero value and are named in Degraded.
type OnChainFacts struct {
	Address            string        `json:"address"`
	Network            string        `json:"network"`
	Balance            Balance       `json:"balance"`
	TransactionCount   uint64        `json:"transactionCount"`
	RecentTransactions []Transfer    `json:"recentTransactions"`
	WalletAgeDays      int           `json:"walletAgeDays"`
	IsContract         bool          `json:"isContract"`
	Contract           *ContractInfo `json:"contract,omitempty"`
	Degraded           []string      `json:"degraded,omitempty"`
}

// Sub-fact names reported in OnChainFacts.Degraded.
const (
	FactBalance          = "balance"
	FactTransactionCount = "transactionCount"
	FactOutgoing         = "outgoingTransfers"
	FactIncoming         = "incomingTransfers"
	FactContractCode     = "contractCode"
	FactContractMetadata = "contractMetadata"
	FactWalletAge        = "walletAge"
)
