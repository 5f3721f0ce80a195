// Package chain gathers on-chain facts about EVM addresses from an external data provider.
package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Transfer categories understood by the provider.
const (
	CategoryExternal = "external"
	CategoryERC20    = "erc20"
	CategoryERC721   = "erc721"
	CategoryERC1155  = "erc1155"
)

var AllCategories = []string{CategoryExternal, CategoryERC20, CategoryERC721, CategoryERC1155}

// TransferQuery selects transfers sent from (Outgoing) or to (Incoming) Address.
type TransferQuery struct {
	Address    string
	Direction  Direction
	Categories []string
	Ascending  bool
	MaxCount   int
}

// Provider is the external blockchain data source keyed by network name.
type Provider interface {
	IsEnabled() bool
	Balance(ctx context.Context, network, address string) (*big.Int, error)
	Code(ctx context.Context, network, address string) ([]byte, error)
	Nonce(ctx context.Context, network, address string) (uint64, error)
	Transfers(ctx context.Context, network string, q TransferQuery) ([]entities.Transfer, error)
	BlockTime(ctx context.Context, network string, block uint64) (time.Time, error)
	ContractInfo(ctx context.Context, network, address string) (*entities.ContractInfo, error)
}
