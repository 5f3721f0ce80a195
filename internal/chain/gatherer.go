package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const weiDecimals = 18

// Gatherer builds OnChainFacts from a Provider. Individual call failures never
// abort a snapshot: the affected sub-fact keeps a safe default and is listed in Degraded.
type Gatherer struct {
	logger      *slog.Logger
	provider    Provider
	callTimeout time.Duration
	now         func() time.Time
}

type GathererOption func(*Gatherer)

// CallTimeout bounds every individual provider call.
func CallTimeout(d time.Duration) GathererOption {
	return func(g *Gatherer) {
		g.callTimeout = d
	}
}

// WithClock replaces time.Now for wallet age computation.
func WithClock(now func() time.Time) GathererOption {
	return func(g *Gatherer) {
		g.now = now
	}
}

func NewGatherer(logger *slog.Logger, provider Provider, opts ...GathererOption) *Gatherer {
	g := &Gatherer{
		logger:      logger,
		provider:    provider,
		callTimeout: 10 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gatherer) Configured() bool {
	return g.provider != nil && g.provider.IsEnabled()
}

// Gather fetches balance, nonce, recent transfers, contract code and wallet age concurrently.
func (g *Gatherer) Gather(ctx context.Context, address, network string, limit int) (*entities.OnChainFacts, error) {
	if !shared.IsWalletAddress(address) {
		return nil, shared.NewValidationError("address", "invalid wallet address", "عنوان المحفظة غير صالح")
	}
	if !ports.IsSupportedNetwork(network) {
		return nil, shared.NewValidationError("network", fmt.Sprintf("unsupported network %q", network), "الشبكة غير مدعومة")
	}
	if !g.Configured() {
		return nil, fmt.Errorf("blockchain provider: %w", shared.ErrNotConfigured)
	}
	if limit <= 0 {
		limit = ports.DefaultTransferLimit
	}

	address = shared.NormalizeAddress(address)
	facts := &entities.OnChainFacts{
		Address:            address,
		Network:            network,
		Balance:            entities.Balance{Wei: "0", Ether: FormatEther(big.NewInt(0))},
		RecentTransactions: []entities.Transfer{},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outgoing []entities.Transfer
		incoming []entities.Transfer
	)

	degrade := func(fact string, err error) {
		g.logger.WarnContext(ctx, "On-chain sub-fact unavailable",
			"fact", fact,
			"address", address,
			"network", network,
			"error", err)
		mu.Lock()
		facts.Degraded = append(facts.Degraded, fact)
		mu.Unlock()
	}

	run := func(task func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
			defer cancel()
			task(callCtx)
		}()
	}

	run(func(ctx context.Context) {
		wei, err := g.provider.Balance(ctx, network, address)
		if err != nil {
			degrade(entities.FactBalance, err)
			return
		}
		facts.Balance = entities.Balance{Wei: wei.String(), Ether: FormatEther(wei)}
	})

	run(func(ctx context.Context) {
		nonce, err := g.provider.Nonce(ctx, network, address)
		if err != nil {
			degrade(entities.FactTransactionCount, err)
			return
		}
		facts.TransactionCount = nonce
	})

	run(func(ctx context.Context) {
		transfers, err := g.provider.Transfers(ctx, network, TransferQuery{Address: address, Direction: Outgoing, MaxCount: limit})
		if err != nil {
			degrade(entities.FactOutgoing, err)
			return
		}
		outgoing = transfers
	})

	run(func(ctx context.Context) {
		transfers, err := g.provider.Transfers(ctx, network, TransferQuery{Address: address, Direction: Incoming, MaxCount: limit})
		if err != nil {
			degrade(entities.FactIncoming, err)
			return
		}
		incoming = transfers
	})

	run(func(ctx context.Context) {
		code, err := g.provider.Code(ctx, network, address)
		if err != nil {
			degrade(entities.FactContractCode, err)
			return
		}
		if len(code) == 0 {
			return
		}
		facts.IsContract = true

		info, err := g.provider.ContractInfo(ctx, network, address)
		if err != nil {
			degrade(entities.FactContractMetadata, err)
			return
		}
		facts.Contract = info
	})

	run(func(ctx context.Context) {
		age, err := g.walletAge(ctx, network, address)
		if err != nil {
			degrade(entities.FactWalletAge, err)
			return
		}
		facts.WalletAgeDays = age
	})

	wg.Wait()

	facts.RecentTransactions = MergeTransfers(outgoing, incoming, limit)
	sort.Strings(facts.Degraded)

	g.logger.DebugContext(ctx, "On-chain facts gathered",
		"address", address,
		"network", network,
		"transfers", len(facts.RecentTransactions),
		"wallet_age_days", facts.WalletAgeDays,
		"is_contract", facts.IsContract,
		"degraded", facts.Degraded)

	return facts, nil
}

// walletAge returns whole days since the first external inbound transfer, or 0 if there is none.
func (g *Gatherer) walletAge(ctx context.Context, network, address string) (int, error) {
	first, err := g.provider.Transfers(ctx, network, TransferQuery{
		Address:    address,
		Direction:  Incoming,
		Categories: []string{CategoryExternal},
		Ascending:  true,
		MaxCount:   1,
	})
	if err != nil {
		return 0, err
	}
	if len(first) == 0 {
		return 0, nil
	}

	ts, err := g.provider.BlockTime(ctx, network, first[0].BlockNumber)
	if err != nil {
		return 0, err
	}

	days := int(g.now().Sub(ts) / (24 * time.Hour))
	return max(days, 0), nil
}

// MergeTransfers combines both directions, drops self-transfers reported by both, orders by block
// number descending and keeps at most limit entries.
func MergeTransfers(outgoing, incoming []entities.Transfer, limit int) []entities.Transfer {
	merged := make([]entities.Transfer, 0, len(outgoing)+len(incoming))
	merged = append(merged, outgoing...)

	// Only a transfer reported by both queries (a self-transfer) is a duplicate.
	pending := make(map[string]int, len(outgoing))
	for _, t := range outgoing {
		pending[transferKey(t)]++
	}
	for _, t := range incoming {
		key := transferKey(t)
		if pending[key] > 0 {
			pending[key]--
			continue
		}
		merged = append(merged, t)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].BlockNumber > merged[j].BlockNumber
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func transferKey(t entities.Transfer) string {
	if t.UniqueID != "" {
		return t.UniqueID
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%g", t.Hash, t.From, t.To, t.Asset, t.Category, t.Value)
}

// FormatEther renders wei as ether with a fixed 6 fraction digits.
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -weiDecimals).StringFixed(ports.BalanceFractionDigits)
}
