package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/metrics"
)

var alchemyHosts = map[string]string{
	ports.NetworkEthereum: "eth-mainnet",
	ports.NetworkPolygon:  "polygon-mainnet",
	ports.NetworkArbitrum: "arb-mainnet",
	ports.NetworkOptimism: "opt-mainnet",
	ports.NetworkBase:     "base-mainnet",
}

// AlchemyProvider talks JSON-RPC (standard eth_* plus alchemy_getAssetTransfers)
// and the NFT REST API for contract metadata.
type AlchemyProvider struct {
	logger     *slog.Logger
	apiKey     string
	overrides  map[string]string
	httpClient *http.Client
	isEnabled  bool

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewAlchemyProvider creates a provider. overrides maps a network name to a full
// RPC URL ending in /v2/<key> and takes precedence over the hosted endpoint.
func NewAlchemyProvider(logger *slog.Logger, apiKey string, overrides map[string]string, timeout time.Duration) *AlchemyProvider {
	isEnabled := apiKey != "" || len(overrides) > 0

	if !isEnabled {
		logger.Warn("Blockchain provider is disabled due to missing credentials")
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &AlchemyProvider{
		logger:     logger,
		apiKey:     apiKey,
		overrides:  overrides,
		httpClient: &http.Client{Timeout: timeout},
		isEnabled:  isEnabled,
		clients:    make(map[string]*rpc.Client),
	}
}

func (p *AlchemyProvider) IsEnabled() bool {
	return p.isEnabled
}

func (p *AlchemyProvider) endpoint(network string) (string, error) {
	if u, ok := p.overrides[network]; ok && u != "" {
		return u, nil
	}
	host, ok := alchemyHosts[network]
	if !ok {
		return "", fmt.Errorf("unsupported network %q", network)
	}
	if p.apiKey == "" {
		return "", fmt.Errorf("no endpoint configured for network %q", network)
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", host, p.apiKey), nil
}

func (p *AlchemyProvider) rpcClient(network string) (*rpc.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[network]; ok {
		return c, nil
	}

	endpoint, err := p.endpoint(network)
	if err != nil {
		return nil, err
	}

	c, err := rpc.DialHTTPWithClient(endpoint, p.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s RPC: %w", network, err)
	}
	p.clients[network] = c

	return c, nil
}

func (p *AlchemyProvider) ethClient(network string) (*ethclient.Client, error) {
	c, err := p.rpcClient(network)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(c), nil
}

func (p *AlchemyProvider) Balance(ctx context.Context, network, address string) (balance *big.Int, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("balance", network, start, err) }(time.Now())

	client, err := p.ethClient(network)
	if err != nil {
		return nil, err
	}

	balance, err = client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (p *AlchemyProvider) Code(ctx context.Context, network, address string) (code []byte, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("code", network, start, err) }(time.Now())

	client, err := p.ethClient(network)
	if err != nil {
		return nil, err
	}

	code, err = client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}
	return code, nil
}

func (p *AlchemyProvider) Nonce(ctx context.Context, network, address string) (nonce uint64, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("nonce", network, start, err) }(time.Now())

	client, err := p.ethClient(network)
	if err != nil {
		return 0, err
	}

	nonce, err = client.NonceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction count: %w", err)
	}
	return nonce, nil
}

type assetTransfersParams struct {
	FromBlock        string   `json:"fromBlock"`
	ToBlock          string   `json:"toBlock"`
	FromAddress      string   `json:"fromAddress,omitempty"`
	ToAddress        string   `json:"toAddress,omitempty"`
	Category         []string `json:"category"`
	Order            string   `json:"order"`
	MaxCount         string   `json:"maxCount"`
	ExcludeZeroValue bool     `json:"excludeZeroValue"`
}

type assetTransfer struct {
	UniqueID string         `json:"uniqueId"`
	BlockNum hexutil.Uint64 `json:"blockNum"`
	Hash     string         `json:"hash"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Value    float64        `json:"value"`
	Asset    string         `json:"asset"`
	Category string         `json:"category"`
}

type assetTransfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
}

func (p *AlchemyProvider) Transfers(ctx context.Context, network string, q TransferQuery) (transfers []entities.Transfer, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("transfers_"+q.Direction.String(), network, start, err) }(time.Now())

	client, err := p.rpcClient(network)
	if err != nil {
		return nil, err
	}

	params := assetTransfersParams{
		FromBlock:        "0x0",
		ToBlock:          "latest",
		Category:         q.Categories,
		Order:            "desc",
		MaxCount:         hexutil.EncodeUint64(uint64(max(q.MaxCount, 1))),
		ExcludeZeroValue: true,
	}
	if len(params.Category) == 0 {
		params.Category = AllCategories
	}
	if q.Ascending {
		// wallet age counts the earliest transfer even without value
		params.Order = "asc"
		params.ExcludeZeroValue = false
	}
	if q.Direction == Incoming {
		params.ToAddress = q.Address
	} else {
		params.FromAddress = q.Address
	}

	var result assetTransfersResult
	if err = client.CallContext(ctx, &result, "alchemy_getAssetTransfers", params); err != nil {
		return nil, fmt.Errorf("failed to get %s transfers: %w", q.Direction, err)
	}

	transfers = make([]entities.Transfer, 0, len(result.Transfers))
	for _, t := range result.Transfers {
		transfers = append(transfers, entities.Transfer{
			UniqueID:    t.UniqueID,
			Hash:        t.Hash,
			From:        t.From,
			To:          t.To,
			Value:       t.Value,
			Asset:       t.Asset,
			Category:    t.Category,
			BlockNumber: uint64(t.BlockNum),
		})
	}
	return transfers, nil
}

func (p *AlchemyProvider) BlockTime(ctx context.Context, network string, block uint64) (ts time.Time, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("block_time", network, start, err) }(time.Now())

	client, err := p.rpcClient(network)
	if err != nil {
		return time.Time{}, err
	}

	var head *struct {
		Timestamp hexutil.Uint64 `json:"timestamp"`
	}
	if err = client.CallContext(ctx, &head, "eth_getBlockByNumber", hexutil.EncodeUint64(block), false); err != nil {
		return time.Time{}, fmt.Errorf("failed to get block %d: %w", block, err)
	}
	if head == nil {
		err = fmt.Errorf("block %d not found", block)
		return time.Time{}, err
	}

	return time.Unix(int64(head.Timestamp), 0).UTC(), nil
}

type contractMetadata struct {
	ContractDeployer    string `json:"contractDeployer"`
	DeployedBlockNumber uint64 `json:"deployedBlockNumber"`
}

func (p *AlchemyProvider) ContractInfo(ctx context.Context, network, address string) (info *entities.ContractInfo, err error) {
	defer func(start time.Time) { metrics.ObserveProviderCall("contract_metadata", network, start, err) }(time.Now())

	endpoint, err := p.endpoint(network)
	if err != nil {
		return nil, err
	}
	base := strings.Replace(endpoint, "/v2/", "/nft/v3/", 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getContractMetadata?contractAddress=%s", base, url.QueryEscape(address)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send contract metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("contract metadata request returned status %d", resp.StatusCode)
		return nil, err
	}

	var meta contractMetadata
	if err = json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode contract metadata: %w", err)
	}
	if meta.ContractDeployer == "" {
		err = fmt.Errorf("contract metadata has no deployer")
		return nil, err
	}

	return &entities.ContractInfo{
		Deployer:    strings.ToLower(meta.ContractDeployer),
		DeployBlock: meta.DeployedBlockNumber,
	}, nil
}

// Close releases all dialled RPC clients.
func (p *AlchemyProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for network, c := range p.clients {
		c.Close()
		delete(p.clients, network)
	}
}
