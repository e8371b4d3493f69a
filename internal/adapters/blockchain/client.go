package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// Client implements the Ledger and NetworkController ports over JSON-RPC
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	w3      *w3.Client
	dialect config.Dialect
	log     *slog.Logger

	// local signer, nil when the node signs
	key     *ecdsa.PrivateKey
	keyAddr common.Address

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient dials the configured network
func NewClient(cfg *config.RuntimeConfig, log *slog.Logger) (*Client, error) {
	if cfg.Network == nil || cfg.Network.RPCURL == "" {
		return nil, fmt.Errorf("no network configured: use --network or --rpc-url")
	}

	rpcClient, err := rpc.DialContext(context.Background(), cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", cfg.Network.RPCURL, err)
	}

	client := newClient(rpcClient, cfg.Network.Dialect, log)

	if cfg.Network.SenderKeyEnv != "" {
		if err := client.loadKey(cfg.Network.SenderKeyEnv); err != nil {
			rpcClient.Close()
			return nil, err
		}
	}

	return client, nil
}

func newClient(rpcClient *rpc.Client, dialect config.Dialect, log *slog.Logger) *Client {
	if dialect == "" {
		dialect = config.DialectHardhat
	}
	return &Client{
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
		w3:      w3.NewClient(rpcClient),
		dialect: dialect,
		log:     log,
	}
}

func (c *Client) loadKey(envVar string) error {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return fmt.Errorf("sender key environment variable %s is not set", envVar)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key in %s: %w", envVar, err)
	}

	c.key = key
	c.keyAddr = crypto.PubkeyToAddress(key.PublicKey)
	return nil
}

// Close releases the RPC connection
func (c *Client) Close() {
	c.rpc.Close()
}

// Accounts returns the local signer, if any, followed by the node's accounts
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	var nodeAccounts []common.Address
	if err := c.rpc.CallContext(ctx, &nodeAccounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	if c.key == nil {
		return nodeAccounts, nil
	}

	accounts := []common.Address{c.keyAddr}
	for _, addr := range nodeAccounts {
		if addr != c.keyAddr {
			accounts = append(accounts, addr)
		}
	}
	return accounts, nil
}

// ChainID returns the chain id, cached after the first successful call
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID == nil {
		chainID, err := c.eth.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain ID: %w", err)
		}
		c.chainID = chainID
	}
	return new(big.Int).Set(c.chainID), nil
}

// BlockNumber returns the current block height
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

// Balance returns the native balance of addr at the latest block
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := c.w3.CallCtx(ctx, eth.Balance(addr, nil).Returns(&balance)); err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}

// CodeAt returns the runtime code at addr
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", addr.Hex(), err)
	}
	return code, nil
}

// CallContract executes a read-only call at the latest block
func (c *Client) CallContract(ctx context.Context, msg domain.CallMsg) ([]byte, error) {
	to := msg.To
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		From: msg.From,
		To:   &to,
		Data: msg.Data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", msg.To.Hex(), err)
	}
	return out, nil
}

// sendTxArgs are the eth_sendTransaction arguments. Gas is left to the node.
type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// SendTransaction submits req. Transactions from the local signer are signed
// in-process, everything else is signed by the node.
func (c *Client) SendTransaction(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	if c.key != nil && req.From == c.keyAddr {
		return c.sendSigned(ctx, req)
	}

	args := sendTxArgs{
		From: req.From,
		To:   req.To,
		Data: req.Data,
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(req.Value)
	}

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction from %s: %w", req.From.Hex(), err)
	}

	c.log.Debug("transaction sent", "hash", hash.Hex(), "from", req.From.Hex(), "signer", "node")
	return hash, nil
}

func (c *Client) sendSigned(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	var nonce uint64
	if err := c.w3.CallCtx(ctx, eth.Nonce(req.From, nil).Returns(&nonce)); err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  req.From,
		To:    req.To,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas tip: %w", err)
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
	}

	feeCap := new(big.Int).Set(tipCap)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	//  EIP-1559 only
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        req.To,
		Value:     value,
		Data:      req.Data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var hash common.Hash
	if err := c.w3.CallCtx(ctx, eth.SendTx(signedTx).Returns(&hash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	if hash != signedTx.Hash() {
		return common.Hash{}, fmt.Errorf("node returned hash %s for transaction %s", hash.Hex(), signedTx.Hash().Hex())
	}

	c.log.Debug("transaction sent", "hash", signedTx.Hash().Hex(), "from", req.From.Hex(), "signer", "local")
	return signedTx.Hash(), nil
}

// WaitReceipt blocks until the transaction is mined or ctx is done
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.eth, hash)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// Ensure the adapter implements the interfaces
var (
	_ usecase.Ledger            = (*Client)(nil)
	_ usecase.NetworkController = (*Client)(nil)
)
