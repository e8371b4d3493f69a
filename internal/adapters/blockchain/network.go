package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type forkingParams struct {
	JSONRPCURL string `json:"jsonRpcUrl"`
	// hardhat rejects hex strings here, anvil accepts both
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

type resetParams struct {
	Forking *forkingParams `json:"forking,omitempty"`
}

// method returns the dialect-specific name of a node control method
func (c *Client) method(name string) string {
	return fmt.Sprintf("%s_%s", c.dialect, name)
}

// Impersonate lets the node sign for addr without its key
func (c *Client) Impersonate(ctx context.Context, addr common.Address) error {
	if err := c.rpc.CallContext(ctx, nil, c.method("impersonateAccount"), addr); err != nil {
		return fmt.Errorf("failed to impersonate %s: %w", addr.Hex(), err)
	}
	c.log.Debug("impersonating account", "address", addr.Hex())
	return nil
}

// StopImpersonating ends impersonation of addr
func (c *Client) StopImpersonating(ctx context.Context, addr common.Address) error {
	if err := c.rpc.CallContext(ctx, nil, c.method("stopImpersonatingAccount"), addr); err != nil {
		return fmt.Errorf("failed to stop impersonating %s: %w", addr.Hex(), err)
	}
	c.log.Debug("stopped impersonating account", "address", addr.Hex())
	return nil
}

// Reset discards local chain state and optionally re-forks from forkURL
func (c *Client) Reset(ctx context.Context, forkURL string, block uint64) error {
	var args []interface{}
	if forkURL != "" {
		args = append(args, resetParams{Forking: &forkingParams{JSONRPCURL: forkURL, BlockNumber: block}})
	}

	if err := c.rpc.CallContext(ctx, nil, c.method("reset"), args...); err != nil {
		return fmt.Errorf("failed to reset network: %w", err)
	}
	c.log.Debug("network reset", "forkUrl", forkURL, "block", block)
	return nil
}

// Snapshot takes an EVM snapshot and returns its id
func (c *Client) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := c.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("failed to take snapshot: %w", err)
	}
	return id, nil
}

// Revert restores the EVM state captured by snapshot id
func (c *Client) Revert(ctx context.Context, id string) error {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("failed to revert snapshot %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("snapshot %s not found or already reverted", id)
	}
	return nil
}
