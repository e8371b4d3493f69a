package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Ledger is the JSON-RPC surface of the node the orchestrator drives
type Ledger interface {
	// Accounts enumerates the signer accounts managed by the node or the process
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	CallContract(ctx context.Context, msg domain.CallMsg) ([]byte, error)
	// SendTransaction submits a transaction without waiting for it to be mined
	SendTransaction(ctx context.Context, req domain.TxRequest) (common.Hash, error)
	// WaitReceipt blocks until the transaction is mined
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// NetworkController exposes the development-node control methods
type NetworkController interface {
	Impersonate(ctx context.Context, addr common.Address) error
	StopImpersonating(ctx context.Context, addr common.Address) error
	// Reset discards local chain state. An empty forkURL resets to a fresh chain,
	// a zero block forks at the upstream head.
	Reset(ctx context.Context, forkURL string, block uint64) error
	Snapshot(ctx context.Context) (string, error)
	Revert(ctx context.Context, id string) error
}

// ArtifactRepository provides access to compiled contracts
type ArtifactRepository interface {
	// GetArtifact looks a contract up by name or "source:name"
	GetArtifact(ctx context.Context, name string) (*domain.ContractArtifact, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// Confirmer asks the user to approve destructive operations
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// TaskSelector lets the user pick a task when none was named
type TaskSelector interface {
	SelectTask(tasks []Task) (Task, error)
}

// AlwaysConfirm approves everything. Used for --yes and non-interactive runs.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(string) (bool, error) { return true, nil }
