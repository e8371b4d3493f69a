package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Stages reported by the simulation controller
const (
	StageImpersonating = "impersonating"
	StageResetting     = "resetting"
	StageSnapshot      = "snapshot"
)

// SimulationController drives the development-node control surface and keeps
// the process's NetworkState in step with it
type SimulationController struct {
	network  NetworkController
	state    *domain.NetworkState
	ops      *int
	progress ProgressSink
	log      *slog.Logger
	now      func() time.Time
}

// NewSimulationController creates a new simulation controller. ops is the
// session's operation counter, used to keep resets first in a run.
func NewSimulationController(network NetworkController, state *domain.NetworkState, ops *int, progress ProgressSink, log *slog.Logger) *SimulationController {
	return &SimulationController{
		network:  network,
		state:    state,
		ops:      ops,
		progress: progress,
		log:      log,
		now:      time.Now,
	}
}

// State returns the tracked network state
func (c *SimulationController) State() *domain.NetworkState {
	return c.state
}

// WithImpersonation runs fn while addr is impersonated. Impersonation is
// stopped when fn returns, whether or not it failed. An address that is
// already impersonated is left for the outer scope to release.
func (c *SimulationController) WithImpersonation(ctx context.Context, addr common.Address, fn func(ctx context.Context, account domain.Account) error) (err error) {
	account := domain.Account{Address: addr, Impersonated: true}

	if c.state.IsImpersonating(addr) {
		return fn(ctx, account)
	}

	c.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageImpersonating,
		Message: fmt.Sprintf("Impersonating %s", addr.Hex()),
	})

	if err := c.network.Impersonate(ctx, addr); err != nil {
		return fmt.Errorf("failed to impersonate %s: %w", addr.Hex(), err)
	}
	c.state.MarkImpersonated(addr, true)
	c.log.Debug("impersonation started", "account", addr.Hex())

	defer func() {
		// release even when ctx is already cancelled
		stopErr := c.network.StopImpersonating(context.WithoutCancel(ctx), addr)
		// the mark belongs to this scope whether or not the stop succeeded
		c.state.MarkImpersonated(addr, false)
		if stopErr != nil {
			c.log.Warn("failed to stop impersonation", "account", addr.Hex(), "error", stopErr)
			err = errors.Join(err, fmt.Errorf("failed to stop impersonating %s: %w", addr.Hex(), stopErr))
			return
		}
		c.log.Debug("impersonation stopped", "account", addr.Hex())
	}()

	return fn(ctx, account)
}

// ResetFork resets the ledger, forking forkURL at block (0 for the upstream
// head). It must be the first operation of a run.
func (c *SimulationController) ResetFork(ctx context.Context, forkURL string, block uint64) error {
	if *c.ops > 0 {
		return fmt.Errorf("%w: %d operations already issued", domain.ErrResetNotFirst, *c.ops)
	}

	message := "Resetting network"
	if forkURL != "" {
		message = fmt.Sprintf("Forking %s", forkURL)
		if block > 0 {
			message = fmt.Sprintf("%s at block %d", message, block)
		}
	}
	c.progress.OnProgress(ctx, ProgressEvent{Stage: StageResetting, Message: message, Spinner: true})

	if err := c.network.Reset(ctx, forkURL, block); err != nil {
		return fmt.Errorf("failed to reset network: %w", err)
	}

	c.state.MarkReset(forkURL, block, c.now())
	c.log.Info("network reset", "fork_url", forkURL, "block", block)
	c.progress.Info(message)
	return nil
}

// Snapshot records the current ledger state
func (c *SimulationController) Snapshot(ctx context.Context, label string) (string, error) {
	id, err := c.network.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to take snapshot: %w", err)
	}

	c.state.PushSnapshot(id, label, c.now())
	c.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageSnapshot,
		Message: fmt.Sprintf("Snapshot %s taken", id),
	})
	return id, nil
}

// Revert restores the ledger to snapshot id. Later snapshots are invalidated.
func (c *SimulationController) Revert(ctx context.Context, id string) error {
	if err := c.network.Revert(ctx, id); err != nil {
		return fmt.Errorf("failed to revert to snapshot %s: %w", id, err)
	}

	c.state.DropSnapshotsFrom(id)
	c.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageSnapshot,
		Message: fmt.Sprintf("Reverted to snapshot %s", id),
	})
	return nil
}
