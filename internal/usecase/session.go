package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// maxTaskDepth bounds sub-task composition
const maxTaskDepth = 8

// Session is one top-level run. Sub-tasks share their parent's session, so
// every ledger operation of a run is counted in one place.
type Session struct {
	ID string

	orch    *Orchestrator
	ledger  *meteredLedger
	network *meteredNetwork
	ops     int
	depth   int
	log     *slog.Logger

	deployer *common.Address

	steps     *StepExecutor
	simulator *SimulationController
}

func newSession(o *Orchestrator) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		orch: o,
	}
	s.log = o.log.With("run_id", s.ID)
	s.ledger = &meteredLedger{target: o.ledger, ops: &s.ops}
	s.network = &meteredNetwork{target: o.network, ops: &s.ops}
	s.steps = NewStepExecutor(s.ledger, o.progress, s.log)
	s.simulator = NewSimulationController(s.network, o.state, &s.ops, o.progress, s.log)
	return s
}

// Operations returns the number of ledger operations issued so far
func (s *Session) Operations() int {
	return s.ops
}

// Ledger returns the session's counted ledger
func (s *Session) Ledger() Ledger {
	return s.ledger
}

// Steps returns the deployment step executor
func (s *Session) Steps() *StepExecutor {
	return s.steps
}

// Simulator returns the network simulation controller
func (s *Session) Simulator() *SimulationController {
	return s.simulator
}

// Contracts returns the contract handle resolver
func (s *Session) Contracts() *ContractResolver {
	return s.orch.resolver
}

// Progress returns the progress sink
func (s *Session) Progress() ProgressSink {
	return s.orch.progress
}

// Log returns the run-scoped logger
func (s *Session) Log() *slog.Logger {
	return s.log
}

// Deployer returns the first signer account, resolved once per session
func (s *Session) Deployer(ctx context.Context) (common.Address, error) {
	if s.deployer != nil {
		return *s.deployer, nil
	}

	accounts, err := s.ledger.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, domain.ErrNoAccounts
	}

	s.deployer = &accounts[0]
	return accounts[0], nil
}

// RunTask runs a registered task inside this session. Parameters are
// validated before the task issues any ledger operation.
func (s *Session) RunTask(ctx context.Context, name string, raw map[string]string) (*TaskResult, error) {
	task, err := s.orch.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	params, err := domain.ResolveParameters(task.Name(), task.Parameters(), raw)
	if err != nil {
		return nil, err
	}

	if s.depth >= maxTaskDepth {
		return nil, fmt.Errorf("task %s: sub-task nesting exceeds %d levels", task.Name(), maxTaskDepth)
	}
	s.depth++
	defer func() { s.depth-- }()

	log := s.log.With("task", task.Name(), "depth", s.depth)
	log.Debug("running task", "params", params.Names(task.Parameters()))

	result, err := task.Run(ctx, s, params)
	if err != nil {
		log.Debug("task failed", "error", err, "operations", s.ops)
		return nil, fmt.Errorf("%s: %w", task.Name(), err)
	}

	if result == nil {
		result = NewTaskResult(task.Name())
	}
	result.Task = task.Name()

	log.Debug("task completed", "operations", s.ops)
	return result, nil
}

// meteredLedger counts every operation routed to the ledger
type meteredLedger struct {
	target Ledger
	ops    *int
}

func (m *meteredLedger) Accounts(ctx context.Context) ([]common.Address, error) {
	*m.ops++
	return m.target.Accounts(ctx)
}

func (m *meteredLedger) ChainID(ctx context.Context) (*big.Int, error) {
	*m.ops++
	return m.target.ChainID(ctx)
}

func (m *meteredLedger) BlockNumber(ctx context.Context) (uint64, error) {
	*m.ops++
	return m.target.BlockNumber(ctx)
}

func (m *meteredLedger) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	*m.ops++
	return m.target.Balance(ctx, addr)
}

func (m *meteredLedger) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	*m.ops++
	return m.target.CodeAt(ctx, addr)
}

func (m *meteredLedger) CallContract(ctx context.Context, msg domain.CallMsg) ([]byte, error) {
	*m.ops++
	return m.target.CallContract(ctx, msg)
}

func (m *meteredLedger) SendTransaction(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	*m.ops++
	return m.target.SendTransaction(ctx, req)
}

func (m *meteredLedger) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	*m.ops++
	return m.target.WaitReceipt(ctx, hash)
}

// meteredNetwork counts every network control operation
type meteredNetwork struct {
	target NetworkController
	ops    *int
}

func (m *meteredNetwork) Impersonate(ctx context.Context, addr common.Address) error {
	*m.ops++
	return m.target.Impersonate(ctx, addr)
}

func (m *meteredNetwork) StopImpersonating(ctx context.Context, addr common.Address) error {
	*m.ops++
	return m.target.StopImpersonating(ctx, addr)
}

func (m *meteredNetwork) Reset(ctx context.Context, forkURL string, block uint64) error {
	*m.ops++
	return m.target.Reset(ctx, forkURL, block)
}

func (m *meteredNetwork) Snapshot(ctx context.Context) (string, error) {
	*m.ops++
	return m.target.Snapshot(ctx)
}

func (m *meteredNetwork) Revert(ctx context.Context, id string) error {
	*m.ops++
	return m.target.Revert(ctx, id)
}

var (
	_ Ledger            = (*meteredLedger)(nil)
	_ NetworkController = (*meteredNetwork)(nil)
)
