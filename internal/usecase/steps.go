package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Stages reported by the step executor
const (
	StageDeploying    = "deploying"
	StageTransacting  = "transacting"
	StageTransferring = "transferring"
	StageConfirmed    = "confirmed"
)

// StepExecutor issues deploy and call steps, each awaited to confirmation
type StepExecutor struct {
	ledger   Ledger
	progress ProgressSink
	log      *slog.Logger
}

// NewStepExecutor creates a new step executor
func NewStepExecutor(ledger Ledger, progress ProgressSink, log *slog.Logger) *StepExecutor {
	return &StepExecutor{
		ledger:   ledger,
		progress: progress,
		log:      log,
	}
}

// Deploy deploys factory from signer with constructor args and waits for the receipt
func (s *StepExecutor) Deploy(ctx context.Context, factory *Factory, signer common.Address, args ...any) (*domain.Artifact, error) {
	data := append([]byte{}, factory.Bytecode...)

	if factory.Artifact.ABI.Constructor.Inputs != nil || len(args) > 0 {
		packed, err := factory.Artifact.ABI.Pack("", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s constructor arguments: %w", factory.Name(), err)
		}
		data = append(data, packed...)
	}

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageDeploying,
		Message: fmt.Sprintf("Deploying %s", factory.Name()),
		Spinner: true,
	})

	receipt, err := s.submit(ctx, domain.TxRequest{From: signer, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", factory.Name(), err)
	}

	artifact := &domain.Artifact{
		Contract: domain.ContractRef{
			Name:      factory.Name(),
			Address:   receipt.ContractAddress,
			Libraries: factory.Libraries,
		},
		TxHash:      receipt.TxHash,
		BlockNumber: blockOf(receipt),
		GasUsed:     receipt.GasUsed,
	}

	s.log.Debug("contract deployed", "contract", factory.Name(), "address", artifact.Address().Hex(), "tx", receipt.TxHash.Hex())
	s.progress.OnProgress(ctx, ProgressEvent{Stage: StageConfirmed, Metadata: artifact})
	s.progress.Info(fmt.Sprintf("%s deployed to: %s", factory.Name(), artifact.Address().Hex()))

	return artifact, nil
}

// Transact invokes a mutating operation on handle and waits for the receipt
func (s *StepExecutor) Transact(ctx context.Context, handle *Handle, op contracts.Operation, args ...any) (*types.Receipt, error) {
	d := contracts.Lookup(op)
	if !d.Mutating {
		return nil, fmt.Errorf("%s is read-only, use Read", d.Signature)
	}

	data, err := d.Encode(args...)
	if err != nil {
		return nil, err
	}

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageTransacting,
		Message: fmt.Sprintf("Calling %s on %s", d.Signature, handle.Ref.Name),
		Spinner: true,
	})

	to := handle.Address()
	receipt, err := s.submit(ctx, domain.TxRequest{From: handle.Signer, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", d.Signature, to.Hex(), err)
	}

	s.progress.OnProgress(ctx, ProgressEvent{Stage: StageConfirmed, Metadata: receipt})
	return receipt, nil
}

// Read performs a read-only call and decodes its result into returns
func (s *StepExecutor) Read(ctx context.Context, handle *Handle, op contracts.Operation, args []any, returns ...any) error {
	d := contracts.Lookup(op)

	data, err := d.Encode(args...)
	if err != nil {
		return err
	}

	out, err := s.ledger.CallContract(ctx, domain.CallMsg{From: handle.Signer, To: handle.Address(), Data: data})
	if err != nil {
		return fmt.Errorf("%s on %s: %w", d.Signature, handle.Address().Hex(), err)
	}

	return d.Decode(out, returns...)
}

// TransferNative sends amount of native currency and waits for the receipt
func (s *StepExecutor) TransferNative(ctx context.Context, from, to common.Address, amount *big.Int) (*types.Receipt, error) {
	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageTransferring,
		Message: fmt.Sprintf("Transferring %s wei to %s", amount, to.Hex()),
		Spinner: true,
	})

	receipt, err := s.submit(ctx, domain.TxRequest{From: from, To: &to, Value: amount})
	if err != nil {
		return nil, fmt.Errorf("transfer from %s to %s: %w", from.Hex(), to.Hex(), err)
	}

	s.progress.OnProgress(ctx, ProgressEvent{Stage: StageConfirmed, Metadata: receipt})
	return receipt, nil
}

// submit sends req and blocks until it is mined. A failed receipt is an error.
func (s *StepExecutor) submit(ctx context.Context, req domain.TxRequest) (*types.Receipt, error) {
	hash, err := s.ledger.SendTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.WaitReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionReverted, hash.Hex())
	}

	return receipt, nil
}

func blockOf(receipt *types.Receipt) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}
