package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// AccountInfo is a signer account with its native balance
type AccountInfo struct {
	Address common.Address
	Balance string
}

// ListAccounts enumerates the signer accounts
type ListAccounts struct{}

func (ListAccounts) Name() string { return TaskAccounts }

func (ListAccounts) Description() string {
	return "List the signer accounts and their balances"
}

func (ListAccounts) Parameters() []domain.TaskParameter { return nil }

func (t ListAccounts) Run(ctx context.Context, s *Session, _ domain.ParamValues) (*TaskResult, error) {
	accounts, err := t.Execute(ctx, s)
	if err != nil {
		return nil, err
	}

	result := NewTaskResult(TaskAccounts)
	for _, account := range accounts {
		result.SetValue(account.Address.Hex(), account.Balance)
	}
	return result, nil
}

// Execute returns every signer account with its balance
func (ListAccounts) Execute(ctx context.Context, s *Session) ([]AccountInfo, error) {
	addrs, err := s.Ledger().Accounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]AccountInfo, 0, len(addrs))
	for _, addr := range addrs {
		balance, err := s.Ledger().Balance(ctx, addr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, AccountInfo{Address: addr, Balance: balance.String()})
	}

	block, err := s.Ledger().BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	s.Log().Debug("listed accounts", "count", len(accounts), "block", block)

	return accounts, nil
}

// CallParams contains parameters for a dynamic contract call
type CallParams struct {
	Contract string
	Address  common.Address
	Method   string
	Args     []string
	// From is the zero address for the first signer
	From common.Address
}

// CallContract invokes a method of any indexed contract
type CallContract struct{}

func (CallContract) Name() string { return TaskCall }

func (CallContract) Description() string {
	return "Call a contract method by name or full signature"
}

func (CallContract) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "contract", Description: "contract name or source:name", Kind: domain.KindString, Required: true},
		{Name: "address", Description: "contract address", Kind: domain.KindAddress, Required: true},
		{Name: "method", Description: "method name or full signature", Kind: domain.KindString, Required: true},
		{Name: "args", Description: "comma separated arguments", Kind: domain.KindString},
		{Name: "from", Description: "sender address (defaults to the first signer)", Kind: domain.KindAddress},
	}
}

func (t CallContract) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	params := CallParams{
		Contract: p.String("contract"),
		Address:  p.Address("address"),
		Method:   p.String("method"),
		From:     p.Address("from"),
	}
	if raw := p.String("args"); raw != "" {
		params.Args = lo.Map(strings.Split(raw, ","), func(arg string, _ int) string {
			return strings.TrimSpace(arg)
		})
	}
	return t.Execute(ctx, s, params)
}

// Execute resolves the method against the contract ABI and calls it
func (CallContract) Execute(ctx context.Context, s *Session, params CallParams) (*TaskResult, error) {
	from := params.From
	if from == (common.Address{}) {
		deployer, err := s.Deployer(ctx)
		if err != nil {
			return nil, err
		}
		from = deployer
	}

	handle, err := s.Contracts().At(ctx, params.Contract, params.Address, from)
	if err != nil {
		return nil, err
	}

	call, err := s.Steps().CallMethod(ctx, handle, params.Method, params.Args)
	if err != nil {
		return nil, err
	}

	result := NewTaskResult(TaskCall)
	result.SetValue("signature", call.Signature)
	if call.Receipt != nil {
		result.SetValue("tx", call.Receipt.TxHash.Hex())
		s.Progress().Info(fmt.Sprintf("%s confirmed in %s", call.Signature, call.Receipt.TxHash.Hex()))
	}
	for i, out := range call.Outputs {
		result.SetValue(fmt.Sprintf("output%d", i), out)
		s.Progress().Info(fmt.Sprintf("%s[%d]: %s", call.Signature, i, out))
	}
	return result, nil
}

// TakeSnapshot records the ledger state for a later revert
type TakeSnapshot struct{}

func (TakeSnapshot) Name() string { return TaskSnapshot }

func (TakeSnapshot) Description() string {
	return "Take a snapshot of the local network"
}

func (TakeSnapshot) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "label", Description: "label stored with the snapshot", Kind: domain.KindString},
	}
}

func (TakeSnapshot) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	id, err := s.Simulator().Snapshot(ctx, p.String("label"))
	if err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Snapshot: %s", id))

	result := NewTaskResult(TaskSnapshot)
	result.SetValue("id", id)
	return result, nil
}

// RevertSnapshot restores a previously taken snapshot
type RevertSnapshot struct{}

func (RevertSnapshot) Name() string { return TaskRevert }

func (RevertSnapshot) Description() string {
	return "Revert the local network to a snapshot"
}

func (RevertSnapshot) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "id", Description: "snapshot id", Kind: domain.KindString, Required: true},
	}
}

func (RevertSnapshot) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	id := p.String("id")
	if err := s.Simulator().Revert(ctx, id); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Reverted to snapshot %s", id))

	result := NewTaskResult(TaskRevert)
	result.SetValue("id", id)
	return result, nil
}
