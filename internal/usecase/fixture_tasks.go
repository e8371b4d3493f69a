package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Fixture defaults for the fantom opera fork
const (
	DefaultForkURL       = "https://rpc.fantom.network"
	DefaultNativeWhale   = "0xb8798Daf76106D2546442a1ea04f8aa66b4Afe33"
	DefaultTokenWhale    = "0x6618244141c824210dbc8ec9a95C9221c576470f"
	DefaultToken         = "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75"
	DefaultWallet        = "0xA0d991c8d8c0324bcC75f93b648De2c06D7F2Fd1"
	DefaultDepositVault  = "0xDC11f7E700A4c898AE5CAddB1082cFfa76512aDD"
	DefaultNativeAmount  = "100e18"
	DefaultTokenAmount   = "1000e6"
	DefaultDepositAmount = "1000e6"
)

// ErrCancelled is returned when the user declines a destructive operation
var ErrCancelled = errors.New("cancelled by user")

// ReforkParams contains parameters for resetting the fork
type ReforkParams struct {
	ForkURL string
	Block   uint64
}

// Refork discards local chain state and forks the upstream network again
type Refork struct {
	forkURL   string
	confirmer Confirmer
}

// NewRefork creates the refork task. forkURL is used when no fork-url is given.
func NewRefork(forkURL string, confirmer Confirmer) *Refork {
	if forkURL == "" {
		forkURL = DefaultForkURL
	}
	return &Refork{forkURL: forkURL, confirmer: confirmer}
}

func (*Refork) Name() string { return TaskRefork }

func (*Refork) Description() string {
	return "Reset the local network to a fresh fork of the upstream node"
}

func (r *Refork) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "fork-url", Description: "upstream RPC URL to fork", Kind: domain.KindString, Default: r.forkURL},
		{Name: "block-number", Description: "block to fork at (defaults to the upstream head)", Kind: domain.KindInt},
	}
}

func (r *Refork) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	params := ReforkParams{ForkURL: p.String("fork-url")}
	if block := p.Int("block-number"); block != nil {
		if !block.IsUint64() {
			return nil, domain.InvalidParameterError{Name: "block-number", Kind: domain.KindInt, Value: p.Raw("block-number")}
		}
		params.Block = block.Uint64()
	}
	return r.Execute(ctx, s, params)
}

// Execute asks for confirmation, then resets the network
func (r *Refork) Execute(ctx context.Context, s *Session, params ReforkParams) (*TaskResult, error) {
	if err := confirmedReset(ctx, s, r.confirmer, params.ForkURL, params.Block); err != nil {
		return nil, err
	}

	result := NewTaskResult(TaskRefork)
	result.SetValue("fork-url", params.ForkURL)
	if params.Block > 0 {
		result.SetValue("block-number", fmt.Sprintf("%d", params.Block))
	}
	return result, nil
}

// confirmedReset asks before discarding local chain state, every task that
// resets the fork goes through it
func confirmedReset(ctx context.Context, s *Session, confirmer Confirmer, forkURL string, block uint64) error {
	ok, err := confirmer.Confirm(fmt.Sprintf("Discard all local chain state and fork %s", forkURL))
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return s.Simulator().ResetFork(ctx, forkURL, block)
}

// FundParams contains parameters for moving funds out of an impersonated whale
type FundParams struct {
	Whale     common.Address
	Token     common.Address // zero for native currency
	Recipient common.Address
	Amount    *big.Int
	// ForkURL, when set, resets the network before funding
	ForkURL string
}

func fundParameters(token bool) []domain.TaskParameter {
	params := []domain.TaskParameter{
		{Name: "whale", Description: "account to impersonate", Kind: domain.KindAddress, Default: DefaultNativeWhale},
		{Name: "recipient", Description: "account to fund", Kind: domain.KindAddress, Default: DefaultWallet},
		{Name: "amount", Description: "amount in base units", Kind: domain.KindInt, Default: DefaultNativeAmount},
		{Name: "fork-url", Description: "reset to a fork of this URL first", Kind: domain.KindString},
	}
	if token {
		params[0].Default = DefaultTokenWhale
		params[2].Default = DefaultTokenAmount
		params = append(params, domain.TaskParameter{
			Name: "token", Description: "token to transfer", Kind: domain.KindAddress, Default: DefaultToken,
		})
	}
	return params
}

func parseFundParams(p domain.ParamValues) FundParams {
	return FundParams{
		Whale:     p.Address("whale"),
		Token:     p.Address("token"),
		Recipient: p.Address("recipient"),
		Amount:    p.Int("amount"),
		ForkURL:   p.String("fork-url"),
	}
}

// FundNative transfers native currency from an impersonated whale
type FundNative struct {
	confirmer Confirmer
}

// NewFundNative creates the fund-native task. confirmer guards the optional fork reset.
func NewFundNative(confirmer Confirmer) *FundNative {
	return &FundNative{confirmer: confirmer}
}

func (*FundNative) Name() string { return TaskFundNative }

func (*FundNative) Description() string {
	return "Transfer native currency from an impersonated account"
}

func (*FundNative) Parameters() []domain.TaskParameter { return fundParameters(false) }

func (t *FundNative) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	return t.Execute(ctx, s, parseFundParams(p))
}

// Execute resets the fork if requested, then moves Amount from Whale to Recipient
func (t *FundNative) Execute(ctx context.Context, s *Session, params FundParams) (*TaskResult, error) {
	if params.ForkURL != "" {
		if err := confirmedReset(ctx, s, t.confirmer, params.ForkURL, 0); err != nil {
			return nil, err
		}
	}

	before, err := s.Ledger().Balance(ctx, params.Recipient)
	if err != nil {
		return nil, err
	}
	whaleBalance, err := s.Ledger().Balance(ctx, params.Whale)
	if err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Whale %s balance: %s", params.Whale.Hex(), whaleBalance))

	err = s.Simulator().WithImpersonation(ctx, params.Whale, func(ctx context.Context, whale domain.Account) error {
		_, err := s.Steps().TransferNative(ctx, whale.Address, params.Recipient, params.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	after, err := s.Ledger().Balance(ctx, params.Recipient)
	if err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Balance of %s: %s (was %s)", params.Recipient.Hex(), after, before))

	result := NewTaskResult(TaskFundNative)
	result.SetValue("recipient", params.Recipient.Hex())
	result.SetValue("balance", after.String())
	return result, nil
}

// FundToken transfers an ERC20 balance from an impersonated whale
type FundToken struct {
	confirmer Confirmer
}

// NewFundToken creates the fund-token task. confirmer guards the optional fork reset.
func NewFundToken(confirmer Confirmer) *FundToken {
	return &FundToken{confirmer: confirmer}
}

func (*FundToken) Name() string { return TaskFundToken }

func (*FundToken) Description() string {
	return "Transfer tokens from an impersonated account"
}

func (*FundToken) Parameters() []domain.TaskParameter { return fundParameters(true) }

func (t *FundToken) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	return t.Execute(ctx, s, parseFundParams(p))
}

// Execute resets the fork if requested, then transfers Amount of Token
func (t *FundToken) Execute(ctx context.Context, s *Session, params FundParams) (*TaskResult, error) {
	if params.ForkURL != "" {
		if err := confirmedReset(ctx, s, t.confirmer, params.ForkURL, 0); err != nil {
			return nil, err
		}
	}

	token := s.Contracts().Bind(contracts.TokenContract, params.Token, params.Whale)

	var whaleBalance *big.Int
	if err := s.Steps().Read(ctx, token, contracts.TokenBalanceOf, []any{params.Whale}, &whaleBalance); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Whale %s token balance: %s", params.Whale.Hex(), whaleBalance))

	err := s.Simulator().WithImpersonation(ctx, params.Whale, func(ctx context.Context, whale domain.Account) error {
		_, err := s.Steps().Transact(ctx, token.Connect(whale.Address), contracts.TokenTransfer, params.Recipient, params.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if err := s.Steps().Read(ctx, token, contracts.TokenBalanceOf, []any{params.Recipient}, &balance); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Token balance of %s: %s", params.Recipient.Hex(), balance))

	result := NewTaskResult(TaskFundToken)
	result.SetValue("recipient", params.Recipient.Hex())
	result.SetValue("balance", balance.String())
	return result, nil
}

// DepositParams contains parameters for depositing into a vault
type DepositParams struct {
	Vault     common.Address
	Token     common.Address // zero to read it from the vault
	Depositor common.Address
	Amount    *big.Int
}

// Deposit deposits tokens into a vault on behalf of an impersonated account
type Deposit struct{}

func (Deposit) Name() string { return TaskDeposit }

func (Deposit) Description() string {
	return "Deposit tokens into a vault from an impersonated account"
}

func (Deposit) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "vault-address", Description: "address of the vault", Kind: domain.KindAddress, Default: DefaultDepositVault},
		{Name: "token", Description: "token held by the vault (read from the vault when omitted)", Kind: domain.KindAddress},
		{Name: "depositor", Description: "account to deposit from", Kind: domain.KindAddress, Default: DefaultWallet},
		{Name: "amount", Description: "amount in token base units", Kind: domain.KindInt, Default: DefaultDepositAmount},
	}
}

func (t Deposit) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	return t.Execute(ctx, s, DepositParams{
		Vault:     p.Address("vault-address"),
		Token:     p.Address("token"),
		Depositor: p.Address("depositor"),
		Amount:    p.Int("amount"),
	})
}

// Execute approves the vault and deposits Amount, then reports the shares held
func (Deposit) Execute(ctx context.Context, s *Session, params DepositParams) (*TaskResult, error) {
	vault := s.Contracts().Bind(contracts.VaultContract, params.Vault, params.Depositor)

	tokenAddr := params.Token
	if tokenAddr == (common.Address{}) {
		if err := s.Steps().Read(ctx, vault, contracts.VaultToken, nil, &tokenAddr); err != nil {
			return nil, err
		}
	}
	token := s.Contracts().Bind(contracts.TokenContract, tokenAddr, params.Depositor)

	err := s.Simulator().WithImpersonation(ctx, params.Depositor, func(ctx context.Context, _ domain.Account) error {
		if _, err := s.Steps().Transact(ctx, token, contracts.TokenApprove, params.Vault, params.Amount); err != nil {
			return err
		}

		var governance common.Address
		if err := s.Steps().Read(ctx, vault, contracts.VaultGovernance, nil, &governance); err != nil {
			return err
		}
		s.Progress().Info(fmt.Sprintf("Vault governance: %s", governance.Hex()))

		_, err := s.Steps().Transact(ctx, vault, contracts.VaultDeposit, params.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	var shares *big.Int
	if err := s.Steps().Read(ctx, vault, contracts.VaultBalanceOf, []any{params.Depositor}, &shares); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Shares of %s: %s", params.Depositor.Hex(), shares))

	result := NewTaskResult(TaskDeposit)
	result.SetValue("token", tokenAddr.Hex())
	result.SetValue("shares", shares.String())
	return result, nil
}
