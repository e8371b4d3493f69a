package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Task names
const (
	TaskNewVault            = "new-vault"
	TaskUpdateVaultSettings = "update-vault-settings"
	TaskBootstrapVault      = "bootstrap-vault"
	TaskDeployStrategy      = "deploy-strategy"
	TaskRefork              = "refork"
	TaskFundNative          = "fund-native"
	TaskFundToken           = "fund-token"
	TaskDeposit             = "deposit"
	TaskAccounts            = "accounts"
	TaskCall                = "call"
	TaskSnapshot            = "snapshot"
	TaskRevert              = "revert"
)

// Mock asset constructor arguments
const (
	mockAssetName     = "MiMatic"
	mockAssetSymbol   = "MAI"
	mockAssetDecimals = 18
)

// NewVaultParams contains parameters for deploying a vault
type NewVaultParams struct {
	Token      common.Address
	Name       string
	Symbol     string
	Governance common.Address
	Rewards    common.Address
	MockToken  bool
}

// NewVault deploys and initializes a custody vault
type NewVault struct{}

func (NewVault) Name() string { return TaskNewVault }

func (NewVault) Description() string {
	return "Deploy a new vault and initialize it"
}

func (NewVault) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "token-address", Description: "address of the token held by the vault", Kind: domain.KindAddress},
		{Name: "vault-name", Description: "name of the vault share token", Kind: domain.KindString, Required: true},
		{Name: "vault-symbol", Description: "symbol of the vault share token", Kind: domain.KindString, Required: true},
		{Name: "governance", Description: "governance address (0x0 for the deployer)", Kind: domain.KindAddress, Default: domain.ZeroAddressPlaceholder},
		{Name: "rewards", Description: "rewards address (0x0 for the deployer)", Kind: domain.KindAddress, Default: domain.ZeroAddressPlaceholder},
		{Name: "mock-token", Description: "deploy a mock asset instead of using token-address", Kind: domain.KindBool, Default: "false"},
	}
}

func (t NewVault) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	params := NewVaultParams{
		Token:      p.Address("token-address"),
		Name:       p.String("vault-name"),
		Symbol:     p.String("vault-symbol"),
		Governance: p.Address("governance"),
		Rewards:    p.Address("rewards"),
		MockToken:  p.Bool("mock-token"),
	}
	if !params.MockToken && !p.IsSet("token-address") {
		return nil, domain.MissingParametersError{Task: t.Name(), Missing: []string{"token-address"}}
	}
	return t.Execute(ctx, s, params)
}

// Execute deploys the vault, optionally a mock asset, and initializes the vault
func (NewVault) Execute(ctx context.Context, s *Session, params NewVaultParams) (*TaskResult, error) {
	result := NewTaskResult(TaskNewVault)

	deployer, err := s.Deployer(ctx)
	if err != nil {
		return nil, err
	}

	factory, err := s.Contracts().Factory(ctx, contracts.VaultContract, nil)
	if err != nil {
		return nil, err
	}
	vault, err := s.Steps().Deploy(ctx, factory, deployer)
	if err != nil {
		return nil, err
	}
	result.Artifacts["vault"] = vault

	token := params.Token
	if params.MockToken {
		asset, err := deployMockAsset(ctx, s, deployer)
		if err != nil {
			return nil, err
		}
		result.Artifacts["token"] = asset
		token = asset.Address()
	}

	governance := orDefault(params.Governance, deployer)
	rewards := orDefault(params.Rewards, deployer)

	handle := s.Contracts().FromArtifact(vault, deployer)
	if _, err := s.Steps().Transact(ctx, handle, contracts.VaultInitialize,
		token, governance, rewards, params.Name, params.Symbol); err != nil {
		return nil, err
	}

	var current common.Address
	if err := s.Steps().Read(ctx, handle, contracts.VaultGovernance, nil, &current); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("Governance: %s", current.Hex()))

	result.SetValue("token", token.Hex())
	result.SetValue("governance", current.Hex())
	return result, nil
}

func deployMockAsset(ctx context.Context, s *Session, deployer common.Address) (*domain.Artifact, error) {
	factory, err := s.Contracts().Factory(ctx, contracts.AssetContract, nil)
	if err != nil {
		return nil, err
	}

	asset, err := s.Steps().Deploy(ctx, factory, deployer,
		mockAssetName, mockAssetSymbol, uint8(mockAssetDecimals), common.Address{}, common.Address{})
	if err != nil {
		return nil, err
	}

	var decimals uint8
	handle := s.Contracts().FromArtifact(asset, deployer)
	if err := s.Steps().Read(ctx, handle, contracts.TokenDecimals, nil, &decimals); err != nil {
		return nil, err
	}
	s.Progress().Info(fmt.Sprintf("%s decimals: %d", mockAssetSymbol, decimals))

	return asset, nil
}

// UpdateVaultSettingsParams contains parameters for updating vault settings
type UpdateVaultSettingsParams struct {
	Vault          common.Address
	ManagementFee  *big.Int
	PerformanceFee *big.Int
	DepositLimit   *big.Int
	// Management is the zero address for the caller
	Management common.Address
}

// UpdateVaultSettings applies fees, deposit limit and management to a vault
type UpdateVaultSettings struct{}

func (UpdateVaultSettings) Name() string { return TaskUpdateVaultSettings }

func (UpdateVaultSettings) Description() string {
	return "Update the fees, deposit limit and management of a vault"
}

func (UpdateVaultSettings) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "vault-address", Description: "address of the vault", Kind: domain.KindAddress, Required: true},
		{Name: "management-fee", Description: "management fee in basis points", Kind: domain.KindInt, Default: "0"},
		{Name: "performance-fee", Description: "performance fee in basis points", Kind: domain.KindInt, Default: "100"},
		{Name: "deposit-limit", Description: "deposit limit in token base units", Kind: domain.KindInt, Default: "1000000000000"},
		{Name: "management", Description: "management address (0x0 for the caller)", Kind: domain.KindAddress, Default: domain.ZeroAddressPlaceholder},
	}
}

func (t UpdateVaultSettings) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	return t.Execute(ctx, s, UpdateVaultSettingsParams{
		Vault:          p.Address("vault-address"),
		ManagementFee:  p.Int("management-fee"),
		PerformanceFee: p.Int("performance-fee"),
		DepositLimit:   p.Int("deposit-limit"),
		Management:     p.Address("management"),
	})
}

// Execute checks the caller is the vault governance, then applies each
// setter in order. Setters already applied are kept if a later one fails.
func (UpdateVaultSettings) Execute(ctx context.Context, s *Session, params UpdateVaultSettingsParams) (*TaskResult, error) {
	caller, err := s.Deployer(ctx)
	if err != nil {
		return nil, err
	}

	vault := s.Contracts().Bind(contracts.VaultContract, params.Vault, caller)

	var governance common.Address
	if err := s.Steps().Read(ctx, vault, contracts.VaultGovernance, nil, &governance); err != nil {
		return nil, err
	}
	if governance != caller {
		return nil, domain.GovernanceMismatchError{Contract: params.Vault, Caller: caller, Governance: governance}
	}

	management := orDefault(params.Management, caller)

	steps := []struct {
		label string
		op    contracts.Operation
		arg   any
	}{
		{fmt.Sprintf("Setting the management fee to %s", params.ManagementFee), contracts.VaultSetManagementFee, params.ManagementFee},
		{fmt.Sprintf("Setting the performance fee to %s", params.PerformanceFee), contracts.VaultSetPerformanceFee, params.PerformanceFee},
		{fmt.Sprintf("Setting the deposit limit to %s", params.DepositLimit), contracts.VaultSetDepositLimit, params.DepositLimit},
		{fmt.Sprintf("Setting the management to %s", management.Hex()), contracts.VaultSetManagement, management},
	}
	for _, step := range steps {
		s.Progress().Info(step.label)
		if _, err := s.Steps().Transact(ctx, vault, step.op, step.arg); err != nil {
			return nil, err
		}
	}

	result := NewTaskResult(TaskUpdateVaultSettings)
	result.SetValue("vault", params.Vault.Hex())
	result.SetValue("management-fee", params.ManagementFee.String())
	result.SetValue("performance-fee", params.PerformanceFee.String())
	result.SetValue("deposit-limit", params.DepositLimit.String())
	result.SetValue("management", management.Hex())
	return result, nil
}

// Fixed parameters of the bootstrap composition
var bootstrapSettings = map[string]string{
	"management-fee":  "100",
	"performance-fee": "100",
	"deposit-limit":   "10000000000",
}

// BootstrapVault deploys a vault and applies default settings in one run
type BootstrapVault struct{}

func (BootstrapVault) Name() string { return TaskBootstrapVault }

func (BootstrapVault) Description() string {
	return "Deploy a vault and apply default settings"
}

func (BootstrapVault) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "token-address", Description: "address of the token held by the vault", Kind: domain.KindAddress, Required: true},
	}
}

// Run composes new-vault and update-vault-settings. A settings failure leaves
// the deployed vault in place.
func (BootstrapVault) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	result := NewTaskResult(TaskBootstrapVault)

	deployed, err := s.RunTask(ctx, TaskNewVault, map[string]string{
		"token-address": p.Raw("token-address"),
		"vault-name":    "Vault",
		"vault-symbol":  "VLT",
	})
	if err != nil {
		return nil, err
	}
	result.SubTasks = append(result.SubTasks, deployed)

	vault := deployed.Artifact("vault")
	settings := map[string]string{"vault-address": vault.Address().Hex()}
	for k, v := range bootstrapSettings {
		settings[k] = v
	}

	updated, err := s.RunTask(ctx, TaskUpdateVaultSettings, settings)
	if err != nil {
		return nil, err
	}
	result.SubTasks = append(result.SubTasks, updated)

	result.Artifacts["vault"] = vault
	result.SetValue("governance", deployed.Value("governance"))
	result.SetValue("management", updated.Value("management"))
	return result, nil
}

// orDefault returns addr, or fallback for the zero address
func orDefault(addr, fallback common.Address) common.Address {
	if addr == (common.Address{}) {
		return fallback
	}
	return addr
}
