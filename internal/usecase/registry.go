package usecase

import (
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
)

// ProvideTaskRegistry registers every built-in task
func ProvideTaskRegistry(cfg *config.RuntimeConfig, confirmer Confirmer) *TaskRegistry {
	var forkURL string
	if cfg.Network != nil {
		forkURL = cfg.Network.ForkURL
	}

	return NewTaskRegistry(
		ListAccounts{},
		NewVault{},
		UpdateVaultSettings{},
		BootstrapVault{},
		DeployStrategy{},
		NewRefork(forkURL, confirmer),
		NewFundNative(confirmer),
		NewFundToken(confirmer),
		Deposit{},
		CallContract{},
		TakeSnapshot{},
		RevertSnapshot{},
	)
}
