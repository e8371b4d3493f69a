//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/vaultctl/internal/adapters"
	"github.com/trebuchet-org/vaultctl/internal/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.ProvideTaskRegistry,
		usecase.NewOrchestrator,
		usecase.NewComposeTasks,

		// App
		NewApp,
	)
	return nil, nil
}
