package app

import (
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Shared dependencies
	Selector usecase.TaskSelector

	// Use cases
	Orchestrator *usecase.Orchestrator
	Compose      *usecase.ComposeTasks
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	selector usecase.TaskSelector,
	orchestrator *usecase.Orchestrator,
	compose *usecase.ComposeTasks,
) (*App, error) {
	return &App{
		Config:       cfg,
		Selector:     selector,
		Orchestrator: orchestrator,
		Compose:      compose,
	}, nil
}

// Registry returns the registered tasks
func (a *App) Registry() *usecase.TaskRegistry {
	return a.Orchestrator.Registry()
}
