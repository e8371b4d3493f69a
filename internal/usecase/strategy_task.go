package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// DeployStrategyParams contains parameters for deploying a library-linked strategy
type DeployStrategyParams struct {
	Library  string
	Strategy string
	// LinkName is the key the strategy bytecode references the library by
	LinkName string
}

// DeployStrategy deploys the shared library, then the strategy linked against it
type DeployStrategy struct{}

func (DeployStrategy) Name() string { return TaskDeployStrategy }

func (DeployStrategy) Description() string {
	return "Deploy the strategy library and a strategy linked to it"
}

func (DeployStrategy) Parameters() []domain.TaskParameter {
	return []domain.TaskParameter{
		{Name: "library", Description: "library contract name", Kind: domain.KindString, Default: contracts.LibraryDefault},
		{Name: "strategy", Description: "strategy contract name", Kind: domain.KindString, Default: contracts.StrategyDefault},
		{Name: "library-name", Description: "link name of the library in the strategy (defaults to library)", Kind: domain.KindString},
	}
}

func (t DeployStrategy) Run(ctx context.Context, s *Session, p domain.ParamValues) (*TaskResult, error) {
	params := DeployStrategyParams{
		Library:  p.String("library"),
		Strategy: p.String("strategy"),
		LinkName: p.String("library-name"),
	}
	if params.LinkName == "" {
		params.LinkName = params.Library
	}
	return t.Execute(ctx, s, params)
}

// Execute deploys both contracts. The strategy factory is resolved only once
// the library address is known.
func (DeployStrategy) Execute(ctx context.Context, s *Session, params DeployStrategyParams) (*TaskResult, error) {
	deployer, err := s.Deployer(ctx)
	if err != nil {
		return nil, err
	}

	libFactory, err := s.Contracts().Factory(ctx, params.Library, nil)
	if err != nil {
		return nil, err
	}
	library, err := s.Steps().Deploy(ctx, libFactory, deployer)
	if err != nil {
		return nil, err
	}

	strategyFactory, err := s.Contracts().Factory(ctx, params.Strategy, map[string]common.Address{
		params.LinkName: library.Address(),
	})
	if err != nil {
		return nil, err
	}
	strategy, err := s.Steps().Deploy(ctx, strategyFactory, deployer)
	if err != nil {
		return nil, err
	}

	result := NewTaskResult(TaskDeployStrategy)
	result.Artifacts["library"] = library
	result.Artifacts["strategy"] = strategy
	return result, nil
}
