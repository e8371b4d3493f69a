package adapters

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/vaultctl/internal/adapters/blockchain"
	"github.com/trebuchet-org/vaultctl/internal/adapters/interactive"
	"github.com/trebuchet-org/vaultctl/internal/adapters/repository/contracts"
	"github.com/trebuchet-org/vaultctl/internal/logging"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// BlockchainSet provides the JSON-RPC client for both ledger and network control
var BlockchainSet = wire.NewSet(
	blockchain.NewClient,
	wire.Bind(new(usecase.Ledger), new(*blockchain.Client)),
	wire.Bind(new(usecase.NetworkController), new(*blockchain.Client)),
)

// RepositorySet provides artifact storage
var RepositorySet = wire.NewSet(
	contracts.NewRepository,
	wire.Bind(new(usecase.ArtifactRepository), new(*contracts.Repository)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewPrompter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.Prompter)),
	wire.Bind(new(usecase.TaskSelector), new(*interactive.Prompter)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	logging.LoggingSet,
	BlockchainSet,
	RepositorySet,
	InteractiveSet,
)
