package config

import (
	"time"
)

// Dialect selects the method namespace of the simulated network node
type Dialect string

const (
	DialectHardhat Dialect = "hardhat"
	DialectAnvil   Dialect = "anvil"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot  string
	ArtifactDirs []string // absolute paths searched for compiled artifacts

	// Context settings
	Network *Network

	// Execution settings
	Debug          bool
	NonInteractive bool
	AssumeYes      bool // skip confirmation of destructive operations
	Timeout        time.Duration

	// Resolved configurations
	ProjectConfig *ProjectConfig
}

// Network represents network configuration
type Network struct {
	Name    string  `toml:"-"`
	RPCURL  string  `toml:"rpc_url"`
	ForkURL string  `toml:"fork_url"`
	Dialect Dialect `toml:"dialect"`
	// SenderKeyEnv names the environment variable holding a private key used
	// to sign locally. When empty the node signs (unlocked or impersonated accounts).
	SenderKeyEnv string `toml:"sender_key_env"`
}

// ProjectConfig is the parsed vaultctl.toml
type ProjectConfig struct {
	Artifacts []string            `toml:"artifacts"`
	Networks  map[string]*Network `toml:"networks"`
}
