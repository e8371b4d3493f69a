package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
)

const (
	// ProjectFileName is the optional project configuration file
	ProjectFileName = "vaultctl.toml"

	DefaultNetwork = "localhost"
	DefaultRPCURL  = "http://127.0.0.1:8545"
)

// DefaultArtifactDirs are searched when the project file lists none
var DefaultArtifactDirs = []string{"artifacts", "out"}

// LoadProjectConfig loads .env files and vaultctl.toml from projectRoot.
// A missing project file yields the defaults.
func LoadProjectConfig(projectRoot string) (*config.ProjectConfig, error) {
	// Load .env files first for variable expansion
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}

	cfg := &config.ProjectConfig{}

	path := filepath.Join(projectRoot, ProjectFileName)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ProjectFileName, err)
		}
	}

	if len(cfg.Artifacts) == 0 {
		cfg.Artifacts = append([]string{}, DefaultArtifactDirs...)
	}
	if cfg.Networks == nil {
		cfg.Networks = make(map[string]*config.Network)
	}

	for name, network := range cfg.Networks {
		if network == nil {
			return nil, fmt.Errorf("network '%s' is empty", name)
		}
		network.Name = name
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		network.ForkURL = os.ExpandEnv(network.ForkURL)
	}

	return cfg, nil
}
