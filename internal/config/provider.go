package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
)

// Files marking a project root, checked in order
var projectMarkers = []string{
	ProjectFileName,
	"hardhat.config.js",
	"hardhat.config.ts",
	"foundry.toml",
}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		AssumeYes:      v.GetBool("yes"),
		Timeout:        v.GetDuration("timeout"),
	}

	projectConfig, err := LoadProjectConfig(projectRoot)
	if err != nil {
		return nil, err
	}
	cfg.ProjectConfig = projectConfig

	for _, dir := range projectConfig.Artifacts {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(projectRoot, dir)
		}
		cfg.ArtifactDirs = append(cfg.ArtifactDirs, dir)
	}

	network, err := ResolveNetwork(projectConfig, v.GetString("network"), v.GetString("rpc_url"))
	if err != nil {
		return nil, err
	}
	cfg.Network = network

	return cfg, nil
}

// ResolveNetwork picks the named network from the project config and applies
// the rpc url override. The localhost network is always available.
func ResolveNetwork(pc *config.ProjectConfig, name, rpcURL string) (*config.Network, error) {
	if name == "" {
		name = DefaultNetwork
	}

	var network config.Network
	if configured, ok := pc.Networks[name]; ok && configured != nil {
		network = *configured
	} else if name == DefaultNetwork {
		network = config.Network{RPCURL: DefaultRPCURL}
	} else if rpcURL == "" {
		return nil, fmt.Errorf("network '%s' not found in %s", name, ProjectFileName)
	}
	network.Name = name

	if rpcURL != "" {
		network.RPCURL = rpcURL
	}
	if network.RPCURL == "" {
		return nil, fmt.Errorf("network '%s' has no rpc_url", name)
	}

	if network.Dialect == "" {
		network.Dialect = config.DialectHardhat
	}
	switch network.Dialect {
	case config.DialectHardhat, config.DialectAnvil:
	default:
		return nil, fmt.Errorf("network '%s': unknown dialect %q (expected hardhat or anvil)", name, network.Dialect)
	}

	return &network, nil
}

// FindProjectRoot walks up from current directory to find a project marker
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a contracts project (%s not found)", strings.Join(projectMarkers, ", "))
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("VAULTCTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("timeout", "10m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("yes", false)
	v.SetDefault("project_root", projectRoot)

	return v
}
