package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

// Repository discovers and indexes compiled contract artifacts produced by
// hardhat (artifacts/) and foundry (out/)
type Repository struct {
	projectRoot   string
	dirs          []string
	contracts     map[string]*domain.ContractArtifact   // key: "sourceName:contractName"
	contractNames map[string][]*domain.ContractArtifact // key: contract name
	log           *slog.Logger
	mu            sync.RWMutex
	indexed       bool
}

// NewRepository creates a new artifact repository
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	return &Repository{
		projectRoot:   cfg.ProjectRoot,
		dirs:          cfg.ArtifactDirs,
		log:           log,
		contracts:     make(map[string]*domain.ContractArtifact),
		contractNames: make(map[string][]*domain.ContractArtifact),
	}
}

type linkReferences map[string]map[string][]domain.LinkRef

// rawArtifact covers both artifact layouts. Hardhat stores bytecode as a hex
// string with top-level linkReferences, foundry nests both under bytecode.
type rawArtifact struct {
	Format         string          `json:"_format"`
	ContractName   string          `json:"contractName"`
	SourceName     string          `json:"sourceName"`
	ABI            json.RawMessage `json:"abi"`
	Bytecode       json.RawMessage `json:"bytecode"`
	LinkReferences linkReferences  `json:"linkReferences"`
	Metadata       *struct {
		Settings struct {
			CompilationTarget map[string]string `json:"compilationTarget"`
		} `json:"settings"`
	} `json:"metadata"`
}

type foundryBytecode struct {
	Object         string         `json:"object"`
	LinkReferences linkReferences `json:"linkReferences"`
}

// Index discovers all artifacts
func (r *Repository) Index() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexed {
		return nil
	}

	// Reset indexes
	r.contracts = make(map[string]*domain.ContractArtifact)
	r.contractNames = make(map[string][]*domain.ContractArtifact)

	for _, dir := range r.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			r.log.Debug("artifact directory not found", "dir", dir)
			continue
		}

		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				// Skip build info and compiler caches
				if info.Name() == "build-info" || info.Name() == "cache" {
					return filepath.SkipDir
				}
				return nil
			}

			if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
				return nil
			}

			return r.processArtifact(path)
		})
		if err != nil {
			return fmt.Errorf("failed to index artifacts in %s: %w", dir, err)
		}
	}

	r.indexed = true
	return nil
}

// processArtifact processes a single artifact file
func (r *Repository) processArtifact(artifactPath string) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return err
	}

	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		// Skip files that aren't artifacts
		return nil
	}

	if len(raw.ABI) == 0 || len(raw.Bytecode) == 0 {
		return nil
	}

	artifact := &domain.ContractArtifact{
		Name:           raw.ContractName,
		SourceName:     raw.SourceName,
		LinkReferences: raw.LinkReferences,
	}

	trimmed := bytes.TrimSpace(raw.Bytecode)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var bc foundryBytecode
		if err := json.Unmarshal(trimmed, &bc); err != nil {
			return nil
		}
		artifact.Bytecode = bc.Object
		artifact.LinkReferences = bc.LinkReferences
	} else if err := json.Unmarshal(trimmed, &artifact.Bytecode); err != nil {
		return nil
	}

	// Interfaces and abstract contracts have no creation code
	if artifact.Bytecode == "" || artifact.Bytecode == "0x" {
		return nil
	}

	if artifact.Name == "" && raw.Metadata != nil {
		for source, contract := range raw.Metadata.Settings.CompilationTarget {
			artifact.SourceName = source
			artifact.Name = contract
			break // There should only be one entry
		}
	}
	if artifact.Name == "" {
		artifact.Name = strings.TrimSuffix(filepath.Base(artifactPath), ".json")
		artifact.SourceName = filepath.Base(filepath.Dir(artifactPath))
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return fmt.Errorf("invalid ABI in %s: %w", artifactPath, err)
	}
	artifact.ABI = parsed

	relPath, _ := filepath.Rel(r.projectRoot, artifactPath)
	artifact.Path = relPath

	key := fmt.Sprintf("%s:%s", artifact.SourceName, artifact.Name)
	if _, exists := r.contracts[key]; exists {
		// same source compiled by both toolchains, first directory wins
		r.log.Debug("duplicate artifact ignored", "key", key, "path", relPath)
		return nil
	}

	r.log.Debug("indexed artifact", "key", key, "path", relPath, "format", raw.Format)
	r.contracts[key] = artifact
	r.contractNames[artifact.Name] = append(r.contractNames[artifact.Name], artifact)

	return nil
}

// GetArtifact retrieves an artifact by contract name or "sourceName:contractName"
func (r *Repository) GetArtifact(ctx context.Context, key string) (*domain.ContractArtifact, error) {
	if err := r.Index(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.Contains(key, ":") {
		if artifact, exists := r.contracts[key]; exists {
			return artifact, nil
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, key)
	}

	matches := r.contractNames[key]
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s (searched %s)", domain.ErrContractNotFound, key, strings.Join(r.relDirs(), ", "))
	case 1:
		return matches[0], nil
	default:
		sources := make([]string, 0, len(matches))
		for _, m := range matches {
			sources = append(sources, m.SourceName)
		}
		return nil, domain.AmbiguousContractError{Name: key, Sources: sources}
	}
}

func (r *Repository) relDirs() []string {
	dirs := make([]string, 0, len(r.dirs))
	for _, dir := range r.dirs {
		if rel, err := filepath.Rel(r.projectRoot, dir); err == nil {
			dirs = append(dirs, rel)
		} else {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Ensure the repository implements the interface
var _ usecase.ArtifactRepository = (*Repository)(nil)
