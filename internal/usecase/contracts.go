package usecase

import (
	"context"
	"fmt"
	"maps"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// Factory is a deployable contract with all its libraries linked
type Factory struct {
	Artifact  *domain.ContractArtifact
	Libraries map[string]common.Address
	Bytecode  []byte
}

// Name returns the contract name
func (f *Factory) Name() string {
	return f.Artifact.Name
}

// Handle is a contract at an address, connected to a signer
type Handle struct {
	Ref    domain.ContractRef
	Signer common.Address
	// Artifact is nil for handles bound from typed descriptors only
	Artifact *domain.ContractArtifact
}

// Address returns the contract address
func (h *Handle) Address() common.Address {
	return h.Ref.Address
}

// Connect returns a copy of the handle connected to signer
func (h *Handle) Connect(signer common.Address) *Handle {
	c := *h
	c.Signer = signer
	return &c
}

// ContractResolver resolves contract factories and handles
type ContractResolver struct {
	artifacts ArtifactRepository
}

// NewContractResolver creates a new contract resolver
func NewContractResolver(artifacts ArtifactRepository) *ContractResolver {
	return &ContractResolver{artifacts: artifacts}
}

// Factory resolves a factory for name, linking libraries into its bytecode.
// A contract that references a library missing from libraries is rejected.
func (r *ContractResolver) Factory(ctx context.Context, name string, libraries map[string]common.Address) (*Factory, error) {
	artifact, err := r.artifacts.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}

	bytecode, err := artifact.Link(libraries)
	if err != nil {
		return nil, err
	}

	linked := make(map[string]common.Address, len(libraries))
	for _, lib := range artifact.RequiredLibraries() {
		if addr, ok := libraries[lib.String()]; ok {
			linked[lib.Name] = addr
		} else if addr, ok := libraries[lib.Name]; ok {
			linked[lib.Name] = addr
		}
	}

	return &Factory{
		Artifact:  artifact,
		Libraries: linked,
		Bytecode:  bytecode,
	}, nil
}

// Bind returns a handle for a statically known interface. No artifact is loaded.
func (r *ContractResolver) Bind(name string, addr, signer common.Address) *Handle {
	return &Handle{
		Ref:    domain.ContractRef{Name: name, Address: addr},
		Signer: signer,
	}
}

// At returns a handle backed by the named artifact, for dynamic calls
func (r *ContractResolver) At(ctx context.Context, name string, addr, signer common.Address) (*Handle, error) {
	artifact, err := r.artifacts.GetArtifact(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	return &Handle{
		Ref:      domain.ContractRef{Name: artifact.Name, Address: addr},
		Signer:   signer,
		Artifact: artifact,
	}, nil
}

// FromArtifact binds a handle to a contract deployed earlier in the run
func (r *ContractResolver) FromArtifact(artifact *domain.Artifact, signer common.Address) *Handle {
	ref := artifact.Contract
	ref.Libraries = maps.Clone(ref.Libraries)
	return &Handle{Ref: ref, Signer: signer}
}
