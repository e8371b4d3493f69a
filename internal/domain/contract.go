package domain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Account is an identity able to sign operations on the ledger
type Account struct {
	Address common.Address `json:"address"`
	// Impersonated is true while the account is under simulated control
	Impersonated bool `json:"impersonated,omitempty"`
}

func (a Account) String() string {
	return a.Address.Hex()
}

// ContractRef names a contract at an address, along with the libraries it was linked against
type ContractRef struct {
	Name      string                    `json:"name"`
	Address   common.Address            `json:"address"`
	Libraries map[string]common.Address `json:"libraries,omitempty"`
}

// Artifact is the output of a deploy step. It is the only way state passes between steps.
type Artifact struct {
	Contract    ContractRef `json:"contract"`
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
}

// Address is a shortcut for the deployed contract address
func (a *Artifact) Address() common.Address {
	return a.Contract.Address
}

// TxRequest is a transaction to submit on behalf of From
type TxRequest struct {
	From  common.Address
	To    *common.Address // nil for contract creation
	Value *big.Int
	Data  []byte
}

// CallMsg is a read-only contract call
type CallMsg struct {
	From common.Address
	To   common.Address
	Data []byte
}

// LinkRef is a placeholder position inside creation bytecode, in bytes
type LinkRef struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// LibraryRequirement is a library a contract must be linked against
type LibraryRequirement struct {
	Source string
	Name   string
}

func (l LibraryRequirement) String() string {
	if l.Source == "" {
		return l.Name
	}
	return fmt.Sprintf("%s:%s", l.Source, l.Name)
}

// ContractArtifact is a compiled contract as produced by hardhat or forge
type ContractArtifact struct {
	Name           string
	SourceName     string
	Path           string
	ABI            abi.ABI
	Bytecode       string // hex, may contain library placeholders
	LinkReferences map[string]map[string][]LinkRef
}

// RequiredLibraries returns the libraries referenced by the creation bytecode
func (c *ContractArtifact) RequiredLibraries() []LibraryRequirement {
	var libs []LibraryRequirement
	for source, libMap := range c.LinkReferences {
		for name := range libMap {
			libs = append(libs, LibraryRequirement{Source: source, Name: name})
		}
	}
	return libs
}

// Link substitutes library addresses into the creation bytecode. Libraries are
// keyed by name or by "source:name". Every placeholder must be resolved.
func (c *ContractArtifact) Link(libraries map[string]common.Address) ([]byte, error) {
	code := []byte(strings.TrimPrefix(c.Bytecode, "0x"))

	var missing []LibraryRequirement
	for source, libMap := range c.LinkReferences {
		for name, refs := range libMap {
			req := LibraryRequirement{Source: source, Name: name}
			addr, ok := libraries[req.String()]
			if !ok {
				addr, ok = libraries[name]
			}
			if !ok {
				missing = append(missing, req)
				continue
			}
			addrHex := hex.EncodeToString(addr.Bytes())
			for _, ref := range refs {
				start, end := ref.Start*2, (ref.Start+ref.Length)*2
				if ref.Length != common.AddressLength || end > len(code) {
					return nil, fmt.Errorf("invalid link reference for %s in %s at %d", req, c.Name, ref.Start)
				}
				copy(code[start:end], addrHex)
			}
		}
	}

	if len(missing) > 0 {
		return nil, UnlinkedLibrariesError{Contract: c.Name, Libraries: missing}
	}

	// Placeholders without link references (e.g. stripped artifacts)
	if idx := strings.Index(string(code), "__"); idx != -1 {
		end := idx + 40
		if end > len(code) {
			end = len(code)
		}
		return nil, UnlinkedLibrariesError{
			Contract:  c.Name,
			Libraries: []LibraryRequirement{{Name: strings.Trim(string(code[idx:end]), "_$")}},
		}
	}

	bytecode, err := hex.DecodeString(string(code))
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode for %s: %w", c.Name, err)
	}
	return bytecode, nil
}

// Method resolves a method by full signature ("deposit(uint256)") or by
// name when the name is not overloaded.
func (c *ContractArtifact) Method(ref string) (*abi.Method, error) {
	return ResolveMethod(c.Name, &c.ABI, ref)
}

// ResolveMethod looks a method up in an ABI by full signature or unambiguous name
func ResolveMethod(contract string, parsed *abi.ABI, ref string) (*abi.Method, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), " ", "")

	if strings.Contains(ref, "(") {
		for _, method := range parsed.Methods {
			if method.Sig == ref {
				m := method
				return &m, nil
			}
		}
		return nil, fmt.Errorf("%w: %s on %s", ErrMethodNotFound, ref, contract)
	}

	var matches []abi.Method
	for _, method := range parsed.Methods {
		if method.RawName == ref {
			matches = append(matches, method)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s on %s", ErrMethodNotFound, ref, contract)
	case 1:
		return &matches[0], nil
	default:
		sigs := make([]string, 0, len(matches))
		for _, m := range matches {
			sigs = append(sigs, m.Sig)
		}
		return nil, AmbiguousCallError{Contract: contract, Method: ref, Signatures: sigs}
	}
}
