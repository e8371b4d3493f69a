// Package contracts holds the typed call descriptors for the contract
// interfaces the orchestrator drives. Each operation is bound to its full
// Solidity signature, so overloaded methods are never resolved by name.
package contracts

import (
	"fmt"

	"github.com/lmittmann/w3"
)

// Operation identifies a statically known contract call
type Operation int

const (
	VaultInitialize Operation = iota
	VaultGovernance
	VaultManagement
	VaultSetManagementFee
	VaultSetPerformanceFee
	VaultSetDepositLimit
	VaultSetManagement
	VaultDeposit
	VaultBalanceOf
	VaultToken
	TokenTransfer
	TokenApprove
	TokenBalanceOf
	TokenDecimals
)

// Contract interface names used in descriptors
const (
	VaultContract   = "Vault"
	TokenContract   = "ERC20"
	AssetContract   = "AnyswapV5ERC20"
	LibraryDefault  = "StrategyLib"
	StrategyDefault = "Strategy"
)

// Descriptor is a typed call descriptor
type Descriptor struct {
	Op        Operation
	Name      string
	Contract  string
	Signature string
	Returns   string
	Mutating  bool

	fn *w3.Func
}

var descriptors = map[Operation]*Descriptor{
	VaultInitialize: {
		Name:      "initialize",
		Contract:  VaultContract,
		Signature: "initialize(address,address,address,string,string)",
		Mutating:  true,
	},
	VaultGovernance: {
		Name:      "governance",
		Contract:  VaultContract,
		Signature: "governance()",
		Returns:   "address",
	},
	VaultManagement: {
		Name:      "management",
		Contract:  VaultContract,
		Signature: "management()",
		Returns:   "address",
	},
	VaultSetManagementFee: {
		Name:      "setManagementFee",
		Contract:  VaultContract,
		Signature: "setManagementFee(uint256)",
		Mutating:  true,
	},
	VaultSetPerformanceFee: {
		Name:      "setPerformanceFee",
		Contract:  VaultContract,
		Signature: "setPerformanceFee(uint256)",
		Mutating:  true,
	},
	VaultSetDepositLimit: {
		Name:      "setDepositLimit",
		Contract:  VaultContract,
		Signature: "setDepositLimit(uint256)",
		Mutating:  true,
	},
	VaultSetManagement: {
		Name:      "setManagement",
		Contract:  VaultContract,
		Signature: "setManagement(address)",
		Mutating:  true,
	},
	VaultDeposit: {
		Name:      "deposit",
		Contract:  VaultContract,
		Signature: "deposit(uint256)",
		Returns:   "uint256",
		Mutating:  true,
	},
	VaultBalanceOf: {
		Name:      "balanceOf",
		Contract:  VaultContract,
		Signature: "balanceOf(address)",
		Returns:   "uint256",
	},
	VaultToken: {
		Name:      "token",
		Contract:  VaultContract,
		Signature: "token()",
		Returns:   "address",
	},
	TokenTransfer: {
		Name:      "transfer",
		Contract:  TokenContract,
		Signature: "transfer(address,uint256)",
		Returns:   "bool",
		Mutating:  true,
	},
	TokenApprove: {
		Name:      "approve",
		Contract:  TokenContract,
		Signature: "approve(address,uint256)",
		Returns:   "bool",
		Mutating:  true,
	},
	TokenBalanceOf: {
		Name:      "balanceOf",
		Contract:  TokenContract,
		Signature: "balanceOf(address)",
		Returns:   "uint256",
	},
	TokenDecimals: {
		Name:      "decimals",
		Contract:  TokenContract,
		Signature: "decimals()",
		Returns:   "uint8",
	},
}

func init() {
	for op, d := range descriptors {
		d.Op = op
		d.fn = w3.MustNewFunc(d.Signature, d.Returns)
	}
}

// Lookup returns the descriptor for an operation
func Lookup(op Operation) *Descriptor {
	d, ok := descriptors[op]
	if !ok {
		panic(fmt.Sprintf("contracts: unknown operation %d", op))
	}
	return d
}

func (op Operation) String() string {
	if d, ok := descriptors[op]; ok {
		return fmt.Sprintf("%s.%s", d.Contract, d.Signature)
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// Selector returns the 4-byte method id
func (d *Descriptor) Selector() [4]byte {
	return d.fn.Selector
}

// Encode packs call data for args
func (d *Descriptor) Encode(args ...any) ([]byte, error) {
	data, err := d.fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", d.Signature, err)
	}
	return data, nil
}

// Decode unpacks return data into returns
func (d *Descriptor) Decode(output []byte, returns ...any) error {
	if err := d.fn.DecodeReturns(output, returns...); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", d.Signature, err)
	}
	return nil
}

// DecodeInput unpacks call data, selector included, into args
func (d *Descriptor) DecodeInput(input []byte, args ...any) error {
	if err := d.fn.DecodeArgs(input, args...); err != nil {
		return fmt.Errorf("failed to decode %s input: %w", d.Signature, err)
	}
	return nil
}

// Matches returns true if call data targets this descriptor
func (d *Descriptor) Matches(input []byte) bool {
	return len(input) >= 4 && [4]byte(input[:4]) == d.fn.Selector
}
