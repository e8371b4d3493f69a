package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for domain operations
var (
	// ErrPreconditionViolation is returned when a locally checked precondition
	// fails before a mutating call is issued
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrAmbiguousCall is returned when an overloaded method is referenced by name only
	ErrAmbiguousCall = errors.New("ambiguous method call")

	// ErrMethodNotFound is returned when a contract ABI has no matching method
	ErrMethodNotFound = errors.New("method not found")

	// ErrMissingParameter is returned when a required task parameter is not supplied
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidParameter is returned when a parameter value does not match its kind
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnlinkedLibrary is returned when bytecode still references an unresolved library
	ErrUnlinkedLibrary = errors.New("unlinked library")

	// ErrTaskNotFound is returned when no task is registered under a name
	ErrTaskNotFound = errors.New("task not found")

	// ErrContractNotFound is returned when a contract artifact can't be found
	ErrContractNotFound = errors.New("contract not found")

	// ErrTransactionReverted is returned when a confirmed transaction has a failed status
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrResetNotFirst is returned when a fork reset is requested after other
	// ledger operations already ran in the same session
	ErrResetNotFirst = errors.New("fork reset must be the first operation of a run")

	// ErrNoAccounts is returned when the node exposes no signer accounts
	ErrNoAccounts = errors.New("no signer accounts available")
)

// GovernanceMismatchError reports a caller that is not the contract's governance identity
type GovernanceMismatchError struct {
	Contract   common.Address
	Caller     common.Address
	Governance common.Address
}

func (e GovernanceMismatchError) Error() string {
	return fmt.Sprintf("caller %s is not the governance of %s (governance is %s)",
		e.Caller.Hex(), e.Contract.Hex(), e.Governance.Hex())
}

func (e GovernanceMismatchError) Unwrap() error {
	return ErrPreconditionViolation
}

// MissingParametersError lists every required parameter that was not supplied
type MissingParametersError struct {
	Task    string
	Missing []string
}

func (e MissingParametersError) Error() string {
	return fmt.Sprintf("task %s: missing required parameters: %s", e.Task, strings.Join(e.Missing, ", "))
}

func (e MissingParametersError) Unwrap() error {
	return ErrMissingParameter
}

// InvalidParameterError reports a value that could not be coerced to its declared kind
type InvalidParameterError struct {
	Name  string
	Kind  ParameterKind
	Value string
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("parameter %s: %q is not a valid %s", e.Name, e.Value, e.Kind)
}

func (e InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// UnlinkedLibrariesError lists the libraries a factory needs but was not given
type UnlinkedLibrariesError struct {
	Contract  string
	Libraries []LibraryRequirement
}

func (e UnlinkedLibrariesError) Error() string {
	names := make([]string, 0, len(e.Libraries))
	for _, lib := range e.Libraries {
		names = append(names, lib.String())
	}
	sort.Strings(names)
	return fmt.Sprintf("contract %s requires unlinked libraries: %s", e.Contract, strings.Join(names, ", "))
}

func (e UnlinkedLibrariesError) Unwrap() error {
	return ErrUnlinkedLibrary
}

// AmbiguousCallError is returned when a method name matches several overloads
type AmbiguousCallError struct {
	Contract   string
	Method     string
	Signatures []string
}

func (e AmbiguousCallError) Error() string {
	sigs := make([]string, len(e.Signatures))
	copy(sigs, e.Signatures)
	sort.Strings(sigs)

	var suggestions []string
	for _, sig := range sigs {
		suggestions = append(suggestions, fmt.Sprintf("  - %s", sig))
	}

	return fmt.Sprintf("method %s on %s is overloaded - use the full signature to disambiguate:\n%s",
		e.Method, e.Contract, strings.Join(suggestions, "\n"))
}

func (e AmbiguousCallError) Unwrap() error {
	return ErrAmbiguousCall
}

// AmbiguousContractError is returned when several artifacts share a contract name
type AmbiguousContractError struct {
	Name    string
	Sources []string
}

func (e AmbiguousContractError) Error() string {
	sources := make([]string, len(e.Sources))
	copy(sources, e.Sources)
	sort.Strings(sources)

	var suggestions []string
	for _, source := range sources {
		suggestions = append(suggestions, fmt.Sprintf("  - %s:%s", source, e.Name))
	}

	return fmt.Sprintf("multiple contracts found matching %s - use source:contract format to disambiguate:\n%s",
		e.Name, strings.Join(suggestions, "\n"))
}

// TaskNotFoundError is returned for unknown task names, with close matches
type TaskNotFoundError struct {
	Name        string
	Suggestions []string
}

func (e TaskNotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("task %q not found", e.Name)
	}
	return fmt.Sprintf("task %q not found, did you mean: %s?", e.Name, strings.Join(e.Suggestions, ", "))
}

func (e TaskNotFoundError) Unwrap() error {
	return ErrTaskNotFound
}
