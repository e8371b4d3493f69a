package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParameterKind is the declared type of a task parameter
type ParameterKind string

const (
	KindString  ParameterKind = "string"
	KindInt     ParameterKind = "int"
	KindAddress ParameterKind = "address"
	KindBool    ParameterKind = "bool"
)

// ZeroAddressPlaceholder is the literal accepted for address parameters that
// should resolve to the caller at execution time
const ZeroAddressPlaceholder = "0x0"

// TaskParameter declares a named task input
type TaskParameter struct {
	Name        string
	Description string
	Kind        ParameterKind
	Required    bool
	Default     string
}

// HasDefault returns true if the parameter declares a default value
func (p TaskParameter) HasDefault() bool {
	return p.Default != ""
}

// ParamValues holds validated, typed task inputs
type ParamValues struct {
	specs  map[string]TaskParameter
	values map[string]any
	raw    map[string]string
}

// ResolveParameters validates raw inputs against the declared parameters and
// coerces them to their kinds. Unknown keys are rejected. All missing required
// parameters are collected into a single error.
func ResolveParameters(task string, specs []TaskParameter, raw map[string]string) (ParamValues, error) {
	pv := ParamValues{
		specs:  make(map[string]TaskParameter, len(specs)),
		values: make(map[string]any, len(specs)),
		raw:    make(map[string]string, len(specs)),
	}

	for _, spec := range specs {
		pv.specs[spec.Name] = spec
	}

	for name := range raw {
		if _, ok := pv.specs[name]; !ok {
			return ParamValues{}, fmt.Errorf("%w: task %s has no parameter %q", ErrInvalidParameter, task, name)
		}
	}

	var missing []string
	for _, spec := range specs {
		value, supplied := raw[spec.Name]
		if !supplied || value == "" {
			if spec.Required {
				missing = append(missing, spec.Name)
				continue
			}
			if !spec.HasDefault() {
				continue
			}
			value = spec.Default
		}

		typed, err := coerce(spec, value)
		if err != nil {
			return ParamValues{}, err
		}
		pv.values[spec.Name] = typed
		pv.raw[spec.Name] = value
	}

	if len(missing) > 0 {
		return ParamValues{}, MissingParametersError{Task: task, Missing: missing}
	}

	return pv, nil
}

func coerce(spec TaskParameter, value string) (any, error) {
	invalid := InvalidParameterError{Name: spec.Name, Kind: spec.Kind, Value: value}

	switch spec.Kind {
	case KindString, "":
		return value, nil
	case KindInt:
		n, ok := ParseBigInt(value)
		if !ok {
			return nil, invalid
		}
		return n, nil
	case KindAddress:
		if value == ZeroAddressPlaceholder {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(value) {
			return nil, invalid
		}
		return common.HexToAddress(value), nil
	case KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, invalid
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %s for %s", ErrInvalidParameter, spec.Kind, spec.Name)
	}
}

// ParseBigInt parses decimal or 0x-prefixed integers. Underscore separators
// and scientific notation with an integral result (100e18) are accepted.
func ParseBigInt(value string) (*big.Int, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if value == "" {
		return nil, false
	}

	if mantissa, exp, found := strings.Cut(strings.ToLower(value), "e"); found && !strings.HasPrefix(value, "0x") {
		m, ok := new(big.Int).SetString(mantissa, 10)
		if !ok {
			return nil, false
		}
		e, err := strconv.ParseUint(exp, 10, 16)
		if err != nil {
			return nil, false
		}
		return nonNegative(m.Mul(m, new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(e), nil)))
	}

	n, ok := new(big.Int).SetString(value, 0)
	if !ok {
		return nil, false
	}
	return nonNegative(n)
}

func nonNegative(n *big.Int) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

// IsSet returns true if the parameter has a value, supplied or defaulted
func (p ParamValues) IsSet(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Raw returns the string form of a resolved parameter
func (p ParamValues) Raw(name string) string {
	return p.raw[name]
}

// String returns a string parameter, or "" when unset
func (p ParamValues) String(name string) string {
	if v, ok := p.values[name].(string); ok {
		return v
	}
	return ""
}

// Int returns a copy of an integer parameter, or nil when unset
func (p ParamValues) Int(name string) *big.Int {
	if v, ok := p.values[name].(*big.Int); ok {
		return new(big.Int).Set(v)
	}
	return nil
}

// Address returns an address parameter. The zero address is returned both for
// unset values and for the "0x0" placeholder.
func (p ParamValues) Address(name string) common.Address {
	if v, ok := p.values[name].(common.Address); ok {
		return v
	}
	return common.Address{}
}

// Bool returns a bool parameter, or false when unset
func (p ParamValues) Bool(name string) bool {
	if v, ok := p.values[name].(bool); ok {
		return v
	}
	return false
}

// Names returns the names of all resolved parameters in declaration order
func (p ParamValues) Names(order []TaskParameter) []string {
	var names []string
	for _, spec := range order {
		if p.IsSet(spec.Name) {
			names = append(names, spec.Name)
		}
	}
	return names
}
