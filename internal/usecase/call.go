package usecase

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/vaultctl/internal/domain"
)

// CallResult is the outcome of a dynamic method call
type CallResult struct {
	Signature string
	// Outputs holds the decoded return values of a read-only call
	Outputs []string
	// Receipt is set for state-changing calls
	Receipt *types.Receipt
}

// CallMethod invokes method on an artifact-backed handle. The method is a
// full signature or an unambiguous name, args are textual and encoded
// according to the method inputs.
func (s *StepExecutor) CallMethod(ctx context.Context, handle *Handle, method string, args []string) (*CallResult, error) {
	if handle.Artifact == nil {
		return nil, fmt.Errorf("no ABI loaded for %s", handle.Ref.Name)
	}

	m, err := handle.Artifact.Method(method)
	if err != nil {
		return nil, err
	}

	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", m.Sig, len(m.Inputs), len(args))
	}

	values := make([]any, len(args))
	for i, input := range m.Inputs {
		v, err := parseArgument(input.Type, strings.TrimSpace(args[i]))
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s) of %s: %w", i, input.Type.String(), m.Sig, err)
		}
		values[i] = v
	}

	packed, err := m.Inputs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Sig, err)
	}
	data := append(append([]byte{}, m.ID...), packed...)
	result := &CallResult{Signature: m.Sig}

	if m.IsConstant() {
		out, err := s.ledger.CallContract(ctx, domain.CallMsg{From: handle.Signer, To: handle.Address(), Data: data})
		if err != nil {
			return nil, fmt.Errorf("%s on %s: %w", m.Sig, handle.Address().Hex(), err)
		}
		decoded, err := m.Outputs.Unpack(out)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s result: %w", m.Sig, err)
		}
		for _, v := range decoded {
			result.Outputs = append(result.Outputs, formatValue(v))
		}
		return result, nil
	}

	s.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageTransacting,
		Message: fmt.Sprintf("Calling %s on %s", m.Sig, handle.Ref.Name),
		Spinner: true,
	})

	to := handle.Address()
	receipt, err := s.submit(ctx, domain.TxRequest{From: handle.Signer, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", m.Sig, to.Hex(), err)
	}
	s.progress.OnProgress(ctx, ProgressEvent{Stage: StageConfirmed, Metadata: receipt})

	result.Receipt = receipt
	return result, nil
}

// parseArgument converts a textual argument into the Go value the ABI packer
// expects for t
func parseArgument(t abi.Type, raw string) (any, error) {
	switch t.T {
	case abi.AddressTy:
		if raw == domain.ZeroAddressPlaceholder {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil

	case abi.BoolTy:
		return strconv.ParseBool(raw)

	case abi.StringTy:
		return raw, nil

	case abi.IntTy, abi.UintTy:
		n, ok := new(big.Int).SetString(strings.ReplaceAll(raw, "_", ""), 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %q for unsigned type", raw)
		}
		if !fitsInt(n, t) {
			return nil, fmt.Errorf("value %s overflows %s", n, t.String())
		}
		// only the native widths map to Go integer kinds, the rest pack from *big.Int
		switch t.Size {
		case 8, 16, 32, 64:
		default:
			return n, nil
		}
		v := reflect.New(t.GetType()).Elem()
		if t.T == abi.UintTy {
			v.SetUint(n.Uint64())
		} else {
			v.SetInt(n.Int64())
		}
		return v.Interface(), nil

	case abi.BytesTy:
		return hexutil.Decode(raw)

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

// fitsInt reports whether n is representable in the integer type t
func fitsInt(n *big.Int, t abi.Type) bool {
	if t.T == abi.UintTy {
		return n.BitLen() <= t.Size
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	if n.Sign() < 0 {
		return new(big.Int).Neg(n).Cmp(limit) <= 0
	}
	return n.Cmp(limit) < 0
}

func formatValue(v any) string {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case []byte:
		return hexutil.Encode(val)
	case *big.Int:
		return val.String()
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		return fmt.Sprint(v)
	}
}
