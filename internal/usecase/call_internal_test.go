package usecase

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustType(t *testing.T, name string) abi.Type {
	t.Helper()
	typ, err := abi.NewType(name, "", nil)
	require.NoError(t, err)
	return typ
}

func TestParseArgument_Integers(t *testing.T) {
	tests := []struct {
		typ     string
		raw     string
		want    any
		wantErr string
	}{
		{typ: "uint8", raw: "255", want: uint8(255)},
		{typ: "uint8", raw: "256", wantErr: "overflows uint8"},
		{typ: "int16", raw: "-32768", want: int16(-32768)},
		{typ: "int16", raw: "32768", wantErr: "overflows int16"},
		{typ: "uint64", raw: "0xffffffffffffffff", want: uint64(1<<64 - 1)},
		{typ: "uint24", raw: "3000", want: big.NewInt(3000)},
		{typ: "uint24", raw: "16777216", wantErr: "overflows uint24"},
		{typ: "int48", raw: "-140737488355328", want: big.NewInt(-140737488355328)},
		{typ: "int48", raw: "140737488355328", wantErr: "overflows int48"},
		{typ: "uint40", raw: "-1", wantErr: "negative value"},
		{typ: "uint256", raw: "1_000_000", want: big.NewInt(1_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.typ+" "+tt.raw, func(t *testing.T) {
			typ := mustType(t, tt.typ)

			got, err := parseArgument(typ, tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			_, err = abi.Arguments{{Type: typ}}.Pack(got)
			assert.NoError(t, err)
		})
	}
}
