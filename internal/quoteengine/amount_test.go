package quoteengine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAmountRejectsNegative(t *testing.T) {
	_, err := NewAmount(big.NewInt(-1), "USDC", 6)
	require.Error(t, err)
}

func TestNewAmountRejectsNil(t *testing.T) {
	_, err := NewAmount(nil, "USDC", 6)
	require.Error(t, err)
}

func TestAmountHexNoLeadingZeroNormalization(t *testing.T) {
	a := MustAmount(big.NewInt(255), "", 0)
	require.Equal(t, "0xff", a.Hex())
}

func TestAmountRawIsDefensiveCopy(t *testing.T) {
	a := MustAmount(big.NewInt(10), "", 0)
	raw := a.Raw()
	raw.SetInt64(999)
	require.Equal(t, big.NewInt(10), a.Raw())
}

func TestAmountString(t *testing.T) {
	a := MustAmount(big.NewInt(10), "USDC", 6)
	require.Equal(t, "10 USDC", a.String())

	b := MustAmount(big.NewInt(10), "", 6)
	require.Equal(t, "10", b.String())
}
