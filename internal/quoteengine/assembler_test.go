package quoteengine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAssembleResultsHappyPath(t *testing.T) {
	routes := []RouteSpec{testRoute(t, 1), testRoute(t, 1)}
	amounts := []Amount{MustAmount(big.NewInt(10), "", 18), MustAmount(big.NewInt(20), "", 18)}

	flat := []RawQuoteResult{
		{Success: true, OutputAmount: big.NewInt(100)},
		{Success: true, OutputAmount: big.NewInt(200)},
		{Success: true, OutputAmount: big.NewInt(300)},
		{Success: true, OutputAmount: big.NewInt(400)},
	}

	out, err := AssembleResults(routes, amounts, flat, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0].Records, 2)
	require.False(t, out[0].Records[0].Absent)
	require.Equal(t, big.NewInt(100), out[0].Records[0].OutputAmount)
	require.Equal(t, big.NewInt(400), out[1].Records[1].OutputAmount)
}

func TestAssembleResultsAbsentOnFailure(t *testing.T) {
	routes := []RouteSpec{testRoute(t, 1)}
	amounts := []Amount{MustAmount(big.NewInt(10), "", 18)}

	flat := []RawQuoteResult{{Success: false}}

	out, err := AssembleResults(routes, amounts, flat, zap.NewNop())
	require.NoError(t, err)
	require.True(t, out[0].Records[0].Absent)
}

func TestAssembleResultsRejectsWrongLength(t *testing.T) {
	routes := []RouteSpec{testRoute(t, 1)}
	amounts := []Amount{MustAmount(big.NewInt(10), "", 18), MustAmount(big.NewInt(20), "", 18)}

	_, err := AssembleResults(routes, amounts, []RawQuoteResult{{Success: true}}, zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidInputLayout)
}

func TestAssembleResultsEmptyBoundary(t *testing.T) {
	out, err := AssembleResults(nil, nil, nil, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestPercentLabel(t *testing.T) {
	require.InDelta(t, 50.0, percentLabel(0, 2), 1e-9)
	require.InDelta(t, 100.0, percentLabel(1, 2), 1e-9)
}
