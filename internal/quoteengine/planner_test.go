package quoteengine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testRoute(t *testing.T, n int) RouteSpec {
	t.Helper()
	pools := make([]PoolRef, n)
	for i := range pools {
		pools[i] = PoolRef{
			AssetIn:  common.BigToAddress(big.NewInt(int64(2*i + 1))),
			AssetOut: common.BigToAddress(big.NewInt(int64(2*i + 2))),
			Tier:     3000,
		}
	}
	route, err := NewRouteSpec(pools)
	require.NoError(t, err)
	return route
}

func TestPlanInputsLayout(t *testing.T) {
	routes := []RouteSpec{testRoute(t, 1), testRoute(t, 2)}
	amounts := []Amount{
		MustAmount(big.NewInt(10), "USDC", 6),
		MustAmount(big.NewInt(20), "USDC", 6),
		MustAmount(big.NewInt(30), "USDC", 6),
	}

	inputs := PlanInputs(routes, amounts, ExactIn)
	require.Len(t, inputs, len(routes)*len(amounts))

	for i, in := range inputs {
		require.Equal(t, i/len(amounts), in.RouteIndex)
		require.Equal(t, i%len(amounts), in.AmountIndex)
	}

	// Same route's encoded path is reused across its amounts.
	require.Equal(t, inputs[0].EncodedPath, inputs[1].EncodedPath)
	require.Equal(t, inputs[0].EncodedPath, inputs[2].EncodedPath)
	require.NotEqual(t, inputs[0].EncodedPath, inputs[3].EncodedPath)
}

func TestPlanInputsExactOutReversesPath(t *testing.T) {
	route := testRoute(t, 2)
	amounts := []Amount{MustAmount(big.NewInt(1), "", 18)}

	in := PlanInputs([]RouteSpec{route}, amounts, ExactIn)
	out := PlanInputs([]RouteSpec{route}, amounts, ExactOut)

	require.NotEqual(t, in[0].EncodedPath, out[0].EncodedPath)
	require.Equal(t, EncodePath(route, ExactOut), out[0].EncodedPath)
}

func TestChunkInputsEvenSplit(t *testing.T) {
	inputs := make([]EncodedInput, 10)
	for i := range inputs {
		inputs[i] = EncodedInput{RawAmount: big.NewInt(int64(i))}
	}

	chunks, err := ChunkInputs(inputs, 4)
	require.NoError(t, err)

	total := 0
	minSize, maxSize := -1, -1
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 4)
		total += len(c)
		if minSize == -1 || len(c) < minSize {
			minSize = len(c)
		}
		if len(c) > maxSize {
			maxSize = len(c)
		}
	}
	require.Equal(t, len(inputs), total)
	require.LessOrEqual(t, maxSize-minSize, 1)
}

func TestChunkInputsEmpty(t *testing.T) {
	chunks, err := ChunkInputs(nil, 10)
	require.NoError(t, err)
	require.Nil(t, chunks)
}

func TestChunkInputsRejectsNonPositiveChunk(t *testing.T) {
	inputs := []EncodedInput{{RawAmount: big.NewInt(1)}}
	_, err := ChunkInputs(inputs, 0)
	require.Error(t, err)
}

func TestChunkInputsSingleInput(t *testing.T) {
	inputs := []EncodedInput{{RawAmount: big.NewInt(1)}}
	chunks, err := ChunkInputs(inputs, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 1)
}
