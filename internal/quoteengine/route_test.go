package quoteengine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNewRouteSpecRejectsEmpty(t *testing.T) {
	_, err := NewRouteSpec(nil)
	require.Error(t, err)
}

func TestEncodePathSinglePool(t *testing.T) {
	a := common.BigToAddress(big.NewInt(1))
	b := common.BigToAddress(big.NewInt(2))
	route, err := NewRouteSpec([]PoolRef{{AssetIn: a, AssetOut: b, Tier: 500}})
	require.NoError(t, err)

	path := EncodePath(route, ExactIn)
	require.Len(t, path, 20+3+20)
	require.Equal(t, a.Bytes(), path[:20])
	require.Equal(t, []byte{0x00, 0x01, 0xf4}, path[20:23])
	require.Equal(t, b.Bytes(), path[23:])
}

func TestEncodePathExactOutReverses(t *testing.T) {
	a := common.BigToAddress(big.NewInt(1))
	b := common.BigToAddress(big.NewInt(2))
	c := common.BigToAddress(big.NewInt(3))
	route, err := NewRouteSpec([]PoolRef{
		{AssetIn: a, AssetOut: b, Tier: 500},
		{AssetIn: b, AssetOut: c, Tier: 3000},
	})
	require.NoError(t, err)

	path := EncodePath(route, ExactOut)
	require.Equal(t, c.Bytes(), path[:20])
	require.Equal(t, a.Bytes(), path[len(path)-20:])
}

