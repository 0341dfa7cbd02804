package quoteengine

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// QuoteDirection selects which side of the quoter ABI a route is priced
// against. ExactOut requires the path to be encoded in reverse so the
// on-chain quoter can walk back from the desired output to the required
// input.
type QuoteDirection int

const (
	ExactIn QuoteDirection = iota
	ExactOut
)

func (d QuoteDirection) String() string {
	if d == ExactOut {
		return "ExactOut"
	}
	return "ExactIn"
}

// PoolRef identifies one hop of a route: the two assets it trades between
// and a tier descriptor (fee tier, in hundredths of a basis point for a
// concentrated-liquidity pool, e.g. 3000 = 0.3%). The direction of
// traversal is given by the field order: the hop swaps AssetIn for
// AssetOut.
type PoolRef struct {
	AssetIn  common.Address
	AssetOut common.Address
	Tier     uint32
}

// RouteSpec is an ordered, non-empty sequence of pool references forming a
// directional path between two assets. Immutable for the lifetime of a
// single engine invocation.
type RouteSpec struct {
	Pools []PoolRef
}

// NewRouteSpec validates and builds a RouteSpec from an ordered pool list.
func NewRouteSpec(pools []PoolRef) (RouteSpec, error) {
	if len(pools) == 0 {
		return RouteSpec{}, fmt.Errorf("route: must contain at least one pool")
	}
	cp := make([]PoolRef, len(pools))
	copy(cp, pools)
	return RouteSpec{Pools: cp}, nil
}

// NumPools returns the number of hops in the route.
func (r RouteSpec) NumPools() int { return len(r.Pools) }

// reversed returns the pool sequence traversed back-to-front, with each
// pool's asset-in/asset-out swapped, as required to encode an ExactOut
// path (§4.1 "Encoding rule").
func (r RouteSpec) reversed() []PoolRef {
	n := len(r.Pools)
	out := make([]PoolRef, n)
	for i, p := range r.Pools {
		out[n-1-i] = PoolRef{AssetIn: p.AssetOut, AssetOut: p.AssetIn, Tier: p.Tier}
	}
	return out
}

// EncodePath packs the route into the opaque byte path the on-chain
// quoter consumes: a concentrated-liquidity-style multi-hop path of
// address|tier|address|tier|...|address, encoding each tier as a 3-byte
// big-endian fee. For ExactIn the bytes read from the route's first input
// asset to its last output asset. For ExactOut, the route is traversed in
// reverse first (§4.1 "Encoding rule"), so the bytes start at the route's
// last output asset and end at its first input asset.
func EncodePath(route RouteSpec, direction QuoteDirection) []byte {
	pools := route.Pools
	if direction == ExactOut {
		pools = route.reversed()
	}

	buf := make([]byte, 0, len(pools)*23+20)
	buf = append(buf, pools[0].AssetIn.Bytes()...)
	for _, p := range pools {
		var tierBytes [4]byte
		binary.BigEndian.PutUint32(tierBytes[:], p.Tier)
		buf = append(buf, tierBytes[1:]...) // 3-byte fee tier
		buf = append(buf, p.AssetOut.Bytes()...)
	}
	return buf
}
