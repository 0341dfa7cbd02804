package quoteengine

import (
	"fmt"
	"math/big"
	"sync"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

// Cached, pre-parsed ABI argument definitions for the two quoter
// selectors. Parsing the tuple type definitions is comparatively
// expensive and the shape never changes across calls, so we parse once
// and reuse forever -- the same optimization viem-go's multicall action
// applies to its aggregate3 encode/decode Arguments.
var (
	quoterArgsOnce sync.Once
	quoterArgsErr  error

	exactInInputArgs   gethabi.Arguments
	exactInOutputArgs  gethabi.Arguments
	exactOutInputArgs  gethabi.Arguments
	exactOutOutputArgs gethabi.Arguments
)

func initQuoterArgs() {
	quoterArgsOnce.Do(func() {
		bytesTy, err := gethabi.NewType("bytes", "", nil)
		if err != nil {
			quoterArgsErr = err
			return
		}
		uint256Ty, err := gethabi.NewType("uint256", "", nil)
		if err != nil {
			quoterArgsErr = err
			return
		}
		uint160ArrTy, err := gethabi.NewType("uint160[]", "", nil)
		if err != nil {
			quoterArgsErr = err
			return
		}
		uint32ArrTy, err := gethabi.NewType("uint32[]", "", nil)
		if err != nil {
			quoterArgsErr = err
			return
		}

		exactInInputArgs = gethabi.Arguments{{Name: "path", Type: bytesTy}, {Name: "amountIn", Type: uint256Ty}}
		exactOutInputArgs = gethabi.Arguments{{Name: "path", Type: bytesTy}, {Name: "amountOut", Type: uint256Ty}}

		outputArgs := gethabi.Arguments{
			{Name: "amount", Type: uint256Ty},
			{Name: "sqrtPriceX96After", Type: uint160ArrTy},
			{Name: "initializedTicksCrossed", Type: uint32ArrTy},
			{Name: "gasEstimate", Type: uint256Ty},
		}
		exactInOutputArgs = outputArgs
		exactOutOutputArgs = outputArgs
	})
}

// quoterSelector returns the 4-byte function selector for the given
// direction. These are fixed, well-known Uniswap-v3-style quoter
// selectors (§6 "Consumed from the quoter contract ABI").
func quoterSelector(direction QuoteDirection) []byte {
	if direction == ExactOut {
		return []byte{0x2f, 0x80, 0xbb, 0x1d} // quoteExactOutput(bytes,uint256)
	}
	return []byte{0xcd, 0xca, 0x17, 0x53} // quoteExactInput(bytes,uint256)
}

// PackQuoterCall encodes a single (path, amount) pair into calldata for
// the quoter's ExactIn or ExactOut entry point.
func PackQuoterCall(direction QuoteDirection, path []byte, amount *big.Int) ([]byte, error) {
	initQuoterArgs()
	if quoterArgsErr != nil {
		return nil, fmt.Errorf("quoterabi: %w", quoterArgsErr)
	}

	args := exactInInputArgs
	if direction == ExactOut {
		args = exactOutInputArgs
	}

	packed, err := args.Pack(path, amount)
	if err != nil {
		return nil, fmt.Errorf("quoterabi: pack %s call: %w", direction, err)
	}

	out := make([]byte, 0, len(quoterSelector(direction))+len(packed))
	out = append(out, quoterSelector(direction)...)
	out = append(out, packed...)
	return out, nil
}

// UnpackQuoterResult decodes a quoter call's raw return data into a
// RawQuoteResult. success must be the aggregator's own per-call success
// flag; when false, data is not decoded.
func UnpackQuoterResult(direction QuoteDirection, success bool, data []byte) (RawQuoteResult, error) {
	if !success {
		return RawQuoteResult{Success: false}, nil
	}

	initQuoterArgs()
	if quoterArgsErr != nil {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: %w", quoterArgsErr)
	}

	args := exactInOutputArgs
	if direction == ExactOut {
		args = exactOutOutputArgs
	}

	values, err := args.Unpack(data)
	if err != nil {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: unpack %s result: %w", direction, err)
	}
	if len(values) != 4 {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: expected 4 output values, got %d", len(values))
	}

	outputAmount, ok := values[0].(*big.Int)
	if !ok {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: unexpected amount type %T", values[0])
	}
	sqrtPrices, ok := values[1].([]*big.Int)
	if !ok {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: unexpected sqrtPriceX96After type %T", values[1])
	}
	ticks, ok := values[2].([]uint32)
	if !ok {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: unexpected initializedTicksCrossed type %T", values[2])
	}
	gasEstimate, ok := values[3].(*big.Int)
	if !ok {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: unexpected gasEstimate type %T", values[3])
	}
	if len(sqrtPrices) != len(ticks) {
		return RawQuoteResult{}, fmt.Errorf("quoterabi: mismatched pool-state array lengths (%d sqrtPrices, %d ticks)", len(sqrtPrices), len(ticks))
	}

	states := make([]PoolState, len(sqrtPrices))
	for i := range sqrtPrices {
		// Convert to uint256 to check the sqrt price fits a 256-bit word
		// before it is handed back out as a big.Int for downstream
		// arithmetic.
		if _, overflow := uint256.FromBig(sqrtPrices[i]); overflow {
			return RawQuoteResult{}, fmt.Errorf("quoterabi: sqrtPriceX96After[%d] overflows uint256", i)
		}
		states[i] = PoolState{SqrtPriceAfterX96: sqrtPrices[i], InitializedTicksCrossed: ticks[i]}
	}

	return RawQuoteResult{
		Success:      true,
		OutputAmount: outputAmount,
		PoolStates:   states,
		GasEstimate:  gasEstimate,
	}, nil
}
