package quoteengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// multicall3Address is the canonical, identically-deployed Multicall3
// address across EVM chains.
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Cached aggregate3 ABI argument definitions, parsed once and reused for
// every call -- the same optimization viem-go's actions/public/multicall.go
// applies via its own aggregate3EncodeArgs/aggregate3DecodeArgs.
var (
	aggregate3ArgsOnce sync.Once
	aggregate3ArgsErr  error
	aggregate3Encode   gethabi.Arguments
	aggregate3Decode   gethabi.Arguments
)

// aggregate3Selector is the 4-byte selector for
// aggregate3((address,bool,bytes)[]).
var aggregate3Selector = []byte{0x82, 0xad, 0x56, 0xcb}

func initAggregate3Args() {
	aggregate3ArgsOnce.Do(func() {
		callTy, err := gethabi.NewType("tuple[]", "", []gethabi.ArgumentMarshaling{
			{Name: "target", Type: "address"},
			{Name: "allowFailure", Type: "bool"},
			{Name: "callData", Type: "bytes"},
		})
		if err != nil {
			aggregate3ArgsErr = err
			return
		}
		resultTy, err := gethabi.NewType("tuple[]", "", []gethabi.ArgumentMarshaling{
			{Name: "success", Type: "bool"},
			{Name: "returnData", Type: "bytes"},
		})
		if err != nil {
			aggregate3ArgsErr = err
			return
		}
		aggregate3Encode = gethabi.Arguments{{Type: callTy}}
		aggregate3Decode = gethabi.Arguments{{Type: resultTy}}
	})
}

// call3 mirrors Multicall3's Call3 struct. Field names match the ABI
// tuple's member names case-insensitively, which is how go-ethereum's
// abi package maps Go struct fields to tuple components on Pack/Unpack.
type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// call3Result mirrors Multicall3's Result struct.
type call3Result struct {
	Success    bool
	ReturnData []byte
}

// EthAggregator is an Aggregator backed by a live go-ethereum JSON-RPC
// client, issuing a single eth_call per Execute invocation against a
// deployed Multicall3 contract (§6 "Consumed from the multicall
// aggregator"). This is the only out-of-process collaborator the engine
// talks to.
type EthAggregator struct {
	client            *ethclient.Client
	multicallOverride *common.Address
}

// NewEthAggregator builds an Aggregator from a dialed ethclient.
func NewEthAggregator(client *ethclient.Client) *EthAggregator {
	return &EthAggregator{client: client}
}

// WithMulticallAddress overrides the default Multicall3 deployment
// address, for chains that deploy it elsewhere or not at all.
func (a *EthAggregator) WithMulticallAddress(addr common.Address) *EthAggregator {
	a.multicallOverride = &addr
	return a
}

func (a *EthAggregator) multicallAddress() common.Address {
	if a.multicallOverride != nil {
		return *a.multicallOverride
	}
	return multicall3Address
}

// CurrentBlockNumber fetches the chain's current block height.
func (a *EthAggregator) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return a.client.BlockNumber(ctx)
}

// Execute packs the given calldata list into a single aggregate3 call
// against target, issues it as one eth_call pinned to cfg.BlockNumber
// (or "latest" if nil), and decodes the per-call results.
//
// cfg.GasLimitPerCall is accepted for interface symmetry with the spec's
// "gas_limit_per_call" config (§6): Multicall3's aggregate3 has no
// per-call gas parameter in its ABI, so the eth_call's overall Gas field
// is set to the override multiplied by the number of calls, bounding the
// whole batch -- an out-of-gas aggregator error still classifies the
// same way (§4.2).
func (a *EthAggregator) Execute(ctx context.Context, target common.Address, calldata [][]byte, cfg AggregatorCallConfig) (AggregatorCallResult, error) {
	initAggregate3Args()
	if aggregate3ArgsErr != nil {
		return AggregatorCallResult{}, fmt.Errorf("aggregator: %w", aggregate3ArgsErr)
	}

	calls := make([]call3, len(calldata))
	for i, cd := range calldata {
		calls[i] = call3{Target: target, AllowFailure: true, CallData: cd}
	}

	packedArgs, err := aggregate3Encode.Pack(calls)
	if err != nil {
		return AggregatorCallResult{}, fmt.Errorf("aggregator: pack aggregate3 calldata: %w", err)
	}

	input := make([]byte, 0, len(aggregate3Selector)+len(packedArgs))
	input = append(input, aggregate3Selector...)
	input = append(input, packedArgs...)

	to := a.multicallAddress()
	msg := ethereum.CallMsg{
		To:   &to,
		Data: input,
		Gas:  cfg.GasLimitPerCall * uint64(len(calldata)),
	}

	out, err := a.client.CallContract(ctx, msg, cfg.BlockNumber)
	if err != nil {
		return AggregatorCallResult{}, err
	}

	values, err := aggregate3Decode.Unpack(out)
	if err != nil {
		return AggregatorCallResult{}, fmt.Errorf("aggregator: unpack aggregate3 result: %w", err)
	}
	results, err := decodeCall3Results(values)
	if err != nil {
		return AggregatorCallResult{}, fmt.Errorf("aggregator: %w", err)
	}
	if len(results) != len(calldata) {
		return AggregatorCallResult{}, fmt.Errorf("aggregator: aggregate3 returned %d results for %d calls", len(results), len(calldata))
	}

	var resolvedBlock uint64
	if cfg.BlockNumber != nil {
		resolvedBlock = cfg.BlockNumber.Uint64()
	} else {
		resolvedBlock, err = a.client.BlockNumber(ctx)
		if err != nil {
			return AggregatorCallResult{}, fmt.Errorf("aggregator: resolve block number: %w", err)
		}
	}

	items := make([]AggregatorItemResult, len(results))
	var gasSum, gasSamples uint64
	for i, r := range results {
		items[i] = AggregatorItemResult{Success: r.Success, Result: r.ReturnData}
		if r.Success {
			gasSum += estimateCalldataGas(calldata[i])
			gasSamples++
		}
	}
	var approxGas uint64
	if gasSamples > 0 {
		approxGas = gasSum / gasSamples
	}

	return AggregatorCallResult{
		BlockNumber:             resolvedBlock,
		Results:                 items,
		ApproxGasUsedPerSuccess: approxGas,
	}, nil
}

func decodeCall3Results(values []interface{}) ([]call3Result, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("expected 1 decoded value, got %d", len(values))
	}
	// go-ethereum builds tuple structs with a json tag per field, so the
	// asserted type must carry the same tags to be identical.
	raw, ok := values[0].([]struct {
		Success    bool   `json:"success"`
		ReturnData []byte `json:"returnData"`
	})
	if !ok {
		return nil, fmt.Errorf("unexpected aggregate3 result type %T", values[0])
	}
	out := make([]call3Result, len(raw))
	for i, r := range raw {
		out[i] = call3Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return out, nil
}

// estimateCalldataGas is a coarse, local stand-in for the real
// gas-cost heuristic models the spec explicitly places out of scope
// (§1 "Out of scope"): a rough intrinsic-gas estimate from calldata
// size, used only to populate the aggregator's reported
// approx_gas_used_per_success_call when the live node doesn't break it
// out per call.
func estimateCalldataGas(data []byte) uint64 {
	const base = 21_000
	var nonZero, zero uint64
	for _, b := range data {
		if b == 0 {
			zero++
		} else {
			nonZero++
		}
	}
	return base + zero*4 + nonZero*16
}
