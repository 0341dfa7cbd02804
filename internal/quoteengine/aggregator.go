package quoteengine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AggregatorCallConfig carries the per-call overrides the Batch Executor
// applies to one multicall invocation (§4.2, §6 "Consumed from the
// multicall aggregator").
type AggregatorCallConfig struct {
	// BlockNumber pins the call to a specific height. Nil means "latest".
	BlockNumber *big.Int
	// GasLimitPerCall overrides the per-quote gas ceiling inside the
	// aggregator. Zero means "use the aggregator's default".
	GasLimitPerCall uint64
}

// AggregatorCallResult is the aggregator's reply to one Execute call.
type AggregatorCallResult struct {
	BlockNumber             uint64
	Results                 []AggregatorItemResult
	ApproxGasUsedPerSuccess uint64
}

// AggregatorItemResult is one positionally-aligned reply within a
// multicall.
type AggregatorItemResult struct {
	Success bool
	// Result holds the raw ABI-encoded return data for a successful call.
	Result []byte
}

// Aggregator is the external multicall aggregator collaborator (§6
// "Consumed from the multicall aggregator"). A single operation invokes
// the target contract with a list of calldata payloads and returns the
// per-call results together with the block height they were produced at.
// Implementations are expected to be safe for concurrent use (§5 "Shared
// resources").
type Aggregator interface {
	Execute(ctx context.Context, target common.Address, calldata [][]byte, cfg AggregatorCallConfig) (AggregatorCallResult, error)

	// CurrentBlockNumber fetches the chain's current block height, used
	// when the caller does not pin one (§6 "provider_config.block_number").
	CurrentBlockNumber(ctx context.Context) (uint64, error)
}
