package quoteengine

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// classifyError matches a raw provider error message against the ordered
// substring table of §4.2, producing the named FailureKind. The message
// is truncated to maxClassifiedMessageLen before being attached to the
// failure (provider errors routinely include full calldata).
func classifyError(err error) ClassifiedFailure {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "header not found"):
		return ClassifiedFailure{Kind: FailureBlockHeaderMissing, Message: truncateMessage(msg)}
	case strings.Contains(lower, "timeout"):
		return ClassifiedFailure{Kind: FailureTimeout, Message: truncateMessage(msg)}
	case strings.Contains(lower, "out of gas"):
		return ClassifiedFailure{Kind: FailureOutOfGas, Message: truncateMessage(msg)}
	default:
		return ClassifiedFailure{Kind: FailureUnknown, Message: truncateMessage(msg)}
	}
}

// executeBatch invokes the aggregator for one chunk of EncodedInputs,
// packing each into a quoter call with the given direction, and returns
// either a Success or Failed BatchState (§4.2). It never returns a Go
// error itself -- all failure is captured in the returned BatchState, so
// the caller can fan out many of these concurrently and join on slice
// writes alone.
func executeBatch(
	ctx context.Context,
	agg Aggregator,
	quoterAddress common.Address,
	direction QuoteDirection,
	chunk []EncodedInput,
	blockNumber *big.Int,
	gasLimitPerCall uint64,
	logger *zap.Logger,
) BatchState {
	calldata := make([][]byte, len(chunk))
	for i, in := range chunk {
		packed, err := PackQuoterCall(direction, in.EncodedPath, in.RawAmount)
		if err != nil {
			return NewFailedBatch(chunk, ClassifiedFailure{Kind: FailureUnknown, Message: err.Error()}, nil)
		}
		calldata[i] = packed
	}

	result, err := agg.Execute(ctx, quoterAddress, calldata, AggregatorCallConfig{
		BlockNumber:     blockNumber,
		GasLimitPerCall: gasLimitPerCall,
	})
	if err != nil {
		classified := classifyError(err)
		logger.Debug("batch execution failed",
			zap.String("kind", classified.Kind.String()),
			zap.Int("chunk_size", len(chunk)),
			zap.String("message", classified.Message),
		)
		return NewFailedBatch(chunk, classified, nil)
	}

	if len(result.Results) != len(chunk) {
		return NewFailedBatch(chunk, ClassifiedFailure{
			Kind:    FailureUnknown,
			Message: "aggregator returned a mismatched result count",
		}, nil)
	}

	results := make([]RawQuoteResult, len(chunk))
	for i, item := range result.Results {
		decoded, err := UnpackQuoterResult(direction, item.Success, item.Result)
		if err != nil {
			// A decode failure on an aggregator-reported success is treated
			// as a per-input failure, not a batch failure: the call itself
			// succeeded, the quoter simply returned something we couldn't
			// parse for this one input.
			decoded = RawQuoteResult{Success: false}
		}
		results[i] = decoded
	}

	return NewSuccessBatch(chunk, result.BlockNumber, results, result.ApproxGasUsedPerSuccess)
}
