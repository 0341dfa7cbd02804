package quoteengine

import "math/big"

// EncodedInput is a single (encoded_path, raw_amount) pair ready for
// submission to the remote quoter contract, positionally aligned to
// route_index*|amounts|+amount_index (§3 Invariant 1).
type EncodedInput struct {
	EncodedPath []byte
	RawAmount   *big.Int
	RouteIndex  int
	AmountIndex int
}

// PoolState captures the per-pool post-swap price state a successful
// quote reports.
type PoolState struct {
	SqrtPriceAfterX96       *big.Int
	InitializedTicksCrossed uint32
}

// RawQuoteResult is the per-input reply from a single quoter call.
type RawQuoteResult struct {
	Success bool

	OutputAmount *big.Int
	PoolStates   []PoolState
	GasEstimate  *big.Int
}

// FailureKind is the closed sum type of remote batch failures the
// executor and validator can produce.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureBlockHeaderMissing
	FailureTimeout
	FailureOutOfGas
	FailureSuccessRateTooLow
	FailureBlockConflict
)

func (k FailureKind) String() string {
	switch k {
	case FailureBlockHeaderMissing:
		return "BlockHeaderMissing"
	case FailureTimeout:
		return "Timeout"
	case FailureOutOfGas:
		return "OutOfGas"
	case FailureSuccessRateTooLow:
		return "SuccessRateTooLow"
	case FailureBlockConflict:
		return "BlockConflict"
	default:
		return "Unknown"
	}
}

// maxClassifiedMessageLen is the cap applied to a provider error message
// before it is attached to a Failed batch state (§4.2): provider errors
// routinely include full calldata, so we truncate before holding onto it.
const maxClassifiedMessageLen = 500

// ClassifiedFailure pairs a FailureKind with the (possibly truncated)
// provider message that produced it.
type ClassifiedFailure struct {
	Kind    FailureKind
	Message string
}

func truncateMessage(msg string) string {
	if len(msg) <= maxClassifiedMessageLen {
		return msg
	}
	return msg[:maxClassifiedMessageLen]
}

// batchStatus is the tag of the BatchState sum type.
type batchStatus int

const (
	batchPending batchStatus = iota
	batchSuccess
	batchFailed
)

// BatchState is the sum type over one chunk of EncodedInputs: Pending,
// Success, or Failed(kind). Only the fields relevant to the current
// status are meaningful; callers should branch on IsPending, IsSuccess
// or IsFailed before reading payload accessors (§4.3, §9 "Batch state as a closed sum
// type").
type BatchState struct {
	status batchStatus
	inputs []EncodedInput

	// Success payload.
	blockNumber         uint64
	results             []RawQuoteResult
	approxGasPerSuccess uint64

	// Failed payload.
	failure        ClassifiedFailure
	partialResults []RawQuoteResult
}

// NewPendingBatch wraps a chunk of inputs awaiting execution.
func NewPendingBatch(inputs []EncodedInput) BatchState {
	return BatchState{status: batchPending, inputs: inputs}
}

// NewSuccessBatch wraps a chunk's successful results.
func NewSuccessBatch(inputs []EncodedInput, blockNumber uint64, results []RawQuoteResult, approxGasPerSuccess uint64) BatchState {
	return BatchState{
		status:              batchSuccess,
		inputs:              inputs,
		blockNumber:         blockNumber,
		results:             results,
		approxGasPerSuccess: approxGasPerSuccess,
	}
}

// NewFailedBatch wraps a chunk's typed failure, optionally retaining
// partial results (used when the validator demotes a low-success-rate
// batch, §4.4).
func NewFailedBatch(inputs []EncodedInput, failure ClassifiedFailure, partialResults []RawQuoteResult) BatchState {
	failure.Message = truncateMessage(failure.Message)
	return BatchState{status: batchFailed, inputs: inputs, failure: failure, partialResults: partialResults}
}

func (b BatchState) IsPending() bool { return b.status == batchPending }
func (b BatchState) IsSuccess() bool { return b.status == batchSuccess }
func (b BatchState) IsFailed() bool  { return b.status == batchFailed }

func (b BatchState) Inputs() []EncodedInput { return b.inputs }

func (b BatchState) BlockNumber() uint64         { return b.blockNumber }
func (b BatchState) Results() []RawQuoteResult   { return b.results }
func (b BatchState) ApproxGasPerSuccess() uint64 { return b.approxGasPerSuccess }

func (b BatchState) Failure() ClassifiedFailure       { return b.failure }
func (b BatchState) PartialResults() []RawQuoteResult { return b.partialResults }

// QuoteRecord is the per-(route, amount) output. Absent marks a quoter
// call that failed for this specific input; Amount is still set, and the
// remaining fields are then zero values and must not be read.
type QuoteRecord struct {
	Amount Amount
	Absent bool

	OutputAmount *big.Int
	PoolStates   []PoolState
	GasEstimate  *big.Int
}

// RouteQuotes pairs a route with its per-amount QuoteRecords, aligned to
// the caller's original amount order.
type RouteQuotes struct {
	Route   RouteSpec
	Records []QuoteRecord
}
