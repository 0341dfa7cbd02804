// Package faketh provides a scriptable, deterministic Aggregator double
// for driving the quote engine's retry state machine in tests without a
// live chain connection.
package faketh

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/routelayer/quote-engine/internal/quoteengine"
)

var (
	quoterReturnArgsOnce sync.Once
	quoterReturnArgsVal  gethabi.Arguments
	quoterReturnArgsErr  error
)

// quoterReturnArgs builds the same (amount, sqrtPriceX96After[],
// initializedTicksCrossed[], gasEstimate) ABI shape the real quoter
// contract returns, parsed once and reused across every scripted call.
func quoterReturnArgs() (gethabi.Arguments, error) {
	quoterReturnArgsOnce.Do(func() {
		uint256Ty, err := gethabi.NewType("uint256", "", nil)
		if err != nil {
			quoterReturnArgsErr = err
			return
		}
		uint160ArrTy, err := gethabi.NewType("uint160[]", "", nil)
		if err != nil {
			quoterReturnArgsErr = err
			return
		}
		uint32ArrTy, err := gethabi.NewType("uint32[]", "", nil)
		if err != nil {
			quoterReturnArgsErr = err
			return
		}
		quoterReturnArgsVal = gethabi.Arguments{
			{Name: "amount", Type: uint256Ty},
			{Name: "sqrtPriceX96After", Type: uint160ArrTy},
			{Name: "initializedTicksCrossed", Type: uint32ArrTy},
			{Name: "gasEstimate", Type: uint256Ty},
		}
	})
	return quoterReturnArgsVal, quoterReturnArgsErr
}

// Response is one scripted outcome for a single Execute call.
type Response struct {
	// Err, if set, makes Execute return this error as-is (the engine
	// classifies it via the usual provider-message matching).
	Err error

	// BlockNumber is reported back when Err is nil, unless overridden by
	// BlockNumberByFirstAmount for this particular batch.
	BlockNumber uint64

	// BlockNumberByFirstAmount overrides BlockNumber for a batch whose
	// first input's raw amount decimal string matches a key here. This
	// lets a scenario give sibling batches of the same attempt distinct
	// block numbers (e.g. to script a block-conflict) without depending
	// on the nondeterministic order concurrent batch goroutines reach
	// Execute in.
	BlockNumberByFirstAmount map[string]uint64

	// PerInput, keyed by the raw amount's decimal string, gives the
	// success flag and output amount for that specific encoded input.
	// Inputs not present here default to a successful quote whose
	// output amount equals the input amount scaled by DefaultPriceNum
	// and DefaultPriceDen, letting scenarios only specify the results
	// that matter.
	PerInput map[string]InputOutcome

	ApproxGasUsedPerSuccess uint64
}

// InputOutcome pins the outcome of one specific quoter call within a
// multicall response.
type InputOutcome struct {
	Success      bool
	OutputAmount *big.Int
}

// Aggregator is a scripted Aggregator keyed by attempt number
// (1-indexed): every batch task of a given attempt receives the
// Response registered for that attempt. Since the engine always fully
// drains one attempt's batch tasks (joining them all) before starting
// the next, the fake can safely auto-advance its attempt counter once
// it has seen batchesPerAttempt[attempt-1] calls -- the caller supplies
// that schedule up front since it is fully determined by the planner's
// chunking math for a given scenario.
type Aggregator struct {
	mu                   sync.Mutex
	attempt              int
	consumedThisAttempt  int
	batchesPerAttempt    []int
	byAttempt            map[int]Response
	currentBlock         uint64

	// DefaultPriceNum/DefaultPriceDen scale an unscripted input's raw
	// amount into its synthetic output amount: output = amount *
	// num / den. Defaults to 2/1 (every swap doubles the input) unless
	// overridden.
	DefaultPriceNum *big.Int
	DefaultPriceDen *big.Int

	calls []CallRecord
}

// CallRecord captures one observed Execute invocation, for scenario
// assertions that want to inspect what the engine actually sent.
type CallRecord struct {
	Attempt         int
	Target          common.Address
	NumCalls        int
	GasLimitPerCall uint64
	BlockNumber     *big.Int
}

// New builds a faketh.Aggregator. byAttempt maps a 1-indexed attempt
// number to the Response every batch task of that attempt should
// receive. batchesPerAttempt[i] is the number of Execute calls expected
// during attempt i+1; once exhausted, the last entry repeats for any
// further attempt. A nil/empty schedule defaults to one batch per
// attempt. currentBlock is what CurrentBlockNumber returns when the
// engine doesn't pin a block itself.
func New(byAttempt map[int]Response, batchesPerAttempt []int, currentBlock uint64) *Aggregator {
	return &Aggregator{
		byAttempt:         byAttempt,
		batchesPerAttempt: batchesPerAttempt,
		currentBlock:      currentBlock,
		DefaultPriceNum:   big.NewInt(2),
		DefaultPriceDen:   big.NewInt(1),
	}
}

// CurrentBlockNumber returns the scripted current block height.
func (a *Aggregator) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	return a.currentBlock, nil
}

// Calls returns every Execute invocation observed so far, in order.
func (a *Aggregator) Calls() []CallRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]CallRecord, len(a.calls))
	copy(out, a.calls)
	return out
}

func (a *Aggregator) expectedBatchesForAttempt(attempt int) int {
	if len(a.batchesPerAttempt) == 0 {
		return 1
	}
	if attempt-1 < len(a.batchesPerAttempt) {
		return a.batchesPerAttempt[attempt-1]
	}
	return a.batchesPerAttempt[len(a.batchesPerAttempt)-1]
}

// Execute implements quoteengine.Aggregator.
func (a *Aggregator) Execute(ctx context.Context, target common.Address, calldata [][]byte, cfg quoteengine.AggregatorCallConfig) (quoteengine.AggregatorCallResult, error) {
	a.mu.Lock()
	if a.attempt == 0 {
		a.attempt = 1
	}
	attempt := a.attempt
	a.consumedThisAttempt++
	if a.consumedThisAttempt >= a.expectedBatchesForAttempt(attempt) {
		a.attempt++
		a.consumedThisAttempt = 0
	}
	a.calls = append(a.calls, CallRecord{
		Attempt:         attempt,
		Target:          target,
		NumCalls:        len(calldata),
		GasLimitPerCall: cfg.GasLimitPerCall,
		BlockNumber:     cfg.BlockNumber,
	})
	resp, ok := a.byAttempt[attempt]
	a.mu.Unlock()

	if !ok {
		return quoteengine.AggregatorCallResult{}, fmt.Errorf("faketh: no scripted response for attempt %d", attempt)
	}
	if resp.Err != nil {
		return quoteengine.AggregatorCallResult{}, resp.Err
	}

	blockNumber := resp.BlockNumber
	items := make([]quoteengine.AggregatorItemResult, len(calldata))
	for i, cd := range calldata {
		amount, key, err := decodeAmount(cd)
		if err != nil {
			return quoteengine.AggregatorCallResult{}, err
		}
		if i == 0 {
			if override, ok := resp.BlockNumberByFirstAmount[key]; ok {
				blockNumber = override
			}
		}
		outcome, pinned := resp.PerInput[key]
		if !pinned {
			outcome = InputOutcome{
				Success:      true,
				OutputAmount: scale(amount, a.DefaultPriceNum, a.DefaultPriceDen),
			}
		}
		returnData, err := encodeQuoterReturn(outcome)
		if err != nil {
			return quoteengine.AggregatorCallResult{}, err
		}
		items[i] = quoteengine.AggregatorItemResult{Success: outcome.Success, Result: returnData}
	}

	return quoteengine.AggregatorCallResult{
		BlockNumber:             blockNumber,
		Results:                 items,
		ApproxGasUsedPerSuccess: resp.ApproxGasUsedPerSuccess,
	}, nil
}

var errUnsupportedCalldata = errors.New("faketh: calldata too short to contain a packed amount")

// decodeAmount extracts the "amount" word from quoter calldata encoding
// (path bytes, amount uint256): after the 4-byte selector, the head is
// [offset-to-path (32 bytes), amount (32 bytes)] since amount is the
// only static argument -- sufficient here since the fake only needs a
// stable lookup key per input, not a full ABI decode.
func decodeAmount(calldata []byte) (*big.Int, string, error) {
	const headStart = 4 + 32
	const headEnd = headStart + 32
	if len(calldata) < headEnd {
		return nil, "", errUnsupportedCalldata
	}
	amount := new(big.Int).SetBytes(calldata[headStart:headEnd])
	return amount, amount.String(), nil
}

func scale(amount, num, den *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, num)
	return out.Div(out, den)
}

// encodeQuoterReturn ABI-encodes the (amount, sqrtPriceX96After[],
// initializedTicksCrossed[], gasEstimate) tuple the real quoter contract
// would return. The engine's cached argument definitions are unexported
// and its exported helpers only pack calls and unpack results, so the
// fake hand-builds a single-pool result using a minimal local ABI
// definition of the same shape, which the engine's UnpackQuoterResult
// decodes like a real quoter reply.
func encodeQuoterReturn(outcome InputOutcome) ([]byte, error) {
	if !outcome.Success {
		return nil, nil
	}
	args, err := quoterReturnArgs()
	if err != nil {
		return nil, err
	}
	sqrtPrices := []*big.Int{big.NewInt(1 << 62)}
	ticks := []uint32{0}
	gasEstimate := big.NewInt(100_000)
	return args.Pack(outcome.OutputAmount, sqrtPrices, ticks, gasEstimate)
}
