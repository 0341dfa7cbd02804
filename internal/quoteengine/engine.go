package quoteengine

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config carries every recognized option the caller may set on an
// invocation (§6 "Configuration"). The zero value is not generally
// usable -- callers should start from DefaultConfig.
type Config struct {
	MulticallChunk              int
	GasLimitPerCall             uint64
	QuoteMinSuccessRate         float64
	SuccessRateFailureOverrides SuccessRateOverrides
	Rollback                    bool
	RetryOptions                RetryOptions
	QuoterAddressOverride       *common.Address
	BlockNumber                 *big.Int
	BlockTolerance              BlockToleranceConfig
}

// DefaultConfig returns reasonable defaults, generalized from the
// teacher's own submitter defaults (batch size and gas ceilings sized
// for a typical archive-node eth_call).
func DefaultConfig() Config {
	return Config{
		MulticallChunk:      200,
		GasLimitPerCall:     2_000_000,
		QuoteMinSuccessRate: 0,
		SuccessRateFailureOverrides: SuccessRateOverrides{
			GasLimitOverride:       3_000_000,
			MulticallChunkOverride: 100,
		},
		Rollback:       true,
		RetryOptions:   DefaultRetryOptions(),
		BlockTolerance: StrictBlockTolerance(),
	}
}

// Engine is the stateless batched quote fetcher (§2 "System overview").
// A single Engine value is safe to share across concurrent calls: all
// mutable state lives on the stack of a single GetQuotesManyExactIn/Out
// invocation (§5 "Shared resources").
type Engine struct {
	aggregator Aggregator
	chainID    uint64
	logger     *zap.Logger
	metrics    *engineMetrics
}

// NewEngine builds an Engine against the given Aggregator collaborator
// and chain ID, used to resolve the quoter contract address from the
// chain registry unless Config.QuoterAddressOverride is set.
func NewEngine(aggregator Aggregator, chainID uint64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = nopLogger()
	}
	return &Engine{
		aggregator: aggregator,
		chainID:    chainID,
		logger:     logger,
		metrics:    newEngineMetrics(),
	}
}

// GetQuotesManyExactIn is the ExactIn entry point (§6 "Exposed to
// callers").
func (e *Engine) GetQuotesManyExactIn(ctx context.Context, amounts []Amount, routes []RouteSpec, cfg Config) ([]RouteQuotes, uint64, error) {
	return e.getQuotesMany(ctx, amounts, routes, ExactIn, cfg)
}

// GetQuotesManyExactOut is the ExactOut entry point (§6 "Exposed to
// callers").
func (e *Engine) GetQuotesManyExactOut(ctx context.Context, amounts []Amount, routes []RouteSpec, cfg Config) ([]RouteQuotes, uint64, error) {
	return e.getQuotesMany(ctx, amounts, routes, ExactOut, cfg)
}

func (e *Engine) getQuotesMany(ctx context.Context, amounts []Amount, routes []RouteSpec, direction QuoteDirection, cfg Config) ([]RouteQuotes, uint64, error) {
	callID := uuid.New().String()
	logger := e.logger.With(callFields(callID, zap.String("direction", direction.String()))...)

	if len(routes) == 0 || len(amounts) == 0 {
		return nil, 0, nil
	}

	quoterAddress, ok := QuoterAddress(e.chainID, cfg.QuoterAddressOverride)
	if !ok {
		return nil, 0, newCallFailure("fatal", nil, ErrQuoterAddressMissing)
	}

	inputs := PlanInputs(routes, amounts, direction)
	chunks, err := ChunkInputs(inputs, cfg.MulticallChunk)
	if err != nil {
		return nil, 0, newCallFailure("fatal", nil, fmt.Errorf("%w: %v", ErrInvalidInputLayout, err))
	}
	tracker := newStateTracker(chunks)

	blockNumber, err := e.resolveBlockNumber(ctx, cfg.BlockNumber)
	if err != nil {
		return nil, 0, newCallFailure("fatal", nil, err)
	}

	flags := &retryFlags{expectedCalls: len(chunks)}
	e.metrics.expectedCalls.Add(float64(flags.expectedCalls))

	effectiveGasLimit := cfg.GasLimitPerCall
	effectiveMulticallChunk := cfg.MulticallChunk
	backoffLoop := newAttemptBackoff(cfg.RetryOptions)

	var lastAttemptFailure *AttemptFailure

	for attempt := 1; ; attempt++ {
		pendingIdx := tracker.pendingIndices()

		e.executeAttempt(ctx, tracker, pendingIdx, quoterAddress, direction, blockNumber, effectiveGasLimit, flags, logger)

		e.demoteLowSuccessRate(tracker, cfg.QuoteMinSuccessRate, flags.retriedSuccessRate)

		successes, failures, pendingCount := tracker.partition()
		if pendingCount > 0 {
			return nil, 0, newCallFailure("invariant violation", nil, ErrPendingAfterJoin)
		}

		blockConflict := validateBlockUniformity(successes, cfg.BlockTolerance)

		kinds := map[FailureKind]bool{}
		var batchFailures []*BatchFailure
		for _, f := range failures {
			cf := f.Failure()
			kinds[cf.Kind] = true
			batchFailures = append(batchFailures, &BatchFailure{Kind: cf.Kind, Message: cf.Message})
		}
		if blockConflict != nil {
			kinds[blockConflict.Kind] = true
			batchFailures = append(batchFailures, blockConflict)
		}

		if len(kinds) == 0 {
			return e.finish(tracker, routes, amounts, attempt, logger)
		}

		lastAttemptFailure = &AttemptFailure{Attempt: attempt, Failures: batchFailures}
		logger.Debug("attempt failed", zap.Error(lastAttemptFailure))

		effects := processAttemptFailures(flags, kinds, attempt, cfg.Rollback, cfg.SuccessRateFailureOverrides, e.metrics, logger)

		if effects.newGasLimitPerCall != 0 {
			effectiveGasLimit = effects.newGasLimitPerCall
		}
		if effects.newMulticallChunk != 0 {
			effectiveMulticallChunk = effects.newMulticallChunk
		}
		if effects.blockNumberDecrement {
			blockNumber = new(big.Int).Sub(blockNumber, big.NewInt(1))
		}

		if effects.retryAll {
			if err := tracker.resetAll(effectiveMulticallChunk); err != nil {
				return nil, 0, newCallFailure("fatal", lastAttemptFailure, err)
			}
		} else {
			tracker.requeueFailed()
		}

		e.metrics.numRetryLoops.Inc()

		delay, ok := backoffLoop.next()
		if !ok {
			return nil, 0, newCallFailure("retry budget exhausted", lastAttemptFailure, nil)
		}
		if err := sleepOrCancel(ctx, delay); err != nil {
			return nil, 0, newCallFailure("cancelled", lastAttemptFailure, err)
		}
	}
}

// executeAttempt fans out one goroutine per pending batch index,
// executes it against the aggregator, writes the result into the
// tracker at that same index, and joins before returning (§5
// "Scheduling model"). Each goroutine writes only to its own slice
// index, so no synchronization is needed across the writes themselves.
func (e *Engine) executeAttempt(
	ctx context.Context,
	tracker *stateTracker,
	pendingIdx []int,
	quoterAddress common.Address,
	direction QuoteDirection,
	blockNumber *big.Int,
	gasLimitPerCall uint64,
	flags *retryFlags,
	logger *zap.Logger,
) {
	var wg sync.WaitGroup
	for _, idx := range pendingIdx {
		idx := idx
		chunk := tracker.batches[idx].Inputs()
		wg.Add(1)
		go func() {
			defer wg.Done()
			state := executeBatch(ctx, e.aggregator, quoterAddress, direction, chunk, blockNumber, gasLimitPerCall, logger)
			tracker.set(idx, state)
		}()
	}
	wg.Wait()

	// total_calls_to_provider is incremented once per batch task launched
	// this attempt, even for batches whose results are later discarded by
	// a retry -- matching the source's unconditional per-task counter.
	for range pendingIdx {
		e.metrics.totalCallsToProvider.Inc()
	}
	flags.totalCalls += len(pendingIdx)
}

// demoteLowSuccessRate applies the success-rate floor to every currently
// Success batch (§4.4), writing any demotion back into the tracker.
func (e *Engine) demoteLowSuccessRate(tracker *stateTracker, minSuccessRate float64, alreadyRetriedOnce bool) {
	for i, b := range tracker.batches {
		if !b.IsSuccess() {
			continue
		}
		demoted := validateSuccessRate(b, minSuccessRate, alreadyRetriedOnce)
		if demoted.IsFailed() {
			tracker.set(i, demoted)
		}
	}
}

// finish assembles the final result once an attempt produced no
// failures: the returned block_number is that of the first successful
// batch (§5 "Ordering guarantees"), and the flat result vector is the
// tracker's batches concatenated in slot order, which always matches
// the Planner's original positional layout (§3 Invariant 3).
func (e *Engine) finish(tracker *stateTracker, routes []RouteSpec, amounts []Amount, attempt int, logger *zap.Logger) ([]RouteQuotes, uint64, error) {
	var blockNumber uint64
	var haveBlockNumber bool
	var flat []RawQuoteResult
	for _, b := range tracker.batches {
		if !b.IsSuccess() {
			return nil, 0, newCallFailure("invariant violation", nil, fmt.Errorf("quoteengine: non-success batch state survived an attempt with no reported failures"))
		}
		if !haveBlockNumber {
			blockNumber = b.BlockNumber()
			haveBlockNumber = true
		}
		flat = append(flat, b.Results()...)
		e.metrics.approxGasPerSuccess.Observe(float64(b.ApproxGasPerSuccess()))
	}

	out, err := AssembleResults(routes, amounts, flat, logger)
	if err != nil {
		return nil, 0, newCallFailure("invariant violation", nil, err)
	}

	if attempt > 1 {
		e.metrics.numRetriedCalls.Inc()
	}

	return out, blockNumber, nil
}

func (e *Engine) resolveBlockNumber(ctx context.Context, pinned *big.Int) (*big.Int, error) {
	if pinned != nil {
		return new(big.Int).Set(pinned), nil
	}
	current, err := e.aggregator.CurrentBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("quoteengine: resolve current block number: %w", err)
	}
	return new(big.Int).SetUint64(current), nil
}

