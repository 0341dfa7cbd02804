package quoteengine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryOptions configures the exponential-backoff attempt loop bounding
// the Retry Controller (§6 "retry_options").
type RetryOptions struct {
	Retries      int
	MinTimeoutMS int
	MaxTimeoutMS int
}

// DefaultRetryOptions mirrors the teacher's own submitter defaults
// (MAX_RETRIES=5, base backoff 200ms) generalized to min/max bounds.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{Retries: 5, MinTimeoutMS: 200, MaxTimeoutMS: 5_000}
}

func (o RetryOptions) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(o.MinTimeoutMS) * time.Millisecond
	eb.MaxInterval = time.Duration(o.MaxTimeoutMS) * time.Millisecond
	eb.MaxElapsedTime = 0 // bounded by retry count, not elapsed wall time
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(o.Retries))
}

// SuccessRateOverrides are the parameters applied on the first
// success-rate retry (§6 "success_rate_failure_overrides").
type SuccessRateOverrides struct {
	GasLimitOverride       uint64
	MulticallChunkOverride int
}

// retryFlags is the per-call mutable state of the Retry Controller
// (§4.5 "State (per call)"). Scoped to one invocation -- never
// process-global (§9 "Globally mutable retry flags").
type retryFlags struct {
	retriedBlockConflict      bool
	retriedBlockHeaderMissing bool
	retriedTimeout            bool
	retriedOutOfGas           bool
	retriedSuccessRate        bool
	retriedUnknown            bool

	blockHeaderLastAttempt int
	blockRolledBack        bool

	expectedCalls int
	totalCalls    int
}

// retryEffects is the accumulated outcome of processing one attempt's
// failures: whether to globally reset, and any parameter adjustments.
type retryEffects struct {
	retryAll             bool
	blockNumberDecrement bool
	newGasLimitPerCall   uint64 // 0 = no change
	newMulticallChunk    int    // 0 = no change
}

// processAttemptFailures applies the §4.5 decision table to the set of
// FailureKinds observed this attempt, in the spec's fixed inspection
// order (BlockConflict, BlockHeaderMissing, Timeout, OutOfGas,
// SuccessRateTooLow, Unknown), updating the per-call flags and the
// engine metrics, and returns the combined effect for this attempt.
func processAttemptFailures(
	flags *retryFlags,
	kinds map[FailureKind]bool,
	attempt int,
	rollbackEnabled bool,
	successRateOverrides SuccessRateOverrides,
	metrics *engineMetrics,
	logger *zap.Logger,
) retryEffects {
	var effects retryEffects

	if kinds[FailureBlockConflict] {
		if !flags.retriedBlockConflict {
			flags.retriedBlockConflict = true
			metrics.blockConflictRetry.Inc()
		}
		effects.retryAll = true
	}

	if kinds[FailureBlockHeaderMissing] {
		if !flags.retriedBlockHeaderMissing {
			flags.retriedBlockHeaderMissing = true
			flags.blockHeaderLastAttempt = attempt
			metrics.blockHeaderRetry.Inc()
		} else if rollbackEnabled && !flags.blockRolledBack {
			effects.blockNumberDecrement = true
			effects.retryAll = true
			flags.blockRolledBack = true
		}
	}

	if kinds[FailureTimeout] {
		if !flags.retriedTimeout {
			flags.retriedTimeout = true
			metrics.timeoutRetry.Inc()
		}
		// Retry only this batch -- no retryAll, no parameter change.
	}

	if kinds[FailureOutOfGas] {
		if !flags.retriedOutOfGas {
			flags.retriedOutOfGas = true
			effects.newGasLimitPerCall = 1_000_000
			effects.newMulticallChunk = 140
			metrics.outOfGasRetry.Inc()
		}
		// Retry only failed batches, first occurrence or not.
	}

	if kinds[FailureSuccessRateTooLow] {
		if !flags.retriedSuccessRate {
			flags.retriedSuccessRate = true
			effects.newGasLimitPerCall = successRateOverrides.GasLimitOverride
			effects.newMulticallChunk = successRateOverrides.MulticallChunkOverride
			effects.retryAll = true
			metrics.successRateRetry.Inc()
		}
		// Second occurrence: no further action -- the validator already
		// suppresses further SuccessRateTooLow failures after the first
		// retry (§4.4).
	}

	if kinds[FailureUnknown] {
		if !flags.retriedUnknown {
			flags.retriedUnknown = true
			metrics.unknownReasonRetry.Inc()
		}
		// Retry only failed batches.
	}

	logger.Debug("retry controller decision",
		zap.Int("attempt", attempt),
		zap.Bool("retry_all", effects.retryAll),
		zap.Bool("block_number_decrement", effects.blockNumberDecrement),
		zap.Uint64("new_gas_limit_per_call", effects.newGasLimitPerCall),
		zap.Int("new_multicall_chunk", effects.newMulticallChunk),
	)

	return effects
}

// attemptBackoff is a small wrapper so the engine's attempt loop can ask
// "should I sleep and try again" without re-deriving backoff.BackOff
// semantics inline.
type attemptBackoff struct {
	bo backoff.BackOff
}

func newAttemptBackoff(opts RetryOptions) *attemptBackoff {
	return &attemptBackoff{bo: opts.newBackOff()}
}

// next returns the delay to sleep before the next attempt, or false if
// the retry budget (opts.Retries) is exhausted.
func (a *attemptBackoff) next() (time.Duration, bool) {
	d := a.bo.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}

// sleepOrCancel waits out d or returns ctx.Err() if the context is cancelled
// first (§5 "Suspension points": the backoff delay between attempts).
func sleepOrCancel(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
