package quoteengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProcessAttemptFailuresOutOfGasFirstOccurrence(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()
	effects := processAttemptFailures(flags, map[FailureKind]bool{FailureOutOfGas: true}, 1, false, SuccessRateOverrides{}, metrics, nopLogger())

	require.True(t, flags.retriedOutOfGas)
	require.False(t, effects.retryAll)
	require.Equal(t, uint64(1_000_000), effects.newGasLimitPerCall)
	require.Equal(t, 140, effects.newMulticallChunk)
}

func TestProcessAttemptFailuresOutOfGasSecondOccurrenceNoOverrideAgain(t *testing.T) {
	flags := &retryFlags{retriedOutOfGas: true}
	metrics := newEngineMetrics()
	effects := processAttemptFailures(flags, map[FailureKind]bool{FailureOutOfGas: true}, 2, false, SuccessRateOverrides{}, metrics, nopLogger())

	require.Equal(t, uint64(0), effects.newGasLimitPerCall)
	require.Equal(t, 0, effects.newMulticallChunk)
}

func TestProcessAttemptFailuresBlockConflictAlwaysRetriesAll(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()
	effects := processAttemptFailures(flags, map[FailureKind]bool{FailureBlockConflict: true}, 1, false, SuccessRateOverrides{}, metrics, nopLogger())
	require.True(t, effects.retryAll)
	require.True(t, flags.retriedBlockConflict)
}

func TestProcessAttemptFailuresBlockHeaderRollback(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()

	effects1 := processAttemptFailures(flags, map[FailureKind]bool{FailureBlockHeaderMissing: true}, 1, true, SuccessRateOverrides{}, metrics, nopLogger())
	require.False(t, effects1.blockNumberDecrement)
	require.True(t, flags.retriedBlockHeaderMissing)

	effects2 := processAttemptFailures(flags, map[FailureKind]bool{FailureBlockHeaderMissing: true}, 2, true, SuccessRateOverrides{}, metrics, nopLogger())
	require.True(t, effects2.blockNumberDecrement)
	require.True(t, effects2.retryAll)
	require.True(t, flags.blockRolledBack)
}

func TestProcessAttemptFailuresBlockHeaderNoRollbackWhenDisabled(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()

	processAttemptFailures(flags, map[FailureKind]bool{FailureBlockHeaderMissing: true}, 1, false, SuccessRateOverrides{}, metrics, nopLogger())
	effects2 := processAttemptFailures(flags, map[FailureKind]bool{FailureBlockHeaderMissing: true}, 2, false, SuccessRateOverrides{}, metrics, nopLogger())

	require.False(t, effects2.blockNumberDecrement)
	require.False(t, flags.blockRolledBack)
}

func TestProcessAttemptFailuresSuccessRateOverridesOnFirstOccurrence(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()
	overrides := SuccessRateOverrides{GasLimitOverride: 3_000_000, MulticallChunkOverride: 50}

	effects := processAttemptFailures(flags, map[FailureKind]bool{FailureSuccessRateTooLow: true}, 1, false, overrides, metrics, nopLogger())

	require.True(t, effects.retryAll)
	require.Equal(t, overrides.GasLimitOverride, effects.newGasLimitPerCall)
	require.Equal(t, overrides.MulticallChunkOverride, effects.newMulticallChunk)
}

func TestProcessAttemptFailuresTimeoutRetriesOnlyBatch(t *testing.T) {
	flags := &retryFlags{}
	metrics := newEngineMetrics()
	effects := processAttemptFailures(flags, map[FailureKind]bool{FailureTimeout: true}, 1, false, SuccessRateOverrides{}, metrics, nopLogger())

	require.False(t, effects.retryAll)
	require.True(t, flags.retriedTimeout)
}

func TestAttemptBackoffExhausts(t *testing.T) {
	opts := RetryOptions{Retries: 2, MinTimeoutMS: 1, MaxTimeoutMS: 2}
	b := newAttemptBackoff(opts)

	_, ok1 := b.next()
	require.True(t, ok1)
	_, ok2 := b.next()
	require.True(t, ok2)
	_, ok3 := b.next()
	require.False(t, ok3)
}
