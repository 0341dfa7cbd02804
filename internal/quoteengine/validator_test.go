package quoteengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func successBatch(block uint64, results []RawQuoteResult) BatchState {
	return NewSuccessBatch(nil, block, results, 100_000)
}

func TestValidateBlockUniformityNoConflict(t *testing.T) {
	batches := []BatchState{successBatch(100, nil), successBatch(100, nil)}
	require.Nil(t, validateBlockUniformity(batches, StrictBlockTolerance()))
}

func TestValidateBlockUniformityConflict(t *testing.T) {
	batches := []BatchState{successBatch(100, nil), successBatch(101, nil)}
	failure := validateBlockUniformity(batches, StrictBlockTolerance())
	require.NotNil(t, failure)
	require.Equal(t, FailureBlockConflict, failure.Kind)
}

func TestValidateBlockUniformitySkippedUnderTwoSuccesses(t *testing.T) {
	batches := []BatchState{successBatch(100, nil)}
	require.Nil(t, validateBlockUniformity(batches, StrictBlockTolerance()))
}

func TestValidateBlockUniformityTolerant(t *testing.T) {
	batches := []BatchState{successBatch(100, nil), successBatch(101, nil)}
	require.Nil(t, validateBlockUniformity(batches, TolerantBlockTolerance(1)))

	batches2 := []BatchState{successBatch(100, nil), successBatch(102, nil)}
	require.NotNil(t, validateBlockUniformity(batches2, TolerantBlockTolerance(1)))
}

func TestValidateSuccessRateFirstViolationDemotes(t *testing.T) {
	results := []RawQuoteResult{{Success: true}, {Success: false}, {Success: false}}
	batch := successBatch(100, results)

	demoted := validateSuccessRate(batch, 0.7, false)
	require.True(t, demoted.IsFailed())
	require.Equal(t, FailureSuccessRateTooLow, demoted.Failure().Kind)
	require.Equal(t, results, demoted.PartialResults())
}

func TestValidateSuccessRateSecondViolationAccepts(t *testing.T) {
	results := []RawQuoteResult{{Success: true}, {Success: false}, {Success: false}}
	batch := successBatch(100, results)

	accepted := validateSuccessRate(batch, 0.7, true)
	require.True(t, accepted.IsSuccess())
}

func TestValidateSuccessRateAboveFloorUnaffected(t *testing.T) {
	results := []RawQuoteResult{{Success: true}, {Success: true}}
	batch := successBatch(100, results)

	out := validateSuccessRate(batch, 0.5, false)
	require.True(t, out.IsSuccess())
}
