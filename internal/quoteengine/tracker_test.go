package quoteengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateTrackerPartitionAndRequeue(t *testing.T) {
	chunks := [][]EncodedInput{
		{{RouteIndex: 0, AmountIndex: 0}},
		{{RouteIndex: 0, AmountIndex: 1}},
	}
	tracker := newStateTracker(chunks)
	require.Len(t, tracker.pendingIndices(), 2)

	tracker.set(0, NewSuccessBatch(chunks[0], 100, []RawQuoteResult{{Success: true}}, 1))
	tracker.set(1, NewFailedBatch(chunks[1], ClassifiedFailure{Kind: FailureTimeout}, nil))

	successes, failures, pending := tracker.partition()
	require.Len(t, successes, 1)
	require.Len(t, failures, 1)
	require.Equal(t, 0, pending)
	require.False(t, tracker.allSuccessful())

	tracker.requeueFailed()
	require.Len(t, tracker.pendingIndices(), 1)
	require.True(t, tracker.batches[0].IsSuccess())
	require.True(t, tracker.batches[1].IsPending())
}

func TestStateTrackerResetAll(t *testing.T) {
	chunks := [][]EncodedInput{
		{{RouteIndex: 0, AmountIndex: 0}, {RouteIndex: 0, AmountIndex: 1}},
		{{RouteIndex: 1, AmountIndex: 0}},
	}
	tracker := newStateTracker(chunks)
	tracker.set(0, NewSuccessBatch(chunks[0], 100, make([]RawQuoteResult, 2), 1))
	tracker.set(1, NewFailedBatch(chunks[1], ClassifiedFailure{Kind: FailureBlockConflict}, nil))

	err := tracker.resetAll(2)
	require.NoError(t, err)

	for _, b := range tracker.batches {
		require.True(t, b.IsPending())
	}
	total := 0
	for _, b := range tracker.batches {
		total += len(b.Inputs())
	}
	require.Equal(t, 3, total)
}
