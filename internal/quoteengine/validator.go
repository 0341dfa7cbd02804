package quoteengine

import (
	"fmt"
	"sort"
)

// BlockToleranceConfig governs the Validator's block-number uniformity
// check. Strict equality is the spec's active policy (§4.4); Tolerant
// exists only as an explicit opt-in, per the spec's own instruction that
// a relaxed comparison must never be a silent behavior change (§9 Open
// Question 1).
type BlockToleranceConfig struct {
	tolerant bool
	maxDelta uint64
}

// StrictBlockTolerance is the default policy: any two distinct observed
// block numbers across successful batches is a conflict.
func StrictBlockTolerance() BlockToleranceConfig {
	return BlockToleranceConfig{}
}

// TolerantBlockTolerance relaxes the uniformity check to accept observed
// block numbers within maxDelta of each other. Never enabled unless a
// caller explicitly opts in.
func TolerantBlockTolerance(maxDelta uint64) BlockToleranceConfig {
	return BlockToleranceConfig{tolerant: true, maxDelta: maxDelta}
}

// validateBlockUniformity checks that all successful batches of an
// attempt report the same block number (§4.4 "Block-number uniformity").
// With fewer than two successes there is nothing to compare. On
// violation, returns a BlockConflict failure listing the observed
// heights.
func validateBlockUniformity(successes []BatchState, tolerance BlockToleranceConfig) *BatchFailure {
	if len(successes) < 2 {
		return nil
	}

	seen := map[uint64]bool{}
	var heights []uint64
	for _, b := range successes {
		h := b.BlockNumber()
		if !seen[h] {
			seen[h] = true
			heights = append(heights, h)
		}
	}
	if len(heights) < 2 {
		return nil
	}

	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	if tolerance.tolerant {
		if heights[len(heights)-1]-heights[0] <= tolerance.maxDelta {
			return nil
		}
	}

	return &BatchFailure{
		Kind:    FailureBlockConflict,
		Message: fmt.Sprintf("observed divergent block numbers across successful batches: %v", heights),
	}
}

// validateSuccessRate applies the per-batch success-rate floor (§4.4
// "Success-rate floor"). If the batch's success ratio is below
// minSuccessRate and this is the first such violation for the whole call
// (alreadyRetriedOnce is false), the batch is demoted to
// Failed{SuccessRateTooLow} with its results retained as partial
// results. If the floor is violated again after the call has already
// retried once for success rate, the batch is accepted as-is --
// suppressing further retry is deliberate: some pools legitimately have
// low-liquidity quote failures.
func validateSuccessRate(batch BatchState, minSuccessRate float64, alreadyRetriedOnce bool) BatchState {
	if !batch.IsSuccess() {
		return batch
	}
	results := batch.Results()
	if len(results) == 0 {
		return batch
	}

	successCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		}
	}
	rate := float64(successCount) / float64(len(results))

	if rate >= minSuccessRate {
		return batch
	}
	if alreadyRetriedOnce {
		return batch
	}

	return NewFailedBatch(batch.Inputs(), ClassifiedFailure{
		Kind:    FailureSuccessRateTooLow,
		Message: fmt.Sprintf("batch success rate %.4f below floor %.4f", rate, minSuccessRate),
	}, results)
}
