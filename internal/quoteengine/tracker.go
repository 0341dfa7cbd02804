package quoteengine

// stateTracker holds the full vector of BatchState across retry attempts
// for one call (§4.3). It is scoped to a single invocation -- never
// shared across concurrent engine calls.
type stateTracker struct {
	batches []BatchState
}

func newStateTracker(chunks [][]EncodedInput) *stateTracker {
	batches := make([]BatchState, len(chunks))
	for i, c := range chunks {
		batches[i] = NewPendingBatch(c)
	}
	return &stateTracker{batches: batches}
}

// pendingIndices returns the indices of batches due for execution this
// attempt.
func (t *stateTracker) pendingIndices() []int {
	var idx []int
	for i, b := range t.batches {
		if b.IsPending() {
			idx = append(idx, i)
		}
	}
	return idx
}

// set overwrites the batch at index i with a new state, e.g. the
// executor's result for a just-run attempt.
func (t *stateTracker) set(i int, state BatchState) {
	t.batches[i] = state
}

// resetAll reverts every batch slot back to Pending, re-chunking inputs
// with a (possibly updated) multicallChunk -- used for a global reset
// (§4.5 "Global reset semantics").
func (t *stateTracker) resetAll(multicallChunk int) error {
	var all []EncodedInput
	for _, b := range t.batches {
		all = append(all, b.Inputs()...)
	}
	chunks, err := ChunkInputs(all, multicallChunk)
	if err != nil {
		return err
	}
	t.batches = make([]BatchState, len(chunks))
	for i, c := range chunks {
		t.batches[i] = NewPendingBatch(c)
	}
	return nil
}

// partition splits the current batch vector into successes, failures,
// and pendings after an attempt. A non-empty pending slice after every
// parallel task of the attempt has joined is a programming error (§4.3).
func (t *stateTracker) partition() (successes, failures []BatchState, pendingCount int) {
	for _, b := range t.batches {
		switch {
		case b.IsSuccess():
			successes = append(successes, b)
		case b.IsFailed():
			failures = append(failures, b)
		default:
			pendingCount++
		}
	}
	return successes, failures, pendingCount
}

// requeueFailed reverts every Failed batch back to Pending in place,
// keeping Success batches untouched and preserving slot order -- used
// when an attempt's failures are retried without a global reset (§4.5
// "only Failed batches are re-attempted and Success batches remain").
func (t *stateTracker) requeueFailed() {
	for i, b := range t.batches {
		if b.IsFailed() {
			t.batches[i] = NewPendingBatch(b.Inputs())
		}
	}
}

func (t *stateTracker) allSuccessful() bool {
	for _, b := range t.batches {
		if !b.IsSuccess() {
			return false
		}
	}
	return true
}

func (t *stateTracker) snapshot() []BatchState {
	out := make([]BatchState, len(t.batches))
	copy(out, t.batches)
	return out
}
