package quoteengine

import (
	"errors"
	"fmt"
)

// BatchFailure is the per-batch error surface (§7 surface 2): an
// aggregator call threw, or the validator rejected the batch.
type BatchFailure struct {
	Kind    FailureKind
	Message string
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("batch failed (%s): %s", e.Kind, e.Message)
}

// AttemptFailure is the per-attempt error surface (§7 surface 3): one or
// more batches failed this attempt, or a block conflict was detected.
type AttemptFailure struct {
	Attempt  int
	Failures []*BatchFailure
}

func (e *AttemptFailure) Error() string {
	kinds := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		kinds[i] = f.Kind.String()
	}
	return fmt.Sprintf("attempt %d failed with %d batch failures: %v", e.Attempt, len(e.Failures), kinds)
}

// ErrQuoterAddressMissing is raised when no quoter address is registered
// for a chain and no override was supplied -- a fatal, non-retryable
// condition (§7 "Fatal conditions").
var ErrQuoterAddressMissing = errors.New("quoteengine: no quoter address registered for chain and no override supplied")

// ErrPendingAfterJoin signals that the Quote State Tracker found a
// Pending batch after every parallel task of an attempt had joined -- a
// programming error per §4.3, never a recoverable case.
var ErrPendingAfterJoin = errors.New("quoteengine: pending batch state survived attempt join (invariant violation)")

// ErrInvalidInputLayout signals a violation of §3 Invariant 1 or 3 (input
// count/positional alignment, or non-exhaustive/duplicated batch
// coverage).
var ErrInvalidInputLayout = errors.New("quoteengine: input positional layout invariant violated")

// CallFailure is the per-call error surface (§7 surface 4): the retry
// budget was exhausted, an invariant was violated, or a fatal condition
// was hit. Its message carries the failure-kind names of the last
// attempt (from AttemptFailure.Error). Unwrap yields the last attempt,
// the underlying cause, or both joined with errors.Join when both are
// set.
type CallFailure struct {
	Reason      string
	LastAttempt *AttemptFailure
	wrapped     error
}

func newCallFailure(reason string, lastAttempt *AttemptFailure, cause error) *CallFailure {
	return &CallFailure{Reason: reason, LastAttempt: lastAttempt, wrapped: cause}
}

func (e *CallFailure) Error() string {
	if e.LastAttempt != nil {
		return fmt.Sprintf("quoteengine: call failed (%s): %v", e.Reason, e.LastAttempt)
	}
	return fmt.Sprintf("quoteengine: call failed (%s): %v", e.Reason, e.wrapped)
}

func (e *CallFailure) Unwrap() error {
	if e.LastAttempt != nil && e.wrapped != nil {
		return errors.Join(e.wrapped, e.LastAttempt)
	}
	if e.wrapped != nil {
		return e.wrapped
	}
	return e.LastAttempt
}
