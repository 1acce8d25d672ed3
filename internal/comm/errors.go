package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRank is returned when a send or receive names a rank outside [0, size).
	ErrInvalidRank = errors.New("invalid rank")
	// ErrMissingEntryPoint is the result of a rank that has no entry point in multiple-method mode.
	ErrMissingEntryPoint = errors.New("missing entry point")
	// ErrAllocation is returned when a payload could not be copied into a message.
	ErrAllocation = errors.New("message copy failed")
	// ErrTimedOut is returned when a receive deadline passes before a match arrives.
	ErrTimedOut = errors.New("receive timed out")
	// ErrCancelled is returned when a receive's context is cancelled before a match arrives.
	ErrCancelled = errors.New("receive cancelled")
	// ErrLengthMismatch is returned when a typed receive gets a buffer of a different size than expected.
	ErrLengthMismatch = errors.New("receive length does not match send")
	// ErrNotConfigured is returned by Execute when no entry point has been set.
	ErrNotConfigured = errors.New("coordinator has no entry point configured")
	// ErrRunning is returned when a coordinator is reconfigured or executed while running.
	ErrRunning = errors.New("coordinator is running")
)

// ProtocolViolationError means a receiver was woken without a matching
// message in its mailbox. It indicates a broken invariant, never a
// recoverable condition, and Receive panics with it.
type ProtocolViolationError struct {
	Rank   int
	Source int
	Tag    int
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: rank %d passed its gate waiting for (source %s, tag %d) but no message matched",
		e.Rank, sourceString(e.Source), e.Tag)
}

// RankError attaches the failing rank to an error reported by a run.
type RankError struct {
	Rank int
	Err  error
}

func (e *RankError) Error() string {
	return fmt.Sprintf("rank %d: %v", e.Rank, e.Err)
}

func (e *RankError) Unwrap() error { return e.Err }

func invalidRank(rank, size int) error {
	return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRank, rank, size)
}

func sourceString(source int) string {
	if source == AnySource {
		return "any"
	}
	return fmt.Sprintf("%d", source)
}

// errorType maps an error onto the short label used by metrics and logs.
func errorType(err error) string {
	var pv *ProtocolViolationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pv):
		return "protocol_violation"
	case errors.Is(err, ErrMissingEntryPoint):
		return "missing_entry_point"
	case errors.Is(err, ErrInvalidRank):
		return "invalid_rank"
	case errors.Is(err, ErrAllocation):
		return "allocation"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, errPanic):
		return "panic"
	default:
		return "entry_point_error"
	}
}

var errPanic = errors.New("rank panicked")

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", errPanic, err)
	}
	return fmt.Errorf("%w: %v", errPanic, r)
}
