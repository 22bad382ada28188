// Package errors provides centralized error definitions and classification
// for the strategy pipeline. It defines the failure taxonomy the router and
// orchestrator dispatch on: configuration errors fail fast, transient errors
// are retried with backoff, validation errors trigger one bounded retry, and
// everything else falls through the provider chain.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library helpers so callers can import a single package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel errors
// -----------------------------------------------------------------------------

var (
	// ErrSnapshotNotFound indicates the snapshot context row does not exist.
	ErrSnapshotNotFound = New("snapshot not found")
	// ErrStrategyNotFound indicates no strategy row exists for a snapshot.
	ErrStrategyNotFound = New("strategy not found")
	// ErrRankingNotFound indicates no ranking exists for a snapshot.
	ErrRankingNotFound = New("ranking not found")
	// ErrMissingPrereq indicates a stage was invoked before an earlier
	// stage's output exists. Retryable once the prerequisite is present.
	ErrMissingPrereq = New("missing prerequisite stage output")
	// ErrLockNotAcquired indicates a lock could not be obtained within the
	// configured bounded wait.
	ErrLockNotAcquired = New("lock not acquired")
	// ErrCircuitOpen indicates a provider circuit breaker is rejecting calls.
	ErrCircuitOpen = New("provider circuit open")
)

// -----------------------------------------------------------------------------
// Provider failure classes
// -----------------------------------------------------------------------------

// FailureClass categorizes a provider failure for retry/fallback dispatch.
type FailureClass int

const (
	// ClassUnknown is any failure not otherwise classified. No retry;
	// the router falls through to the next provider.
	ClassUnknown FailureClass = iota
	// ClassConfig is a configuration failure (missing credential, bad
	// model id). Cannot succeed on retry; fails the entry immediately.
	ClassConfig
	// ClassTransient is an overload or rate-limit signal. Retried with
	// exponential backoff before falling through.
	ClassTransient
	// ClassInvalidOutput is unparsable or schema-invalid generated content.
	// One bounded retry of the same call, then explicit stage failure.
	ClassInvalidOutput
	// ClassTimeout is a wall-clock timeout on an external call. Treated
	// like any other non-transient failure: no retry, fall through.
	ClassTimeout
)

// String returns the failure class name.
func (c FailureClass) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassTransient:
		return "transient"
	case ClassInvalidOutput:
		return "invalid_output"
	case ClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProviderError is a failure from a specific provider invocation.
type ProviderError struct {
	Provider string
	Class    FailureClass
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s (%s): %s: %v", e.Provider, e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s (%s): %s", e.Provider, e.Class, e.Message)
}

// Unwrap returns the wrapped error.
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a ProviderError with the given class.
func NewProviderError(provider string, class FailureClass, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: class, Message: message, Err: err}
}

// -----------------------------------------------------------------------------
// Stage errors
// -----------------------------------------------------------------------------

// StageError records a failure inside one pipeline stage. The persisted form
// is always truncated: the store keeps the stage name, a bounded message, and
// a timestamp.
type StageError struct {
	Stage      string
	Message    string
	OccurredAt time.Time
	Err        error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

// Unwrap returns the wrapped error.
func (e *StageError) Unwrap() error { return e.Err }

// NewStageError creates a StageError timestamped now.
func NewStageError(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, OccurredAt: time.Now(), Err: err}
}

// -----------------------------------------------------------------------------
// Classification helpers
// -----------------------------------------------------------------------------

// ClassOf returns the failure class of err, walking the error chain.
// Non-provider errors classify as ClassUnknown.
func ClassOf(err error) FailureClass {
	var pe *ProviderError
	if As(err, &pe) {
		return pe.Class
	}
	return ClassUnknown
}

// IsTransient reports whether err is an overload/rate-limit signal that the
// router should retry with backoff.
func IsTransient(err error) bool {
	return ClassOf(err) == ClassTransient
}

// IsConfig reports whether err is a configuration failure that can never
// succeed on retry.
func IsConfig(err error) bool {
	return ClassOf(err) == ClassConfig
}

// IsInvalidOutput reports whether err is a schema or parse failure of
// generated content.
func IsInvalidOutput(err error) bool {
	return ClassOf(err) == ClassInvalidOutput
}

// -----------------------------------------------------------------------------
// Message truncation
// -----------------------------------------------------------------------------

// MaxPersistedMessage bounds error messages written to the store.
const MaxPersistedMessage = 500

// Truncate bounds a message to max runes, appending an ellipsis when cut.
// Used before persisting error text so provider stack traces cannot bloat
// the strategy row.
func Truncate(msg string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
