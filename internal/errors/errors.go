// Package errors provides centralized error definitions for the pipeline.
// It defines the error taxonomy used by the graph executor — validation,
// executor, merge-landing, and CI-timeout errors — along with sentinel
// errors, context wrapping, and classification helpers.
//
// # Error Taxonomy
//
//   - ValidationError: an artifact failed schema or parse checks. Recovered
//     automatically by the repair loop; becomes fatal once the repair budget
//     is exhausted.
//   - ExecutorError: the external agent invocation failed. Always fatal to
//     the current invocation; recovery is an external retry with the same
//     run identity.
//   - MergeLandingError: a merge was attempted but the feature branch did
//     not become an ancestor of the base branch. Fatal.
//   - CITimeoutError: watching CI exceeded its allotted time. Distinguished
//     from generic command failures so callers can re-watch rather than
//     abort.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewValidationError("artifact failed schema check", cause).
//		WithArtifact("plan.json").
//		WithFieldErrors(errs)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrRepairBudgetExhausted) { ... }
//
//	var ve *errors.ValidationError
//	if errors.As(err, &ve) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Run-related sentinel errors
var (
	// ErrRunNotFound indicates that no checkpoint exists for a run identity.
	ErrRunNotFound = fmt.Errorf("run %w", ErrNotFound)
	// ErrRunCompleted indicates that the run already reached a terminal state.
	ErrRunCompleted = New("run already completed")
)

// Validation-related sentinel errors
var (
	// ErrArtifactNotFound indicates that an expected artifact file is missing.
	ErrArtifactNotFound = fmt.Errorf("artifact %w", ErrNotFound)
	// ErrArtifactParse indicates that an artifact could not be parsed.
	ErrArtifactParse = New("artifact parse failed")
	// ErrRepairBudgetExhausted indicates that an artifact stayed invalid after
	// the maximum number of repair attempts.
	ErrRepairBudgetExhausted = New("repair budget exhausted")
	// ErrDependencyCycle indicates a circular dependency among tasks.
	ErrDependencyCycle = New("dependency cycle detected")
)

// Merge-related sentinel errors
var (
	// ErrMergeNotLanded indicates that landing verification failed after a merge.
	ErrMergeNotLanded = New("merge did not land")
	// ErrCITimeout indicates that watching CI exceeded its allotted time.
	ErrCITimeout = New("ci watch timed out")
	// ErrCommandFailed indicates a git or gh command failure.
	ErrCommandFailed = New("command failed")
	// ErrFeatureNotFound indicates that a feature could not be found.
	ErrFeatureNotFound = fmt.Errorf("feature %w", ErrNotFound)
)

// General sentinel errors
var (
	// ErrNotFound is the base sentinel wrapped by the resource-specific
	// not-found errors, so callers can match any of them with one Is check.
	ErrNotFound = New("not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// ValidationError represents an artifact that failed schema or parse checks.
//
// Example:
//
//	err := errors.NewValidationError("schema check failed", errors.ErrRepairBudgetExhausted).
//		WithArtifact("tasks.json").
//		WithFieldErrors([]string{"tasks[0].title: required"}).
//		WithAttempts(3)
type ValidationError struct {
	baseError
	Artifact    string
	FieldErrors []string
	Attempts    int
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithArtifact adds the artifact name to the error context.
func (e *ValidationError) WithArtifact(name string) *ValidationError {
	e.Artifact = name
	return e
}

// WithFieldErrors attaches the ordered validation error strings.
func (e *ValidationError) WithFieldErrors(errs []string) *ValidationError {
	e.FieldErrors = errs
	return e
}

// WithAttempts records how many repair attempts were made.
func (e *ValidationError) WithAttempts(n int) *ValidationError {
	e.Attempts = n
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Artifact != "" {
		parts = append(parts, fmt.Sprintf("artifact=%s", e.Artifact))
	}
	if e.Attempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts=%d", e.Attempts))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if len(e.FieldErrors) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.FieldErrors, "; "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// ExecutorError
// -----------------------------------------------------------------------------

// ExecutorError represents a failed external agent invocation.
// It records which step and run identity failed so callers can retry
// the same run identity and resume from the last checkpoint.
type ExecutorError struct {
	baseError
	RunID string
	Step  string
}

// NewExecutorError creates a new ExecutorError.
func NewExecutorError(message string, cause error) *ExecutorError {
	return &ExecutorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithRunID adds the run identity to the error context.
func (e *ExecutorError) WithRunID(id string) *ExecutorError {
	e.RunID = id
	return e
}

// WithStep adds the failing step name to the error context.
func (e *ExecutorError) WithStep(step string) *ExecutorError {
	e.Step = step
	return e
}

// Error returns the formatted error message.
func (e *ExecutorError) Error() string {
	var parts []string
	if e.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", e.RunID))
	}
	if e.Step != "" {
		parts = append(parts, fmt.Sprintf("step=%s", e.Step))
	}

	prefix := "executor error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("executor error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ExecutorError) Is(target error) bool {
	if _, ok := target.(*ExecutorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// MergeLandingError
// -----------------------------------------------------------------------------

// MergeLandingError indicates a merge was attempted but verification shows
// the feature branch did not become an ancestor of the base branch.
type MergeLandingError struct {
	baseError
	Branch string
	Base   string
}

// NewMergeLandingError creates a new MergeLandingError.
func NewMergeLandingError(branch, base string) *MergeLandingError {
	return &MergeLandingError{
		baseError: baseError{
			message:    fmt.Sprintf("branch %s is not an ancestor of %s after merge", branch, base),
			cause:      ErrMergeNotLanded,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		Branch: branch,
		Base:   base,
	}
}

// Error returns the formatted error message.
func (e *MergeLandingError) Error() string {
	return fmt.Sprintf("merge landing error [branch=%s, base=%s]: %s", e.Branch, e.Base, e.message)
}

// Is checks if this error matches the target.
func (e *MergeLandingError) Is(target error) bool {
	if _, ok := target.(*MergeLandingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// CITimeoutError
// -----------------------------------------------------------------------------

// CITimeoutError indicates that watching CI checks exceeded the allotted
// time. It is distinguished from a generic command failure so callers can
// decide to re-watch rather than abort.
type CITimeoutError struct {
	baseError
	Branch  string
	Elapsed time.Duration
}

// NewCITimeoutError creates a new CITimeoutError.
func NewCITimeoutError(branch string, elapsed time.Duration) *CITimeoutError {
	return &CITimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("ci checks for %s did not finish within %s", branch, elapsed),
			cause:      ErrCITimeout,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Branch:  branch,
		Elapsed: elapsed,
	}
}

// Error returns the formatted error message.
func (e *CITimeoutError) Error() string {
	return fmt.Sprintf("ci timeout [branch=%s, elapsed=%s]: %s", e.Branch, e.Elapsed, e.message)
}

// Is checks if this error matches the target.
func (e *CITimeoutError) Is(target error) bool {
	if _, ok := target.(*CITimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// classifier is implemented by all typed errors in this package.
type classifier interface {
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// IsRetryable returns true if the error (or any error in its chain) is
// transient and the operation may succeed on retry.
func IsRetryable(err error) bool {
	var c classifier
	if errors.As(err, &c) {
		return c.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to users.
func IsUserFacing(err error) bool {
	var c classifier
	if errors.As(err, &c) {
		return c.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of the error, defaulting to SeverityError
// for untyped errors.
func GetSeverity(err error) Severity {
	var c classifier
	if errors.As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with a message, preserving the error chain.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message, preserving the error chain.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
