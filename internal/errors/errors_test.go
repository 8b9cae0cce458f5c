package errors

import (
	"strings"
	"testing"
	"time"
)

func TestValidationError_Formatting(t *testing.T) {
	err := NewValidationError("schema check failed", ErrRepairBudgetExhausted).
		WithArtifact("plan.json").
		WithFieldErrors([]string{"phases: required", "content: required"}).
		WithAttempts(3)

	msg := err.Error()
	for _, want := range []string{"artifact=plan.json", "attempts=3", "phases: required", "repair budget exhausted"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestValidationError_IsChain(t *testing.T) {
	err := NewValidationError("bad artifact", ErrRepairBudgetExhausted)

	if !Is(err, ErrRepairBudgetExhausted) {
		t.Error("expected Is to match the wrapped sentinel")
	}

	var ve *ValidationError
	if !As(err, &ve) {
		t.Error("expected As to find *ValidationError")
	}
}

func TestExecutorError_Context(t *testing.T) {
	base := New("agent exited 1")
	err := NewExecutorError("producer invocation failed", base).
		WithRunID("run-42").
		WithStep("plan.produce")

	msg := err.Error()
	if !strings.Contains(msg, "run=run-42") || !strings.Contains(msg, "step=plan.produce") {
		t.Errorf("error message %q missing run/step context", msg)
	}
	if !Is(err, base) {
		t.Error("expected Is to match the cause")
	}
	if !IsRetryable(err) {
		t.Error("executor errors are retryable via external re-invocation")
	}
}

func TestMergeLandingError(t *testing.T) {
	err := NewMergeLandingError("feat/login", "main")

	if !Is(err, ErrMergeNotLanded) {
		t.Error("expected Is to match ErrMergeNotLanded")
	}
	if GetSeverity(err) != SeverityCritical {
		t.Errorf("severity = %v, want critical", GetSeverity(err))
	}
	if IsRetryable(err) {
		t.Error("landing failures must not be classified retryable")
	}
}

func TestCITimeoutError_DistinctFromCommandFailure(t *testing.T) {
	err := NewCITimeoutError("feat/login", 10*time.Minute)

	if !Is(err, ErrCITimeout) {
		t.Error("expected Is to match ErrCITimeout")
	}
	if Is(err, ErrCommandFailed) {
		t.Error("ci timeout must not match generic command failure")
	}
	if !IsRetryable(err) {
		t.Error("ci timeouts are retryable (re-watch)")
	}
}

func TestClassification_UntypedError(t *testing.T) {
	err := New("plain")
	if IsRetryable(err) {
		t.Error("untyped errors default to not retryable")
	}
	if IsUserFacing(err) {
		t.Error("untyped errors default to not user facing")
	}
	if GetSeverity(err) != SeverityError {
		t.Errorf("untyped severity = %v, want error", GetSeverity(err))
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("base")
	wrapped := Wrapf(base, "step %s", "merge.verify")
	if !Is(wrapped, base) {
		t.Error("wrapped error should match base")
	}
	if wrapped.Error() != "step merge.verify: base" {
		t.Errorf("unexpected message: %q", wrapped.Error())
	}
}

func TestNotFoundSentinelFamily(t *testing.T) {
	for _, err := range []error{ErrRunNotFound, ErrArtifactNotFound, ErrFeatureNotFound} {
		if !Is(err, ErrNotFound) {
			t.Errorf("%v must match ErrNotFound", err)
		}
	}
	if Is(ErrRunCompleted, ErrNotFound) {
		t.Error("ErrRunCompleted must not match ErrNotFound")
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
