package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docsmith/docsmith/pkg/models"
)

// ConfigError indicates an invalid request rejected before any stage runs.
// Graph construction fails with it; nothing is retried and no workers are
// invoked.
type ConfigError struct {
	// Reason describes what was invalid.
	Reason string
}

// Error implements error.
func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// RunErrorKind classifies terminal run failures.
type RunErrorKind string

const (
	// KindInternalGraphError indicates a stage was scheduled without its
	// declared inputs present. This is an orchestrator defect, not a worker
	// failure, and is never retried.
	KindInternalGraphError RunErrorKind = "internal_graph_error"
	// KindStageFailed indicates a chain stage exhausted its attempts.
	KindStageFailed RunErrorKind = "stage_failed"
	// KindPartialFormatFailure indicates some render sub-stages failed while
	// others produced documents. The run still yields a partial package.
	KindPartialFormatFailure RunErrorKind = "partial_format_failure"
	// KindCancelled indicates the run was cancelled before completing.
	KindCancelled RunErrorKind = "cancelled"
)

// RunError is a terminal run failure with enough context for status
// reporting: which stage, how it was classified, and what went wrong.
type RunError struct {
	// Kind classifies the failure.
	Kind RunErrorKind
	// Stage is the stage ID the failure is attributed to, if any.
	Stage string
	// FailedFormats lists the formats that failed, for partial failures.
	FailedFormats []models.OutputFormat
	// Retries is the number of retries consumed before the run failed.
	Retries int
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements error.
func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		fmt.Fprintf(&b, " at stage %s", e.Stage)
	}
	if len(e.FailedFormats) > 0 {
		formats := make([]string, 0, len(e.FailedFormats))
		for _, f := range e.FailedFormats {
			formats = append(formats, string(f))
		}
		fmt.Fprintf(&b, " (formats: %s)", strings.Join(formats, ", "))
	}
	if e.Retries > 0 {
		fmt.Fprintf(&b, " after %d retries", e.Retries)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Cause
}

// AsRunError returns the error as a *RunError if it is one.
func AsRunError(err error) (*RunError, bool) {
	var re *RunError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// AsConfigError returns the error as a *ConfigError if it is one.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
