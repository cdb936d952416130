// Package worker provides the polymorphic worker-agent abstraction.
// A worker wraps one specialized task executor (Analyze, Generate, Format)
// with two instantiation strategies per role: managed (backed by a remotely
// registered agent identity) and fallback (direct calls). Both produce
// identical artifact shapes, so the orchestrator and aggregator never branch
// on execution mode.
package worker

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a worker failure.
type ErrorKind string

const (
	// ErrSchemaMismatch means the input artifact kind did not match the
	// stage's declared input kind. Deterministic; never retried.
	ErrSchemaMismatch ErrorKind = "schema_mismatch"
	// ErrRemoteUnavailable means the managed runtime could not be reached.
	// Transient; retried with backoff.
	ErrRemoteUnavailable ErrorKind = "remote_unavailable"
	// ErrAnalysisFailed means the analysis collaborator failed.
	ErrAnalysisFailed ErrorKind = "analysis_failed"
	// ErrGenerationFailed means the generation collaborator failed.
	ErrGenerationFailed ErrorKind = "generation_failed"
	// ErrRenderFailed means the rendering collaborator failed.
	ErrRenderFailed ErrorKind = "render_failed"
)

// WorkerError is a classified failure from a worker execution.
type WorkerError struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Stage is the ID of the stage that was executing.
	Stage string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *WorkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("worker %s at stage %s: %v", e.Kind, e.Stage, e.Cause)
	}
	return fmt.Sprintf("worker %s at stage %s", e.Kind, e.Stage)
}

// Unwrap returns the underlying cause.
func (e *WorkerError) Unwrap() error {
	return e.Cause
}

// Transient returns true if retrying the execution could succeed.
func (e *WorkerError) Transient() bool {
	return e.Kind == ErrRemoteUnavailable
}

// AsWorkerError unwraps err into a WorkerError if possible.
func AsWorkerError(err error) (*WorkerError, bool) {
	var we *WorkerError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}
