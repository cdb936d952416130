package models

import (
	"sort"
	"time"
)

// RunState represents the current state of an orchestrator run.
type RunState string

const (
	// RunStateProbing indicates the capability probe is in progress.
	RunStateProbing RunState = "probing"
	// RunStateBuilding indicates the task graph is being built.
	RunStateBuilding RunState = "building"
	// RunStateExecuting indicates a stage is executing.
	RunStateExecuting RunState = "executing"
	// RunStateAggregating indicates stage outputs are being merged.
	RunStateAggregating RunState = "aggregating"
	// RunStateDone indicates the run completed.
	RunStateDone RunState = "done"
	// RunStateFailed indicates the run terminated with a failure.
	RunStateFailed RunState = "failed"
	// RunStateCancelled indicates the caller cancelled the run.
	RunStateCancelled RunState = "cancelled"
)

// Valid returns true if the state is a known value.
func (s RunState) Valid() bool {
	switch s {
	case RunStateProbing, RunStateBuilding, RunStateExecuting,
		RunStateAggregating, RunStateDone, RunStateFailed, RunStateCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateDone, RunStateFailed, RunStateCancelled:
		return true
	default:
		return false
	}
}

// DocumentPackage is the final result of a run: rendered outputs keyed by
// format, plus the intermediate artifacts for traceability and audit.
type DocumentPackage struct {
	// RunID is the ID of the run that produced this package.
	RunID string `json:"run_id"`
	// Outputs maps each successfully rendered format to its artifact.
	Outputs map[OutputFormat]*Artifact `json:"outputs"`
	// FailedFormats lists formats whose fan-out sub-stage definitively
	// failed. Non-empty only alongside a PartialFormatFailure report.
	FailedFormats []OutputFormat `json:"failed_formats,omitempty"`
	// Analysis is the AnalysisReport artifact the package was built from.
	Analysis *Artifact `json:"analysis,omitempty"`
	// Draft is the DraftDocument artifact the renditions were built from.
	Draft *Artifact `json:"draft,omitempty"`
	// CreatedAt is when the package was assembled.
	CreatedAt time.Time `json:"created_at"`
}

// Formats returns the successfully rendered formats in sorted order.
func (p *DocumentPackage) Formats() []OutputFormat {
	formats := make([]OutputFormat, 0, len(p.Outputs))
	for f := range p.Outputs {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
