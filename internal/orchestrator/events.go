// Package orchestrator coordinates the documentation pipeline: it probes the
// execution mode, builds the task graph, drives stages through workers with
// bounded retries, and aggregates results into a document package.
package orchestrator

import (
	"time"

	"github.com/docsmith/docsmith/pkg/models"
)

// EventType represents the type of pipeline event.
type EventType string

const (
	// EventProbeCompleted indicates the capability probe decided the mode.
	EventProbeCompleted EventType = "probe_completed"
	// EventGraphBuilt indicates the task graph was planned.
	EventGraphBuilt EventType = "graph_built"
	// EventStageStarted indicates a stage attempt has started.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted indicates a stage completed successfully.
	EventStageCompleted EventType = "stage_completed"
	// EventStageRetrying indicates a transient failure is being retried.
	EventStageRetrying EventType = "stage_retrying"
	// EventStageFailed indicates a stage exhausted its attempts.
	EventStageFailed EventType = "stage_failed"
	// EventRunCompleted indicates the run reached a terminal state.
	EventRunCompleted EventType = "run_completed"
)

// Event represents a pipeline progress event. The CLI renders these; they
// carry no artifact payloads.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the run the event belongs to.
	RunID string
	// StageID is the related stage, if applicable.
	StageID string
	// Attempt is the attempt number for stage events.
	Attempt int
	// Mode is the decided execution mode, for probe events.
	Mode models.ExecutionMode
	// Message provides additional context.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventSink receives pipeline events. A nil sink drops them.
type EventSink func(Event)

// emit sends an event to the sink if one is configured.
func (o *Orchestrator) emit(e Event) {
	if o.events == nil {
		return
	}
	e.Timestamp = time.Now()
	o.events(e)
}
