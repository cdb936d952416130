package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/docsmith/docsmith/internal/artifact"
	"github.com/docsmith/docsmith/internal/probe"
	"github.com/docsmith/docsmith/internal/state"
	"github.com/docsmith/docsmith/internal/worker"
	"github.com/docsmith/docsmith/pkg/models"
)

// Deps contains the collaborators the orchestrator drives.
type Deps struct {
	// Probe decides the execution mode. It runs exactly once per submission,
	// before any stage executes.
	Probe func(ctx context.Context) probe.Result
	// Workers builds the worker set for the decided mode.
	Workers func(mode models.ExecutionMode) (*worker.Set, error)
	// DB optionally persists run history. A nil DB disables persistence.
	DB *state.DB
	// Logger receives debug output. A nil logger is a no-op.
	Logger *DebugLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithMaxRenderWorkers bounds the render fan-out concurrency.
func WithMaxRenderWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRenderWorkers = n
		}
	}
}

// WithEventSink registers a sink for pipeline progress events.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.events = sink }
}

// Orchestrator drives documentation runs through the pipeline state machine:
// probing, building, executing, aggregating, then done or failed.
type Orchestrator struct {
	deps             Deps
	retry            RetryPolicy
	maxRenderWorkers int
	events           EventSink
	logger           *DebugLogger

	mu   sync.RWMutex
	runs map[string]*RunStatus
}

// New creates an orchestrator.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:             deps,
		retry:            DefaultRetryPolicy(),
		maxRenderWorkers: 4,
		logger:           deps.Logger,
		runs:             make(map[string]*RunStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit runs one documentation request to completion and returns the
// document package. On partial render failure both the partial package and a
// RunError with kind partial_format_failure are returned; every other
// failure returns a nil package.
//
// Submissions are independent: each run probes once, plans its own graph,
// and writes to a fresh artifact store, so submitting the same request twice
// yields two equivalent runs.
func (o *Orchestrator) Submit(ctx context.Context, req *models.TaskRequest) (*models.DocumentPackage, error) {
	runID := uuid.New().String()[:8]
	status := o.newStatus(runID)
	o.logger.Log("run %s: submitted source=%s formats=%v", runID, reqSource(req), reqFormats(req))

	if o.deps.DB != nil && req != nil {
		if err := o.deps.DB.CreateRun(runID, req); err != nil {
			o.logger.Log("run %s: persist create failed: %v", runID, err)
		}
	}

	// Probing: decide the mode once, before anything executes.
	result := o.deps.Probe(ctx)
	mode := result.Mode
	status.setMode(mode)
	o.logger.Log("run %s: probe decided %s (%s)", runID, mode, result.Reason)
	o.emit(Event{Type: EventProbeCompleted, RunID: runID, Mode: mode, Message: string(result.Reason)})

	// Building: plan the graph. Invalid requests fail here, with no stage
	// ever started and nothing to retry.
	o.setState(status, models.RunStateBuilding, mode)
	graph, err := BuildGraph(req)
	if err != nil {
		o.finish(status, models.RunStateFailed, "config_error", "")
		return nil, err
	}
	o.emit(Event{Type: EventGraphBuilt, RunID: runID, Message: fmt.Sprintf("%d stages", graph.Size())})

	workers, err := o.deps.Workers(mode)
	if err != nil {
		o.finish(status, models.RunStateFailed, "config_error", "")
		return nil, &ConfigError{Reason: fmt.Sprintf("build %s workers: %v", mode, err)}
	}

	store := artifact.NewStore()

	// Executing: the sequential chain fails fast, so a broken analysis never
	// reaches generation.
	o.setState(status, models.RunStateExecuting, "")
	for i, stage := range graph.Chain {
		status.setStage(i, stage.ID)
		if err := o.runStage(ctx, status, stage, req, workers, store); err != nil {
			return nil, o.failRun(status, stage.ID, err)
		}
	}

	// Render fan-out: bounded concurrency, one sub-stage per format.
	failed := o.runFanOut(ctx, status, graph, req, workers, store)
	if ctx.Err() != nil {
		re := &RunError{Kind: KindCancelled, Retries: status.TotalRetries(), Cause: ctx.Err()}
		status.setFailure(re)
		o.finish(status, models.RunStateCancelled, string(KindCancelled), "")
		return nil, re
	}

	// Aggregating: assemble whatever the fan-out produced.
	o.setState(status, models.RunStateAggregating, "")
	pkg := Aggregate(runID, graph, store)

	if len(failed) > 0 {
		if len(pkg.Outputs) == 0 {
			// Nothing rendered at all: that is a stage failure, not a
			// partial result.
			re := &RunError{Kind: KindStageFailed, Stage: RenderStageID(failed[0]), Retries: status.TotalRetries(), Cause: fmt.Errorf("all %d render stages failed", len(failed))}
			status.setFailure(re)
			o.finish(status, models.RunStateFailed, string(KindStageFailed), re.Stage)
			return nil, re
		}
		re := &RunError{Kind: KindPartialFormatFailure, FailedFormats: pkg.FailedFormats, Retries: status.TotalRetries()}
		status.setFailure(re)
		o.finish(status, models.RunStateFailed, string(KindPartialFormatFailure), "")
		o.emit(Event{Type: EventRunCompleted, RunID: runID, Err: re})
		return pkg, re
	}

	o.finish(status, models.RunStateDone, "", "")
	o.emit(Event{Type: EventRunCompleted, RunID: runID})
	o.logger.Log("run %s: done, %d documents", runID, len(pkg.Outputs))
	return pkg, nil
}

// runStage executes one stage with bounded retries, storing the artifact on
// success.
func (o *Orchestrator) runStage(ctx context.Context, status *RunStatus, stage models.Stage, req *models.TaskRequest, workers *worker.Set, store *artifact.Store) error {
	w, err := workers.ForRole(stage.Role)
	if err != nil {
		return &RunError{Kind: KindInternalGraphError, Stage: stage.ID, Cause: err}
	}

	inputs, err := gatherInputs(stage, store)
	if err != nil {
		return err
	}

	maxAttempts := 1 + o.retry.MaxRetries
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		o.emit(Event{Type: EventStageStarted, RunID: status.RunID, StageID: stage.ID, Attempt: attempt})
		o.logger.Log("run %s: stage %s attempt %d", status.RunID, stage.ID, attempt)

		art, execErr := w.Execute(ctx, stage, req, inputs)
		if execErr == nil {
			art.StageID = stage.ID
			art.Attempt = attempt
			if err := store.Put(art); err != nil {
				return &RunError{Kind: KindInternalGraphError, Stage: stage.ID, Cause: err}
			}
			o.recordAttempt(status.RunID, stage.ID, attempt, "succeeded", "")
			o.recordArtifact(status.RunID, art)
			o.emit(Event{Type: EventStageCompleted, RunID: status.RunID, StageID: stage.ID, Attempt: attempt})
			return nil
		}

		o.recordAttempt(status.RunID, stage.ID, attempt, "failed", execErr.Error())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxAttempts || !Retryable(execErr) {
			o.emit(Event{Type: EventStageFailed, RunID: status.RunID, StageID: stage.ID, Attempt: attempt, Err: execErr})
			return execErr
		}

		status.addRetry(stage.ID)
		o.emit(Event{Type: EventStageRetrying, RunID: status.RunID, StageID: stage.ID, Attempt: attempt, Err: execErr})
		if err := o.retry.Wait(ctx, attempt); err != nil {
			return err
		}
	}
	return nil // unreachable
}

// runFanOut executes the render sub-stages with bounded concurrency and
// returns the formats that failed. A cancelled context stops scheduling new
// sub-stages; already running ones see the cancellation through their own
// context checks.
func (o *Orchestrator) runFanOut(ctx context.Context, status *RunStatus, graph *TaskGraph, req *models.TaskRequest, workers *worker.Set, store *artifact.Store) []models.OutputFormat {
	if len(graph.FanOut) == 0 {
		return nil
	}
	status.setStage(len(graph.Chain), "render")

	sem := make(chan struct{}, o.maxRenderWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []models.OutputFormat

	for _, stage := range graph.FanOut {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(stage models.Stage) {
			defer wg.Done()
			defer func() { <-sem }()

			err := o.runStage(ctx, status, stage, req, workers, store)
			if err != nil {
				mu.Lock()
				failed = append(failed, stage.Format)
				mu.Unlock()
				o.logger.Log("run %s: render %s failed: %v", status.RunID, stage.Format, err)
			}
		}(stage)
	}
	wg.Wait()

	return failed
}

// gatherInputs pulls the stage's declared inputs from the store. A missing
// input means the graph scheduled the stage too early; that is an internal
// defect and the run fails without retrying.
func gatherInputs(stage models.Stage, store *artifact.Store) ([]*models.Artifact, error) {
	inputs := make([]*models.Artifact, 0, len(stage.Inputs))
	for _, kind := range stage.Inputs {
		a, err := store.SupersedingOfKind(kind)
		if err != nil {
			return nil, &RunError{
				Kind:  KindInternalGraphError,
				Stage: stage.ID,
				Cause: fmt.Errorf("required input %s missing: %w", kind, err),
			}
		}
		inputs = append(inputs, a)
	}
	return inputs, nil
}

// failRun classifies a chain-stage error and records the terminal state.
// Workers may surface a cancellation wrapped rather than bare, so the
// context errors are matched through the chain.
func (o *Orchestrator) failRun(status *RunStatus, stageID string, err error) error {
	if re, ok := AsRunError(err); ok {
		re.Retries = status.RetryCount(re.Stage)
		status.setFailure(re)
		o.finish(status, models.RunStateFailed, string(re.Kind), re.Stage)
		return re
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		re := &RunError{Kind: KindCancelled, Stage: stageID, Retries: status.RetryCount(stageID), Cause: err}
		status.setFailure(re)
		o.finish(status, models.RunStateCancelled, string(KindCancelled), stageID)
		return re
	}
	re := &RunError{Kind: KindStageFailed, Stage: stageID, Retries: status.RetryCount(stageID), Cause: err}
	status.setFailure(re)
	o.finish(status, models.RunStateFailed, string(KindStageFailed), stageID)
	return re
}

// recordAttempt persists one stage attempt if a database is configured.
func (o *Orchestrator) recordAttempt(runID, stageID string, attempt int, result, errMsg string) {
	if o.deps.DB == nil {
		return
	}
	if err := o.deps.DB.RecordStageAttempt(runID, stageID, attempt, result, errMsg); err != nil {
		o.logger.Log("run %s: persist attempt failed: %v", runID, err)
	}
}

// recordArtifact persists artifact metadata if a database is configured.
func (o *Orchestrator) recordArtifact(runID string, a *models.Artifact) {
	if o.deps.DB == nil {
		return
	}
	if err := o.deps.DB.RecordArtifact(runID, a); err != nil {
		o.logger.Log("run %s: persist artifact failed: %v", runID, err)
	}
}

func reqSource(req *models.TaskRequest) string {
	if req == nil {
		return ""
	}
	return req.Source
}

func reqFormats(req *models.TaskRequest) []models.OutputFormat {
	if req == nil {
		return nil
	}
	return req.Formats
}
