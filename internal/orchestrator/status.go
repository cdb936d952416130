package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/docsmith/docsmith/pkg/models"
)

// RunStatus is the introspectable state of one run. The orchestrator keeps
// one per submission; Status returns point-in-time copies.
type RunStatus struct {
	mu sync.RWMutex

	// RunID is the run identifier.
	RunID string
	// State is the current run state.
	State models.RunState
	// Mode is the execution mode the probe decided.
	Mode models.ExecutionMode
	// StageIndex is the index of the executing stage, chain first.
	StageIndex int
	// CurrentStage is the ID of the executing stage.
	CurrentStage string
	// Retries counts retries per stage ID.
	Retries map[string]int
	// Failure holds the terminal error for failed runs.
	Failure *RunError
	// StartedAt is when the run was submitted.
	StartedAt time.Time
	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time
}

// newStatus registers a fresh run in the probing state.
func (o *Orchestrator) newStatus(runID string) *RunStatus {
	status := &RunStatus{
		RunID:     runID,
		State:     models.RunStateProbing,
		Retries:   make(map[string]int),
		StartedAt: time.Now(),
	}
	o.mu.Lock()
	o.runs[runID] = status
	o.mu.Unlock()
	return status
}

// Status returns a snapshot of one run's state.
func (o *Orchestrator) Status(runID string) (*RunStatus, error) {
	o.mu.RLock()
	status, ok := o.runs[runID]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return status.snapshot(), nil
}

// Runs returns snapshots of all runs this orchestrator has seen.
func (o *Orchestrator) Runs() []*RunStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*RunStatus, 0, len(o.runs))
	for _, status := range o.runs {
		out = append(out, status.snapshot())
	}
	return out
}

// RetryCount returns the recorded retries for one stage.
func (s *RunStatus) RetryCount(stageID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Retries[stageID]
}

// TotalRetries returns the recorded retries across all stages.
func (s *RunStatus) TotalRetries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.Retries {
		total += n
	}
	return total
}

// snapshot returns a copy safe to read without holding the lock.
func (s *RunStatus) snapshot() *RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := &RunStatus{
		RunID:        s.RunID,
		State:        s.State,
		Mode:         s.Mode,
		StageIndex:   s.StageIndex,
		CurrentStage: s.CurrentStage,
		Retries:      make(map[string]int, len(s.Retries)),
		Failure:      s.Failure,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
	}
	for k, v := range s.Retries {
		copied.Retries[k] = v
	}
	return copied
}

func (s *RunStatus) setMode(mode models.ExecutionMode) {
	s.mu.Lock()
	s.Mode = mode
	s.mu.Unlock()
}

func (s *RunStatus) setStage(index int, stageID string) {
	s.mu.Lock()
	s.StageIndex = index
	s.CurrentStage = stageID
	s.mu.Unlock()
}

func (s *RunStatus) addRetry(stageID string) {
	s.mu.Lock()
	s.Retries[stageID]++
	s.mu.Unlock()
}

func (s *RunStatus) setFailure(re *RunError) {
	s.mu.Lock()
	s.Failure = re
	s.mu.Unlock()
}

// setState transitions a run and mirrors it to the database when configured.
// A non-empty mode is recorded alongside the transition.
func (o *Orchestrator) setState(status *RunStatus, st models.RunState, mode models.ExecutionMode) {
	status.mu.Lock()
	status.State = st
	status.mu.Unlock()

	if o.deps.DB != nil {
		if err := o.deps.DB.UpdateRunState(status.RunID, st, mode); err != nil {
			o.logger.Log("run %s: persist state failed: %v", status.RunID, err)
		}
	}
}

// finish records a terminal state.
func (o *Orchestrator) finish(status *RunStatus, st models.RunState, failureKind, failureStage string) {
	status.mu.Lock()
	status.State = st
	status.FinishedAt = time.Now()
	status.mu.Unlock()

	if o.deps.DB != nil {
		if err := o.deps.DB.FinishRun(status.RunID, st, failureKind, failureStage); err != nil {
			o.logger.Log("run %s: persist finish failed: %v", status.RunID, err)
		}
	}
}
