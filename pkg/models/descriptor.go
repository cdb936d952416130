package models

import "time"

// ExecutionMode selects how workers are instantiated for a run.
// The mode is decided once per run by the capability probe; all stages in a
// run use the same mode so artifact shapes stay consistent.
type ExecutionMode string

const (
	// ModeManaged backs workers with remotely registered agent identities
	// that support delegated sub-task routing.
	ModeManaged ExecutionMode = "managed"
	// ModeFallback performs the same logical operations through direct,
	// non-delegated calls with no cross-agent routing.
	ModeFallback ExecutionMode = "fallback"
)

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeManaged, ModeFallback:
		return true
	default:
		return false
	}
}

// AgentDescriptor identifies a resolved worker agent.
// Descriptors are created (or looked up if already registered) once per
// orchestrator lifetime and never mutated; they are removed only by an
// explicit teardown.
type AgentDescriptor struct {
	// ID is the identity handle of the agent. For managed agents this is
	// the remote runtime's agent ID.
	ID string `json:"id"`
	// Role is the worker role the agent fulfils.
	Role WorkerRole `json:"role"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Capabilities lists capability tags advertised by the agent.
	Capabilities []string `json:"capabilities,omitempty"`
	// Mode is the execution mode the descriptor was created under.
	Mode ExecutionMode `json:"mode"`
	// CreatedAt is when the descriptor was resolved.
	CreatedAt time.Time `json:"created_at"`
}
