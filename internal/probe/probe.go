// Package probe detects whether the managed multi-agent runtime is usable
// and selects the execution mode for a run.
package probe

import (
	"context"
	"os"

	"github.com/docsmith/docsmith/pkg/models"
)

// Reason is a diagnostic code explaining a probe decision.
type Reason string

const (
	// ReasonRuntimeReady means the managed runtime is configured and reachable.
	ReasonRuntimeReady Reason = "runtime_ready"
	// ReasonDisabled means managed mode was disabled by configuration.
	ReasonDisabled Reason = "managed_disabled"
	// ReasonMissingCredential means no runtime credential is configured.
	ReasonMissingCredential Reason = "missing_credential"
	// ReasonMissingDeployment means no model deployment is configured.
	ReasonMissingDeployment Reason = "missing_deployment"
	// ReasonRuntimeUnreachable means the reachability check failed.
	ReasonRuntimeUnreachable Reason = "runtime_unreachable"
)

// Result is the outcome of a capability probe.
type Result struct {
	// Mode is the selected execution mode.
	Mode models.ExecutionMode
	// Reason explains why the mode was selected.
	Reason Reason
	// Err is the underlying error for diagnostic reasons, if any.
	// A non-nil Err never prevents the probe from returning a usable mode.
	Err error
}

// Config contains the values the probe consults. The orchestrator treats the
// underlying loader as an opaque key-value source; only the probe interprets
// these keys.
type Config struct {
	// Enabled gates managed mode entirely.
	Enabled bool
	// APIKey is the runtime credential. Falls back to ANTHROPIC_API_KEY.
	APIKey string
	// Model is the model deployment identifier.
	Model string
	// Ping optionally verifies runtime reachability. It must be
	// side-effect-free. If nil, configuration presence alone decides.
	Ping func(ctx context.Context) error
}

// Probe decides the execution mode for a run.
type Probe struct {
	cfg Config
}

// New creates a Probe for the given configuration.
func New(cfg Config) *Probe {
	return &Probe{cfg: cfg}
}

// Detect returns the execution mode for this run. It runs exactly once per
// run, never retries, never panics, and performs no partial agent creation:
// a probe that selects Managed has still created nothing.
func (p *Probe) Detect(ctx context.Context) Result {
	if !p.cfg.Enabled {
		return Result{Mode: models.ModeFallback, Reason: ReasonDisabled}
	}

	apiKey := p.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return Result{Mode: models.ModeFallback, Reason: ReasonMissingCredential}
	}
	if p.cfg.Model == "" {
		return Result{Mode: models.ModeFallback, Reason: ReasonMissingDeployment}
	}

	if p.cfg.Ping != nil {
		if err := p.cfg.Ping(ctx); err != nil {
			return Result{Mode: models.ModeFallback, Reason: ReasonRuntimeUnreachable, Err: err}
		}
	}

	return Result{Mode: models.ModeManaged, Reason: ReasonRuntimeReady}
}
