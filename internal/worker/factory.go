package worker

import (
	"fmt"

	"github.com/docsmith/docsmith/internal/analysis"
	"github.com/docsmith/docsmith/internal/docgen"
	"github.com/docsmith/docsmith/internal/render"
	"github.com/docsmith/docsmith/pkg/models"
)

// Deps carries the collaborators workers are built from.
type Deps struct {
	// Analyzer is the local code analyzer. Defaults to analysis.NewAnalyzer.
	Analyzer *analysis.Analyzer
	// Generator is the local document generator. Defaults to docgen.NewGenerator.
	Generator *docgen.Generator
	// Renderer is the local renderer. Defaults to render.NewRenderer.
	Renderer *render.Renderer
	// Resolver resolves remote agent descriptors. Required for managed mode.
	Resolver AgentResolver
	// Invoker routes invocations to remote agents. Required for managed mode.
	Invoker Invoker
	// Uploader optionally ships renditions to object storage.
	Uploader Uploader
}

// Set holds one worker per role, built once for a run's execution mode.
// The mode is selected by the capability probe before the set is built;
// stage logic never branches on it afterwards.
type Set struct {
	mode    models.ExecutionMode
	workers map[models.WorkerRole]Worker
}

// NewSet builds the worker set for the given execution mode.
func NewSet(mode models.ExecutionMode, deps Deps) (*Set, error) {
	workers := make(map[models.WorkerRole]Worker)

	switch mode {
	case models.ModeManaged:
		if deps.Resolver == nil || deps.Invoker == nil {
			return nil, fmt.Errorf("managed mode requires a resolver and an invoker")
		}
		for _, role := range []models.WorkerRole{models.RoleAnalyzer, models.RoleGenerator, models.RoleFormatter} {
			workers[role] = NewManagedWorker(role, deps.Resolver, deps.Invoker, deps.Uploader)
		}

	case models.ModeFallback:
		if deps.Analyzer == nil {
			deps.Analyzer = analysis.NewAnalyzer()
		}
		if deps.Generator == nil {
			deps.Generator = docgen.NewGenerator()
		}
		if deps.Renderer == nil {
			deps.Renderer = render.NewRenderer()
		}
		workers[models.RoleAnalyzer] = NewFallbackAnalyzer(deps.Analyzer)
		workers[models.RoleGenerator] = NewFallbackGenerator(deps.Generator)
		workers[models.RoleFormatter] = NewFallbackFormatter(deps.Renderer, deps.Uploader)

	default:
		return nil, fmt.Errorf("unknown execution mode %q", mode)
	}

	return &Set{mode: mode, workers: workers}, nil
}

// Mode returns the execution mode the set was built for.
func (s *Set) Mode() models.ExecutionMode {
	return s.mode
}

// ForRole returns the worker serving the given role.
func (s *Set) ForRole(role models.WorkerRole) (Worker, error) {
	w, ok := s.workers[role]
	if !ok {
		return nil, fmt.Errorf("no worker for role %q", role)
	}
	return w, nil
}
