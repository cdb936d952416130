package orchestrator

import (
	"fmt"
	"sort"

	"github.com/docsmith/docsmith/pkg/models"
)

// Stage IDs for the fixed pipeline chain. Render sub-stages append the
// format name, e.g. "render-pdf".
const (
	StageAnalyze      = "analyze"
	StageGenerate     = "generate"
	renderStagePrefix = "render-"
)

// RenderStageID returns the sub-stage ID for one output format.
func RenderStageID(format models.OutputFormat) string {
	return renderStagePrefix + string(format)
}

// TaskGraph is the planned execution for one run: a fixed analyze/generate
// chain followed by one render sub-stage per requested format. The graph is
// data only; it holds no channels, no clocks, and no worker references, so
// building it twice from the same request yields identical graphs.
type TaskGraph struct {
	// Chain is the sequential prefix, in execution order.
	Chain []models.Stage
	// FanOut is the parallel render layer, sorted by format for determinism.
	FanOut []models.Stage
}

// Stages returns every stage in deterministic order, chain first.
func (g *TaskGraph) Stages() []models.Stage {
	out := make([]models.Stage, 0, len(g.Chain)+len(g.FanOut))
	out = append(out, g.Chain...)
	out = append(out, g.FanOut...)
	return out
}

// Size returns the total number of stages.
func (g *TaskGraph) Size() int {
	return len(g.Chain) + len(g.FanOut)
}

// BuildGraph validates the request and plans its execution. Duplicate
// formats are collapsed to one sub-stage each; an unknown format or an empty
// request fails with a ConfigError before any stage runs.
func BuildGraph(req *models.TaskRequest) (*TaskGraph, error) {
	if req == nil || req.Source == "" {
		return nil, &ConfigError{Reason: "request has no source"}
	}
	if len(req.Formats) == 0 {
		return nil, &ConfigError{Reason: "request has no output formats"}
	}

	seen := make(map[models.OutputFormat]bool)
	formats := make([]models.OutputFormat, 0, len(req.Formats))
	for _, f := range req.Formats {
		if !f.Valid() {
			return nil, &ConfigError{Reason: fmt.Sprintf("unsupported output format %q", f)}
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })

	g := &TaskGraph{
		Chain: []models.Stage{
			{
				ID:     StageAnalyze,
				Name:   "Analyze codebase",
				Role:   models.RoleAnalyzer,
				Inputs: nil,
				Output: models.KindAnalysisReport,
			},
			{
				ID:     StageGenerate,
				Name:   "Generate documentation draft",
				Role:   models.RoleGenerator,
				Inputs: []models.ArtifactKind{models.KindAnalysisReport},
				Output: models.KindDraftDocument,
			},
		},
	}

	for _, f := range formats {
		g.FanOut = append(g.FanOut, models.Stage{
			ID:     RenderStageID(f),
			Name:   fmt.Sprintf("Render %s output", f),
			Role:   models.RoleFormatter,
			Inputs: []models.ArtifactKind{models.KindDraftDocument},
			Output: models.KindRenderedOutput,
			Format: f,
		})
	}

	return g, nil
}
