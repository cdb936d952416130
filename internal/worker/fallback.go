package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docsmith/docsmith/internal/analysis"
	"github.com/docsmith/docsmith/internal/docgen"
	"github.com/docsmith/docsmith/internal/render"
	"github.com/docsmith/docsmith/pkg/models"
)

// FallbackAnalyzer analyzes the codebase through the local analyzer,
// with no cross-agent routing.
type FallbackAnalyzer struct {
	analyzer *analysis.Analyzer
}

// NewFallbackAnalyzer creates the fallback Analyze worker.
func NewFallbackAnalyzer(a *analysis.Analyzer) *FallbackAnalyzer {
	return &FallbackAnalyzer{analyzer: a}
}

// Role implements Worker.
func (w *FallbackAnalyzer) Role() models.WorkerRole { return models.RoleAnalyzer }

// Execute analyzes the request's source and produces an AnalysisReport artifact.
func (w *FallbackAnalyzer) Execute(ctx context.Context, stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (*models.Artifact, error) {
	if err := validateInputs(stage, inputs); err != nil {
		return nil, err
	}

	report, err := w.analyzer.Analyze(ctx, req.Source)
	if err != nil {
		return nil, &WorkerError{Kind: ErrAnalysisFailed, Stage: stage.ID, Cause: err}
	}
	payload, err := report.Marshal()
	if err != nil {
		return nil, &WorkerError{Kind: ErrAnalysisFailed, Stage: stage.ID, Cause: err}
	}
	return &models.Artifact{Kind: models.KindAnalysisReport, Payload: payload}, nil
}

// FallbackGenerator generates the draft through the local template generator.
type FallbackGenerator struct {
	generator *docgen.Generator
}

// NewFallbackGenerator creates the fallback Generate worker.
func NewFallbackGenerator(g *docgen.Generator) *FallbackGenerator {
	return &FallbackGenerator{generator: g}
}

// Role implements Worker.
func (w *FallbackGenerator) Role() models.WorkerRole { return models.RoleGenerator }

// Execute turns the AnalysisReport input into a DraftDocument artifact.
func (w *FallbackGenerator) Execute(ctx context.Context, stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (*models.Artifact, error) {
	if err := validateInputs(stage, inputs); err != nil {
		return nil, err
	}

	report, err := analysis.UnmarshalReport(inputs[0].Payload)
	if err != nil {
		return nil, &WorkerError{
			Kind:  ErrSchemaMismatch,
			Stage: stage.ID,
			Cause: fmt.Errorf("decode analysis report: %w", err),
		}
	}

	draft, err := w.generator.Generate(ctx, report, req.Option("project_name", ""))
	if err != nil {
		return nil, &WorkerError{Kind: ErrGenerationFailed, Stage: stage.ID, Cause: err}
	}
	payload, err := draft.Marshal()
	if err != nil {
		return nil, &WorkerError{Kind: ErrGenerationFailed, Stage: stage.ID, Cause: err}
	}
	return &models.Artifact{Kind: models.KindDraftDocument, Payload: payload}, nil
}

// FallbackFormatter renders one output format through the local renderer.
type FallbackFormatter struct {
	renderer *render.Renderer
	uploader Uploader
}

// NewFallbackFormatter creates the fallback Format worker.
// The uploader is optional; when set, rendered payloads are shipped to
// object storage and the artifact carries the returned reference.
func NewFallbackFormatter(r *render.Renderer, uploader Uploader) *FallbackFormatter {
	return &FallbackFormatter{renderer: r, uploader: uploader}
}

// Role implements Worker.
func (w *FallbackFormatter) Role() models.WorkerRole { return models.RoleFormatter }

// Execute renders the DraftDocument input into the stage's format.
func (w *FallbackFormatter) Execute(ctx context.Context, stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (*models.Artifact, error) {
	if err := validateInputs(stage, inputs); err != nil {
		return nil, err
	}

	draft, err := docgen.UnmarshalDraft(inputs[0].Payload)
	if err != nil {
		return nil, &WorkerError{
			Kind:  ErrSchemaMismatch,
			Stage: stage.ID,
			Cause: fmt.Errorf("decode draft document: %w", err),
		}
	}

	payload, err := w.renderer.Render(ctx, draft, stage.Format)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &WorkerError{Kind: ErrRenderFailed, Stage: stage.ID, Cause: err}
	}

	artifact := &models.Artifact{
		Kind:    models.KindRenderedOutput,
		Format:  stage.Format,
		Payload: payload,
	}
	if w.uploader != nil {
		name := fmt.Sprintf("%s.%s", req.Option("project_name", "documentation"), stage.Format.Extension())
		ref, err := w.uploader.Upload(ctx, name, payload)
		if err != nil {
			return nil, &WorkerError{Kind: ErrRenderFailed, Stage: stage.ID, Cause: fmt.Errorf("upload rendition: %w", err)}
		}
		artifact.StorageRef = ref
	}
	return artifact, nil
}
