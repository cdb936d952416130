package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsmith/docsmith/internal/analysis"
	"github.com/docsmith/docsmith/internal/docgen"
	"github.com/docsmith/docsmith/pkg/models"
)

// ManagedWorker routes a stage to a remotely registered agent identity.
// The Analyze/Generate/Format distinction maps to remote role assignment;
// delegated sub-task routing between remote agents is the host runtime's
// concern and invisible here.
type ManagedWorker struct {
	role     models.WorkerRole
	resolver AgentResolver
	invoker  Invoker
	uploader Uploader
}

// NewManagedWorker creates a managed worker for the given role.
func NewManagedWorker(role models.WorkerRole, resolver AgentResolver, invoker Invoker, uploader Uploader) *ManagedWorker {
	return &ManagedWorker{role: role, resolver: resolver, invoker: invoker, uploader: uploader}
}

// Role implements Worker.
func (w *ManagedWorker) Role() models.WorkerRole { return w.role }

// Execute validates inputs locally, resolves the remote agent, routes the
// sub-task to it, and parses the response into the same artifact shape the
// fallback worker produces.
func (w *ManagedWorker) Execute(ctx context.Context, stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (*models.Artifact, error) {
	if err := validateInputs(stage, inputs); err != nil {
		return nil, err
	}

	desc, err := w.resolver.Resolve(ctx, w.role)
	if err != nil {
		return nil, &WorkerError{Kind: ErrRemoteUnavailable, Stage: stage.ID, Cause: fmt.Errorf("resolve agent: %w", err)}
	}

	prompt, err := w.buildPrompt(stage, req, inputs)
	if err != nil {
		return nil, err
	}

	response, err := w.invoker.Invoke(ctx, desc, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &WorkerError{Kind: ErrRemoteUnavailable, Stage: stage.ID, Cause: err}
	}

	return w.parseResponse(ctx, stage, req, response)
}

// buildPrompt assembles the sub-task prompt for the remote agent.
func (w *ManagedWorker) buildPrompt(stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (string, error) {
	switch w.role {
	case models.RoleAnalyzer:
		return fmt.Sprintf("Analyze the codebase at %q and report your findings.", req.Source), nil
	case models.RoleGenerator:
		return fmt.Sprintf("Project name: %s\n\nAnalysis JSON:\n%s",
			req.Option("project_name", "Documentation Package"), inputs[0].Payload), nil
	case models.RoleFormatter:
		return fmt.Sprintf("Target format: %s\n\nDraft JSON:\n%s", stage.Format, inputs[0].Payload), nil
	default:
		return "", &WorkerError{Kind: ErrSchemaMismatch, Stage: stage.ID, Cause: fmt.Errorf("unknown role %q", w.role)}
	}
}

// parseResponse converts the remote response into an artifact, enforcing the
// kind-specific payload schema so both modes stay byte-compatible.
func (w *ManagedWorker) parseResponse(ctx context.Context, stage models.Stage, req *models.TaskRequest, response string) (*models.Artifact, error) {
	switch w.role {
	case models.RoleAnalyzer:
		report, err := analysis.UnmarshalReport([]byte(extractJSON(response)))
		if err != nil {
			return nil, &WorkerError{Kind: ErrAnalysisFailed, Stage: stage.ID, Cause: fmt.Errorf("decode remote report: %w", err)}
		}
		payload, err := report.Marshal()
		if err != nil {
			return nil, &WorkerError{Kind: ErrAnalysisFailed, Stage: stage.ID, Cause: err}
		}
		return &models.Artifact{Kind: models.KindAnalysisReport, Payload: payload}, nil

	case models.RoleGenerator:
		draft, err := docgen.UnmarshalDraft([]byte(extractJSON(response)))
		if err != nil {
			return nil, &WorkerError{Kind: ErrGenerationFailed, Stage: stage.ID, Cause: fmt.Errorf("decode remote draft: %w", err)}
		}
		payload, err := draft.Marshal()
		if err != nil {
			return nil, &WorkerError{Kind: ErrGenerationFailed, Stage: stage.ID, Cause: err}
		}
		return &models.Artifact{Kind: models.KindDraftDocument, Payload: payload}, nil

	case models.RoleFormatter:
		payload := []byte(response)
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

	default:
		return nil, &WorkerError{Kind: ErrSchemaMismatch, Stage: stage.ID, Cause: fmt.Errorf("unknown role %q", w.role)}
	}
}

// extractJSON strips prose and code fences around a JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
