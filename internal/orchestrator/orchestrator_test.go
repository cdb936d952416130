package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/docsmith/docsmith/internal/analysis"
	"github.com/docsmith/docsmith/internal/artifact"
	"github.com/docsmith/docsmith/internal/docgen"
	"github.com/docsmith/docsmith/internal/probe"
	"github.com/docsmith/docsmith/internal/render"
	"github.com/docsmith/docsmith/internal/worker"
	"github.com/docsmith/docsmith/pkg/models"
)

// scriptedInvoker replays canned responses per role, optionally failing the
// first N calls for a role. It stands in for the managed runtime.
type scriptedInvoker struct {
	mu        sync.Mutex
	calls     map[models.WorkerRole]int
	failFirst map[models.WorkerRole]int
	responses map[models.WorkerRole]string
	onInvoke  func(role models.WorkerRole)
}

func (s *scriptedInvoker) Invoke(ctx context.Context, desc *models.AgentDescriptor, prompt string) (string, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[models.WorkerRole]int)
	}
	s.calls[desc.Role]++
	n := s.calls[desc.Role]
	hook := s.onInvoke
	s.mu.Unlock()

	if hook != nil {
		hook(desc.Role)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if n <= s.failFirst[desc.Role] {
		return "", errors.New("runtime connection reset")
	}
	return s.responses[desc.Role], nil
}

func (s *scriptedInvoker) callCount(role models.WorkerRole) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[role]
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error) {
	return &models.AgentDescriptor{ID: "agent-" + string(role), Role: role, Mode: models.ModeManaged}, nil
}

// sourceDir creates a small codebase the analyzer finds signal in.
func sourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := "import jwt\napp.get(\"/users\", handler)\napp.post(\"/login\", login)\n"
	if err := os.WriteFile(filepath.Join(dir, "server.js"), []byte(content), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return dir
}

// cannedResponses builds managed-runtime responses from the fallback
// collaborators so both modes produce identical payloads.
func cannedResponses(t *testing.T, source string) map[models.WorkerRole]string {
	t.Helper()
	ctx := context.Background()

	report, err := analysis.NewAnalyzer().Analyze(ctx, source)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	reportJSON, err := report.Marshal()
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}

	draft, err := docgen.NewGenerator().Generate(ctx, report, "Demo")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	draftJSON, err := draft.Marshal()
	if err != nil {
		t.Fatalf("marshal draft: %v", err)
	}

	return map[models.WorkerRole]string{
		models.RoleAnalyzer:  fmt.Sprintf("```json\n%s\n```", reportJSON),
		models.RoleGenerator: fmt.Sprintf("```json\n%s\n```", draftJSON),
		models.RoleFormatter: "# Demo\n\nRendered by the managed runtime.\n",
	}
}

func fallbackProbe(ctx context.Context) probe.Result {
	return probe.Result{Mode: models.ModeFallback, Reason: probe.ReasonDisabled}
}

func managedProbe(ctx context.Context) probe.Result {
	return probe.Result{Mode: models.ModeManaged, Reason: probe.ReasonRuntimeReady}
}

func fastRetry(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Backoff: time.Millisecond}
}

func workerFactory(deps worker.Deps) func(models.ExecutionMode) (*worker.Set, error) {
	return func(mode models.ExecutionMode) (*worker.Set, error) {
		return worker.NewSet(mode, deps)
	}
}

func TestSubmit_FallbackEndToEnd(t *testing.T) {
	src := sourceDir(t)
	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{})}, WithRetryPolicy(fastRetry(2)))

	req := &models.TaskRequest{
		Source:  src,
		Formats: []models.OutputFormat{models.FormatMarkdown, models.FormatHTML},
		Options: map[string]string{"project_name": "Demo"},
	}
	pkg, err := o.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(pkg.Outputs) != 2 {
		t.Errorf("package has %d outputs, want 2", len(pkg.Outputs))
	}
	for _, f := range []models.OutputFormat{models.FormatMarkdown, models.FormatHTML} {
		a, ok := pkg.Outputs[f]
		if !ok || len(a.Payload) == 0 {
			t.Errorf("missing or empty %s output", f)
		}
	}
	if pkg.Analysis == nil || pkg.Draft == nil {
		t.Error("package must carry analysis and draft artifacts for traceability")
	}
	if len(pkg.FailedFormats) != 0 {
		t.Errorf("FailedFormats = %v, want empty", pkg.FailedFormats)
	}

	status, err := o.Status(pkg.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != models.RunStateDone {
		t.Errorf("state = %q, want done", status.State)
	}
	if status.Mode != models.ModeFallback {
		t.Errorf("mode = %q, want fallback", status.Mode)
	}
	if status.TotalRetries() != 0 {
		t.Errorf("retries = %d, want 0", status.TotalRetries())
	}
}

func TestSubmit_Idempotent(t *testing.T) {
	src := sourceDir(t)
	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{})})

	req := &models.TaskRequest{
		Source:  src,
		Formats: []models.OutputFormat{models.FormatMarkdown},
		Options: map[string]string{"project_name": "Demo"},
	}

	first, err := o.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := o.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	if first.RunID == second.RunID {
		t.Error("each submission must get its own run ID")
	}
	a := first.Outputs[models.FormatMarkdown]
	b := second.Outputs[models.FormatMarkdown]
	if string(a.Payload) != string(b.Payload) {
		t.Error("same request must yield byte-identical markdown output")
	}
}

func TestSubmit_UnsupportedFormatInvokesNothing(t *testing.T) {
	var probes, factories int
	o := New(Deps{
		Probe: func(ctx context.Context) probe.Result {
			probes++
			return fallbackProbe(ctx)
		},
		Workers: func(mode models.ExecutionMode) (*worker.Set, error) {
			factories++
			return worker.NewSet(mode, worker.Deps{})
		},
	})

	req := &models.TaskRequest{Source: "/src", Formats: []models.OutputFormat{"epub"}}
	pkg, err := o.Submit(context.Background(), req)
	if pkg != nil {
		t.Error("invalid request must not produce a package")
	}
	if _, ok := AsConfigError(err); !ok {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if probes != 1 {
		t.Errorf("probe ran %d times, want 1", probes)
	}
	if factories != 0 {
		t.Errorf("worker factory ran %d times, want 0 (no stage may start)", factories)
	}
}

func TestSubmit_TransientFailuresRetriedAndCounted(t *testing.T) {
	src := sourceDir(t)
	invoker := &scriptedInvoker{
		failFirst: map[models.WorkerRole]int{models.RoleAnalyzer: 2},
		responses: cannedResponses(t, src),
	}
	o := New(
		Deps{Probe: managedProbe, Workers: workerFactory(worker.Deps{Resolver: stubResolver{}, Invoker: invoker})},
		WithRetryPolicy(fastRetry(2)),
	)

	req := &models.TaskRequest{
		Source:  src,
		Formats: []models.OutputFormat{models.FormatMarkdown},
		Options: map[string]string{"project_name": "Demo"},
	}
	pkg, err := o.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(pkg.Outputs) != 1 {
		t.Errorf("package has %d outputs, want 1", len(pkg.Outputs))
	}

	status, err := o.Status(pkg.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.State != models.RunStateDone {
		t.Errorf("state = %q, want done", status.State)
	}
	if got := status.RetryCount(StageAnalyze); got != 2 {
		t.Errorf("analyze retries = %d, want 2", got)
	}
	if got := invoker.callCount(models.RoleAnalyzer); got != 3 {
		t.Errorf("analyzer invoked %d times, want 3 (two failures, one success)", got)
	}
}

func TestSubmit_ExhaustedRetriesFailTheRun(t *testing.T) {
	src := sourceDir(t)
	invoker := &scriptedInvoker{
		failFirst: map[models.WorkerRole]int{models.RoleAnalyzer: 10},
		responses: cannedResponses(t, src),
	}
	o := New(
		Deps{Probe: managedProbe, Workers: workerFactory(worker.Deps{Resolver: stubResolver{}, Invoker: invoker})},
		WithRetryPolicy(fastRetry(2)),
	)

	req := &models.TaskRequest{Source: src, Formats: []models.OutputFormat{models.FormatMarkdown}}
	pkg, err := o.Submit(context.Background(), req)
	if pkg != nil {
		t.Error("failed run must not produce a package")
	}
	re, ok := AsRunError(err)
	if !ok || re.Kind != KindStageFailed {
		t.Fatalf("error = %v, want stage_failed RunError", err)
	}
	if re.Stage != StageAnalyze {
		t.Errorf("failure stage = %q, want analyze", re.Stage)
	}
	if re.Retries != 2 {
		t.Errorf("RunError retries = %d, want 2 (the count actually consumed)", re.Retries)
	}
	if got := invoker.callCount(models.RoleAnalyzer); got != 3 {
		t.Errorf("analyzer invoked %d times, want 3 (initial + 2 retries)", got)
	}
	if got := invoker.callCount(models.RoleGenerator); got != 0 {
		t.Errorf("generator invoked %d times, want 0 (fail-fast chain)", got)
	}
}

func TestSubmit_WrappedDeadlineClassifiedCancelled(t *testing.T) {
	src := sourceDir(t)
	o := New(
		Deps{Probe: managedProbe, Workers: workerFactory(worker.Deps{Resolver: stubResolver{}, Invoker: expiredInvoker{}})},
		WithRetryPolicy(RetryPolicy{MaxRetries: 0, Backoff: time.Millisecond}),
	)

	req := &models.TaskRequest{Source: src, Formats: []models.OutputFormat{models.FormatMarkdown}}
	pkg, err := o.Submit(context.Background(), req)
	if pkg != nil {
		t.Error("cancelled run must not produce a package")
	}
	re, ok := AsRunError(err)
	if !ok || re.Kind != KindCancelled {
		t.Fatalf("error = %v, want cancelled RunError", err)
	}

	runs := o.Runs()
	if len(runs) != 1 || runs[0].State != models.RunStateCancelled {
		t.Errorf("run state = %v, want cancelled", runs)
	}
}

func TestSubmit_DeterministicFailureNeverRetried(t *testing.T) {
	src := sourceDir(t)
	responses := cannedResponses(t, src)
	// The analyzer returns prose instead of the report schema: decoding
	// fails deterministically, so replaying it is pointless.
	responses[models.RoleAnalyzer] = "I could not analyze this codebase."
	invoker := &scriptedInvoker{responses: responses}
	o := New(
		Deps{Probe: managedProbe, Workers: workerFactory(worker.Deps{Resolver: stubResolver{}, Invoker: invoker})},
		WithRetryPolicy(fastRetry(3)),
	)

	req := &models.TaskRequest{Source: src, Formats: []models.OutputFormat{models.FormatMarkdown}}
	_, err := o.Submit(context.Background(), req)
	re, ok := AsRunError(err)
	if !ok || re.Kind != KindStageFailed {
		t.Fatalf("error = %v, want stage_failed RunError", err)
	}
	if got := invoker.callCount(models.RoleAnalyzer); got != 1 {
		t.Errorf("analyzer invoked %d times, want exactly 1 (no retries)", got)
	}

	runs := o.Runs()
	if len(runs) != 1 || runs[0].TotalRetries() != 0 {
		t.Errorf("deterministic failure must record zero retries, got %v", runs)
	}
}

func TestSubmit_PartialFormatFailure(t *testing.T) {
	src := sourceDir(t)

	// A renderer with a PDF engine but no DOCX engine: the pdf sub-stage
	// succeeds while docx fails.
	renderer := render.NewRenderer()
	renderer.RegisterEngine(models.FormatPDF, stubEngine{payload: []byte("%PDF-1.4 demo")})

	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{Renderer: renderer})})

	req := &models.TaskRequest{
		Source:  src,
		Formats: []models.OutputFormat{models.FormatPDF, models.FormatDOCX},
		Options: map[string]string{"project_name": "Demo"},
	}
	pkg, err := o.Submit(context.Background(), req)

	re, ok := AsRunError(err)
	if !ok || re.Kind != KindPartialFormatFailure {
		t.Fatalf("error = %v, want partial_format_failure RunError", err)
	}
	if pkg == nil {
		t.Fatal("partial failure must still return the partial package")
	}
	if len(re.FailedFormats) != 1 || re.FailedFormats[0] != models.FormatDOCX {
		t.Errorf("failed formats = %v, want [docx]", re.FailedFormats)
	}
	if a, ok := pkg.Outputs[models.FormatPDF]; !ok || len(a.Payload) == 0 {
		t.Error("pdf artifact must be present and valid in the partial package")
	}
	if _, ok := pkg.Outputs[models.FormatDOCX]; ok {
		t.Error("docx must not appear in outputs")
	}
	if len(pkg.FailedFormats) != 1 || pkg.FailedFormats[0] != models.FormatDOCX {
		t.Errorf("package failed formats = %v, want [docx]", pkg.FailedFormats)
	}
}

func TestSubmit_AllRenderStagesFailed(t *testing.T) {
	src := sourceDir(t)
	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{})})

	// No engine exists for pdf in the default renderer.
	req := &models.TaskRequest{Source: src, Formats: []models.OutputFormat{models.FormatPDF}}
	pkg, err := o.Submit(context.Background(), req)
	if pkg != nil {
		t.Error("run with no rendered output must not produce a package")
	}
	re, ok := AsRunError(err)
	if !ok || re.Kind != KindStageFailed {
		t.Fatalf("error = %v, want stage_failed RunError", err)
	}
}

func TestSubmit_CancellationMidFanOut(t *testing.T) {
	src := sourceDir(t)
	ctx, cancel := context.WithCancel(context.Background())

	invoker := &scriptedInvoker{responses: cannedResponses(t, src)}
	invoker.onInvoke = func(role models.WorkerRole) {
		// Cancel as soon as the fan-out reaches the formatter.
		if role == models.RoleFormatter {
			cancel()
		}
	}

	o := New(
		Deps{Probe: managedProbe, Workers: workerFactory(worker.Deps{Resolver: stubResolver{}, Invoker: invoker})},
		WithMaxRenderWorkers(2),
	)

	req := &models.TaskRequest{
		Source:  src,
		Formats: []models.OutputFormat{models.FormatMarkdown, models.FormatHTML, models.FormatPDF, models.FormatDOCX},
	}
	pkg, err := o.Submit(ctx, req)
	if pkg != nil {
		t.Error("cancelled run must not produce a package")
	}
	re, ok := AsRunError(err)
	if !ok || re.Kind != KindCancelled {
		t.Fatalf("error = %v, want cancelled RunError", err)
	}

	runs := o.Runs()
	if len(runs) != 1 || runs[0].State != models.RunStateCancelled {
		t.Errorf("run state = %v, want cancelled", runs)
	}
}

func TestRunStage_MissingInputIsInternalGraphError(t *testing.T) {
	src := sourceDir(t)
	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{})})
	workers, err := worker.NewSet(models.ModeFallback, worker.Deps{})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	// An empty store with a stage that declares inputs: the graph invariant
	// is violated before the worker could run.
	store := artifact.NewStore()
	status := o.newStatus("test-run")
	stage := models.Stage{
		ID: StageGenerate, Role: models.RoleGenerator,
		Inputs: []models.ArtifactKind{models.KindAnalysisReport},
		Output: models.KindDraftDocument,
	}
	err = o.runStage(context.Background(), status, stage, &models.TaskRequest{Source: src}, workers, store)

	re, ok := AsRunError(err)
	if !ok || re.Kind != KindInternalGraphError {
		t.Fatalf("error = %v, want internal_graph_error RunError", err)
	}
}

func TestStatus_UnknownRun(t *testing.T) {
	o := New(Deps{Probe: fallbackProbe, Workers: workerFactory(worker.Deps{})})
	if _, err := o.Status("missing"); err == nil {
		t.Error("Status should fail for unknown run IDs")
	}
}

// expiredInvoker simulates a runtime client whose own request deadline
// elapsed: the context error surfaces wrapped rather than bare.
type expiredInvoker struct{}

func (expiredInvoker) Invoke(ctx context.Context, desc *models.AgentDescriptor, prompt string) (string, error) {
	return "", fmt.Errorf("invoke %s: %w", desc.Role, context.DeadlineExceeded)
}

// stubEngine renders a fixed payload.
type stubEngine struct {
	payload []byte
}

func (e stubEngine) Render(ctx context.Context, draft *docgen.Draft) ([]byte, error) {
	return e.payload, nil
}
