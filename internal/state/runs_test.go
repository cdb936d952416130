package state

import (
	"path/filepath"
	"testing"

	"github.com/docsmith/docsmith/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	req := &models.TaskRequest{
		Source:  "/src/app",
		Formats: []models.OutputFormat{models.FormatPDF, models.FormatMarkdown},
	}
	if err := db.CreateRun("run1", req); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.UpdateRunState("run1", models.RunStateExecuting, models.ModeFallback); err != nil {
		t.Fatalf("UpdateRunState: %v", err)
	}
	if err := db.FinishRun("run1", models.RunStateDone, "", ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	rec, err := db.GetRun("run1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.State != models.RunStateDone {
		t.Errorf("State = %q, want done", rec.State)
	}
	if rec.Mode != models.ModeFallback {
		t.Errorf("Mode = %q, want fallback", rec.Mode)
	}
	if len(rec.Formats) != 2 {
		t.Errorf("Formats = %v, want 2 entries", rec.Formats)
	}
	if rec.FinishedAt == nil {
		t.Error("FinishedAt should be set for terminal runs")
	}
}

func TestFinishRun_RecordsFailureTaxonomy(t *testing.T) {
	db := openTestDB(t)

	req := &models.TaskRequest{Source: "/src", Formats: []models.OutputFormat{models.FormatHTML}}
	if err := db.CreateRun("run2", req); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.FinishRun("run2", models.RunStateFailed, "stage_failed", "generate"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	rec, err := db.GetRun("run2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.FailureKind != "stage_failed" || rec.FailureStage != "generate" {
		t.Errorf("failure = (%q, %q), want (stage_failed, generate)", rec.FailureKind, rec.FailureStage)
	}
}

func TestRecordStageAttemptAndArtifact(t *testing.T) {
	db := openTestDB(t)

	req := &models.TaskRequest{Source: "/src", Formats: []models.OutputFormat{models.FormatHTML}}
	if err := db.CreateRun("run3", req); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.RecordStageAttempt("run3", "analyze", 1, "failed", "remote unavailable"); err != nil {
		t.Fatalf("RecordStageAttempt: %v", err)
	}
	if err := db.RecordStageAttempt("run3", "analyze", 2, "succeeded", ""); err != nil {
		t.Fatalf("RecordStageAttempt (retry): %v", err)
	}
	artifact := &models.Artifact{
		ID: "a1", Kind: models.KindAnalysisReport, StageID: "analyze", Attempt: 2,
	}
	if err := db.RecordArtifact("run3", artifact); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	req := &models.TaskRequest{Source: "/src", Formats: []models.OutputFormat{models.FormatHTML}}
	for _, id := range []string{"a", "b", "c"} {
		if err := db.CreateRun(id, req); err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}

	records, err := db.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("RecentRuns returned %d records, want 2", len(records))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("missing"); err == nil {
		t.Error("GetRun should fail for unknown run IDs")
	}
}
