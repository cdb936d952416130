package artifact

import (
	"errors"
	"sync"
	"testing"

	"github.com/docsmith/docsmith/pkg/models"
)

func TestStore_Put_FillsDefaults(t *testing.T) {
	store := NewStore()

	a := &models.Artifact{
		Kind:    models.KindAnalysisReport,
		StageID: "analyze",
		Attempt: 1,
		Payload: []byte(`{}`),
	}
	if err := store.Put(a); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if a.ID == "" {
		t.Error("Put should assign an ID")
	}
	if a.CreatedAt.IsZero() {
		t.Error("Put should set CreatedAt")
	}
}

func TestStore_Put_DuplicateKeyRejected(t *testing.T) {
	store := NewStore()

	first := &models.Artifact{Kind: models.KindDraftDocument, StageID: "generate", Attempt: 1}
	if err := store.Put(first); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}

	dup := &models.Artifact{Kind: models.KindDraftDocument, StageID: "generate", Attempt: 1}
	err := store.Put(dup)
	if !errors.Is(err, ErrDuplicateWrite) {
		t.Errorf("duplicate Put error = %v, want ErrDuplicateWrite", err)
	}
}

func TestStore_Put_Validation(t *testing.T) {
	store := NewStore()

	tests := []struct {
		name string
		a    *models.Artifact
	}{
		{"missing stage", &models.Artifact{Kind: models.KindAnalysisReport, Attempt: 1}},
		{"zero attempt", &models.Artifact{Kind: models.KindAnalysisReport, StageID: "analyze"}},
		{"unknown kind", &models.Artifact{Kind: "report", StageID: "analyze", Attempt: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Put(tt.a); err == nil {
				t.Error("Put should have failed")
			}
		})
	}
}

func TestStore_Latest_SupersededByRetry(t *testing.T) {
	store := NewStore()

	v1 := &models.Artifact{Kind: models.KindRenderedOutput, StageID: "render-pdf", Attempt: 1, Payload: []byte("old")}
	v2 := &models.Artifact{Kind: models.KindRenderedOutput, StageID: "render-pdf", Attempt: 2, Payload: []byte("new")}
	if err := store.Put(v1); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := store.Put(v2); err != nil {
		t.Fatalf("Put v2: %v", err)
	}

	latest, err := store.Latest("render-pdf")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(latest.Payload) != "new" {
		t.Errorf("Latest payload = %q, want the attempt-2 artifact", latest.Payload)
	}

	// The earlier version stays readable.
	old, err := store.Get("render-pdf", 1)
	if err != nil {
		t.Fatalf("Get attempt 1: %v", err)
	}
	if string(old.Payload) != "old" {
		t.Errorf("Get attempt 1 payload = %q, want %q", old.Payload, "old")
	}
}

func TestStore_Latest_NotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.Latest("analyze"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty store = %v, want ErrNotFound", err)
	}
}

func TestStore_LatestOfKind(t *testing.T) {
	store := NewStore()

	artifacts := []*models.Artifact{
		{Kind: models.KindAnalysisReport, StageID: "analyze", Attempt: 1},
		{Kind: models.KindDraftDocument, StageID: "generate", Attempt: 1},
		{Kind: models.KindRenderedOutput, StageID: "render-pdf", Attempt: 1},
		{Kind: models.KindRenderedOutput, StageID: "render-html", Attempt: 1},
	}
	for _, a := range artifacts {
		if err := store.Put(a); err != nil {
			t.Fatalf("Put %s: %v", a.StageID, err)
		}
	}

	rendered := store.LatestOfKind(models.KindRenderedOutput)
	if len(rendered) != 2 {
		t.Errorf("LatestOfKind(rendered) returned %d artifacts, want 2", len(rendered))
	}
}

func TestStore_SupersedingOfKind(t *testing.T) {
	store := NewStore()

	v1 := &models.Artifact{Kind: models.KindAnalysisReport, StageID: "analyze", Attempt: 1, Payload: []byte("first")}
	v2 := &models.Artifact{Kind: models.KindAnalysisReport, StageID: "analyze", Attempt: 2, Payload: []byte("second")}
	for _, a := range []*models.Artifact{v1, v2} {
		if err := store.Put(a); err != nil {
			t.Fatalf("Put attempt %d: %v", a.Attempt, err)
		}
	}

	got, err := store.SupersedingOfKind(models.KindAnalysisReport)
	if err != nil {
		t.Fatalf("SupersedingOfKind: %v", err)
	}
	if string(got.Payload) != "second" {
		t.Errorf("payload = %q, want the attempt-2 artifact", got.Payload)
	}
}

func TestStore_SupersedingOfKind_NotFound(t *testing.T) {
	store := NewStore()
	if err := store.Put(&models.Artifact{Kind: models.KindAnalysisReport, StageID: "analyze", Attempt: 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.SupersedingOfKind(models.KindDraftDocument); !errors.Is(err, ErrNotFound) {
		t.Errorf("SupersedingOfKind for absent kind = %v, want ErrNotFound", err)
	}
}

func TestStore_ConcurrentFanOutWrites(t *testing.T) {
	store := NewStore()

	stages := []string{"render-pdf", "render-docx", "render-html", "render-markdown"}
	var wg sync.WaitGroup
	errs := make(chan error, len(stages))
	for _, stageID := range stages {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- store.Put(&models.Artifact{
				Kind:    models.KindRenderedOutput,
				StageID: id,
				Attempt: 1,
			})
		}(stageID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Put failed: %v", err)
		}
	}
	if store.Count() != len(stages) {
		t.Errorf("Count = %d, want %d", store.Count(), len(stages))
	}
}
