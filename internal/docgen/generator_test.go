package docgen

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/docsmith/docsmith/internal/analysis"
)

func sampleReport() *analysis.Report {
	return &analysis.Report{
		Source:       "/src/payments",
		Architecture: "12 files | Python Web | 2 endpoints",
		Language:     "Python Web",
		Files:        []string{"app.py"},
		Endpoints: []analysis.Endpoint{
			{Method: "GET", Path: "/users", File: "app.py"},
			{Method: "POST", Path: "/login", File: "app.py"},
		},
		AuthMethods: []string{"jwt"},
		Databases:   []string{"postgres"},
		SecurityFindings: []analysis.Finding{
			{Severity: "high", Description: "possible hardcoded credential", File: "config.py"},
		},
	}
}

func TestGenerator_ProducesAllSections(t *testing.T) {
	draft, err := NewGenerator().Generate(context.Background(), sampleReport(), "Payments")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Title != "Payments" {
		t.Errorf("Title = %q, want Payments", draft.Title)
	}
	if len(draft.Sections) != len(AllDocTypes) {
		t.Fatalf("Sections = %d, want %d", len(draft.Sections), len(AllDocTypes))
	}
	for _, dt := range AllDocTypes {
		if draft.Section(dt) == nil {
			t.Errorf("missing section %q", dt)
		}
	}
}

func TestGenerator_SectionsReflectReport(t *testing.T) {
	draft, err := NewGenerator().Generate(context.Background(), sampleReport(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	frd := draft.Section(DocFRD)
	if !strings.Contains(frd.Body, "/login") {
		t.Error("FRD should list detected endpoints")
	}
	sec := draft.Section(DocSecurity)
	if !strings.Contains(sec.Body, "jwt") {
		t.Error("Security section should list auth methods")
	}
	if !strings.Contains(sec.Body, "hardcoded credential") {
		t.Error("Security section should list findings")
	}
	arch := draft.Section(DocArchitecture)
	if !strings.Contains(arch.Body, "postgres") {
		t.Error("Architecture section should list databases")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	report := sampleReport()
	gen := NewGenerator()

	first, err := gen.Generate(context.Background(), report, "Payments")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), report, "Payments")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	a, _ := first.Marshal()
	b, _ := second.Marshal()
	if !bytes.Equal(a, b) {
		t.Error("identical reports should produce byte-identical drafts")
	}
}

func TestGenerator_RequiresReport(t *testing.T) {
	if _, err := NewGenerator().Generate(context.Background(), nil, ""); err == nil {
		t.Error("Generate should fail without a report")
	}
}

func TestDraft_MarshalRoundTrip(t *testing.T) {
	draft, err := NewGenerator().Generate(context.Background(), sampleReport(), "Payments")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, err := draft.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := UnmarshalDraft(data)
	if err != nil {
		t.Fatalf("UnmarshalDraft: %v", err)
	}
	if decoded.Title != draft.Title || len(decoded.Sections) != len(draft.Sections) {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
