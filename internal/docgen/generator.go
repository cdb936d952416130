package docgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsmith/docsmith/internal/analysis"
)

// Generator is the template-driven document generator used on the fallback
// path. Output is deterministic for a given report, so identical requests
// yield structurally identical packages.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a draft document package from an analysis report.
func (g *Generator) Generate(ctx context.Context, report *analysis.Report, projectName string) (*Draft, error) {
	if report == nil {
		return nil, fmt.Errorf("analysis report is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if projectName == "" {
		projectName = "Documentation Package"
	}

	draft := &Draft{Title: projectName}
	for _, t := range AllDocTypes {
		draft.Sections = append(draft.Sections, Section{
			Type:  t,
			Title: sectionTitle(t),
			Body:  g.sectionBody(t, report),
		})
	}
	return draft, nil
}

// sectionTitle returns the heading for a document type.
func sectionTitle(t DocType) string {
	switch t {
	case DocBRD:
		return "Business Requirements Document (BRD)"
	case DocFRD:
		return "Functional Requirements Document (FRD)"
	case DocNFRD:
		return "Non-Functional Requirements Document (NFRD)"
	case DocSecurity:
		return "Security & Compliance"
	case DocArchitecture:
		return "Architecture Overview"
	default:
		return string(t)
	}
}

// sectionBody renders the Markdown body for one document type.
func (g *Generator) sectionBody(t DocType, report *analysis.Report) string {
	var b strings.Builder
	switch t {
	case DocBRD:
		b.WriteString("## Executive Summary\n\n")
		fmt.Fprintf(&b, "This document outlines the business requirements for the system at `%s`.\n\n", report.Source)
		b.WriteString("## Stakeholders\n\n- Development Team\n- Product Management\n- Quality Assurance\n- Security Team\n\n")
		b.WriteString("## Business Objectives\n\n1. Deliver high-quality documentation\n2. Ensure comprehensive coverage\n3. Maintain security standards\n4. Enable efficient onboarding\n")

	case DocFRD:
		b.WriteString("## System Summary\n\n")
		fmt.Fprintf(&b, "%s\n\n", report.Architecture)
		b.WriteString("## API Endpoints\n\n")
		if len(report.Endpoints) == 0 {
			b.WriteString("No API endpoints were detected.\n")
		} else {
			b.WriteString("| Method | Path | File |\n|---|---|---|\n")
			for _, ep := range report.Endpoints {
				fmt.Fprintf(&b, "| %s | `%s` | %s |\n", ep.Method, ep.Path, ep.File)
			}
		}

	case DocNFRD:
		b.WriteString("## Performance Requirements\n\n")
		b.WriteString("- Response time: < 200ms for API calls\n- Availability: 99.9% uptime\n\n")
		b.WriteString("## Scalability\n\n- Horizontal scaling capability\n- Load balancing\n- Caching strategy\n")

	case DocSecurity:
		b.WriteString("## Authentication\n\n")
		if len(report.AuthMethods) == 0 {
			b.WriteString("No authentication mechanisms were detected.\n\n")
		} else {
			for _, m := range report.AuthMethods {
				fmt.Fprintf(&b, "- %s\n", m)
			}
			b.WriteString("\n")
		}
		b.WriteString("## Findings\n\n")
		if len(report.SecurityFindings) == 0 {
			b.WriteString("No security findings.\n")
		} else {
			for _, f := range report.SecurityFindings {
				fmt.Fprintf(&b, "- **%s**: %s (%s)\n", f.Severity, f.Description, f.File)
			}
		}

	case DocArchitecture:
		fmt.Fprintf(&b, "## Technology Stack\n\n- Dominant language: %s\n- Source files: %d\n\n", report.Language, len(report.Files))
		b.WriteString("## Data Stores\n\n")
		if len(report.Databases) == 0 {
			b.WriteString("No database technologies were detected.\n")
		} else {
			for _, db := range report.Databases {
				fmt.Fprintf(&b, "- %s\n", db)
			}
		}
	}
	return b.String()
}
