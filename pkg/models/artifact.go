package models

import "time"

// ArtifactKind identifies the schema of an artifact payload.
type ArtifactKind string

const (
	// KindAnalysisReport is the structured output of the Analyze stage.
	KindAnalysisReport ArtifactKind = "analysis_report"
	// KindDraftDocument is the sectioned draft produced by the Generate stage.
	KindDraftDocument ArtifactKind = "draft_document"
	// KindRenderedOutput is a rendered byte payload produced by a Format sub-stage.
	KindRenderedOutput ArtifactKind = "rendered_output"
)

// Valid returns true if the kind is a known value.
func (k ArtifactKind) Valid() bool {
	switch k {
	case KindAnalysisReport, KindDraftDocument, KindRenderedOutput:
		return true
	default:
		return false
	}
}

// OutputFormat identifies a rendition format for the final document package.
type OutputFormat string

const (
	// FormatMarkdown renders the draft as plain Markdown.
	FormatMarkdown OutputFormat = "markdown"
	// FormatHTML renders the draft as a standalone HTML page.
	FormatHTML OutputFormat = "html"
	// FormatPDF renders the draft as a PDF. Requires an external engine.
	FormatPDF OutputFormat = "pdf"
	// FormatDOCX renders the draft as a DOCX. Requires an external engine.
	FormatDOCX OutputFormat = "docx"
)

// Valid returns true if the format is a known value.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatPDF, FormatDOCX:
		return true
	default:
		return false
	}
}

// Extension returns the file extension for the format, without the dot.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// Artifact is an immutable, versioned stage output.
// A stage that needs to revise its output writes a new artifact with a higher
// attempt number; existing artifacts are never mutated.
type Artifact struct {
	// ID is the unique identifier for this artifact.
	ID string `json:"id"`
	// Kind identifies the payload schema.
	Kind ArtifactKind `json:"kind"`
	// Format is the rendition format. Only set for KindRenderedOutput.
	Format OutputFormat `json:"format,omitempty"`
	// Payload is the artifact body. Structured kinds carry canonical JSON so
	// managed and fallback workers stay byte-compatible; rendered outputs
	// carry raw bytes.
	Payload []byte `json:"payload"`
	// StageID is the ID of the stage that produced this artifact.
	StageID string `json:"stage_id"`
	// Attempt is the 1-indexed execution attempt that produced this artifact.
	Attempt int `json:"attempt"`
	// StorageRef is an optional object-storage reference for the payload,
	// set when the rendering collaborator uploaded the bytes externally.
	StorageRef string `json:"storage_ref,omitempty"`
	// CreatedAt is when the artifact was written.
	CreatedAt time.Time `json:"created_at"`
}
