package models

// WorkerRole identifies the specialized worker a stage is assigned to.
type WorkerRole string

const (
	// RoleAnalyzer analyzes a codebase into an AnalysisReport.
	RoleAnalyzer WorkerRole = "analyzer"
	// RoleGenerator turns an AnalysisReport into a DraftDocument.
	RoleGenerator WorkerRole = "generator"
	// RoleFormatter renders a DraftDocument into one output format.
	RoleFormatter WorkerRole = "formatter"
)

// Valid returns true if the role is a known value.
func (r WorkerRole) Valid() bool {
	switch r {
	case RoleAnalyzer, RoleGenerator, RoleFormatter:
		return true
	default:
		return false
	}
}

// Stage is one step of the pipeline with declared input and output artifact
// kinds. A stage cannot start until all its declared inputs exist.
type Stage struct {
	// ID is the unique identifier for this stage within a run.
	ID string `json:"id"`
	// Name is the human-readable stage name.
	Name string `json:"name"`
	// Role is the worker role assigned to this stage.
	Role WorkerRole `json:"role"`
	// Inputs lists the artifact kinds this stage consumes. Empty for the
	// first stage, which reads the task request directly.
	Inputs []ArtifactKind `json:"inputs,omitempty"`
	// Output is the artifact kind this stage produces.
	Output ArtifactKind `json:"output"`
	// Format is the target rendition format. Only set for Format fan-out
	// sub-stages.
	Format OutputFormat `json:"format,omitempty"`
}

// FanOut returns true if this stage is a Format fan-out sub-stage.
// Fan-out sub-stages are independent of each other: one failing does not
// abort its siblings.
func (s Stage) FanOut() bool {
	return s.Role == RoleFormatter
}
