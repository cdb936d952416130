// Package analysis provides the code-analysis collaborator: it turns a
// codebase locator into a structured analysis report.
package analysis

import "encoding/json"

// Endpoint is a detected API endpoint.
type Endpoint struct {
	// Method is the HTTP method, if detectable.
	Method string `json:"method,omitempty"`
	// Path is the route path or the raw route declaration.
	Path string `json:"path"`
	// File is the file the endpoint was found in, relative to the source root.
	File string `json:"file"`
}

// Finding is a single security-relevant observation.
type Finding struct {
	// Severity is one of "high", "medium", "low".
	Severity string `json:"severity"`
	// Description explains the finding.
	Description string `json:"description"`
	// File is the file the finding was detected in.
	File string `json:"file"`
}

// Report is the structured output of the Analyze stage.
type Report struct {
	// Source is the codebase locator the report was produced from.
	Source string `json:"source"`
	// Architecture is a one-line architecture summary.
	Architecture string `json:"architecture"`
	// Language is the dominant detected language or framework.
	Language string `json:"language"`
	// Files lists analyzed source files, relative to the source root.
	Files []string `json:"files"`
	// Endpoints is the detected API endpoint inventory.
	Endpoints []Endpoint `json:"endpoints,omitempty"`
	// AuthMethods lists detected authentication mechanisms.
	AuthMethods []string `json:"auth_methods,omitempty"`
	// Databases lists detected database technologies.
	Databases []string `json:"databases,omitempty"`
	// SecurityFindings lists security-relevant observations.
	SecurityFindings []Finding `json:"security_findings,omitempty"`
}

// Marshal encodes the report as canonical JSON for artifact storage.
func (r *Report) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReport decodes an analysis report artifact payload.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
