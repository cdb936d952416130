package models

// TaskRequest describes a single documentation-generation request.
// A request is immutable once submitted.
type TaskRequest struct {
	// Source locates the codebase to document: a directory or a zip archive.
	Source string `json:"source"`
	// Formats is the set of requested output formats. Duplicates are
	// tolerated and deduplicated at graph-build time.
	Formats []OutputFormat `json:"formats"`
	// Options carries free-form request options. Workers read only the keys
	// they know (e.g. "project_name").
	Options map[string]string `json:"options,omitempty"`
}

// Option returns the named option, or the fallback if unset.
func (r *TaskRequest) Option(key, fallback string) string {
	if v, ok := r.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}
