// Package docgen provides the document-generation collaborator: it turns an
// analysis report into a sectioned draft document.
package docgen

import "encoding/json"

// DocType identifies one document of the draft package.
type DocType string

const (
	// DocBRD is the Business Requirements Document.
	DocBRD DocType = "brd"
	// DocFRD is the Functional Requirements Document.
	DocFRD DocType = "frd"
	// DocNFRD is the Non-Functional Requirements Document.
	DocNFRD DocType = "nfrd"
	// DocSecurity is the Security & Compliance document.
	DocSecurity DocType = "security"
	// DocArchitecture is the Architecture Overview.
	DocArchitecture DocType = "architecture"
)

// AllDocTypes lists every document type in package order.
var AllDocTypes = []DocType{DocBRD, DocFRD, DocNFRD, DocSecurity, DocArchitecture}

// Valid returns true if the document type is a known value.
func (d DocType) Valid() bool {
	switch d {
	case DocBRD, DocFRD, DocNFRD, DocSecurity, DocArchitecture:
		return true
	default:
		return false
	}
}

// Section is one document of the draft, as Markdown text.
type Section struct {
	// Type identifies the document this section represents.
	Type DocType `json:"type"`
	// Title is the section heading.
	Title string `json:"title"`
	// Body is the Markdown body.
	Body string `json:"body"`
}

// Draft is the structured text output of the Generate stage,
// sectioned by document type.
type Draft struct {
	// Title is the overall package title.
	Title string `json:"title"`
	// Sections holds the documents in package order.
	Sections []Section `json:"sections"`
}

// Section returns the section of the given type, or nil if absent.
func (d *Draft) Section(t DocType) *Section {
	for i := range d.Sections {
		if d.Sections[i].Type == t {
			return &d.Sections[i]
		}
	}
	return nil
}

// Marshal encodes the draft as canonical JSON for artifact storage.
func (d *Draft) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDraft decodes a draft document artifact payload.
func UnmarshalDraft(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
