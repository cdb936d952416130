// Package render provides the rendering collaborator: it turns a draft
// document into a byte payload for one output format.
//
// Markdown and HTML engines are built in. PDF and DOCX are accepted format
// tags, but rendering them requires an injected engine; without one the
// render fails so the orchestrator can report a partial-format failure
// instead of silently skipping the rendition.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/docsmith/docsmith/internal/docgen"
	"github.com/docsmith/docsmith/pkg/models"
)

// ErrNoEngine indicates no rendering engine is registered for the format.
var ErrNoEngine = errors.New("no rendering engine registered for format")

// Engine renders a draft into one specific format.
type Engine interface {
	// Render produces the byte payload for the draft.
	Render(ctx context.Context, draft *docgen.Draft) ([]byte, error)
}

// Renderer dispatches rendering to per-format engines.
type Renderer struct {
	// engines maps output formats to their engines.
	engines map[models.OutputFormat]Engine
	// mu protects engines.
	mu sync.RWMutex
}

// NewRenderer creates a Renderer with the built-in Markdown and HTML engines.
func NewRenderer() *Renderer {
	r := &Renderer{engines: make(map[models.OutputFormat]Engine)}
	r.RegisterEngine(models.FormatMarkdown, &MarkdownEngine{})
	r.RegisterEngine(models.FormatHTML, &HTMLEngine{})
	return r
}

// RegisterEngine installs an engine for a format, replacing any existing one.
// This is how external PDF/DOCX engines are plugged in.
func (r *Renderer) RegisterEngine(format models.OutputFormat, engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[format] = engine
}

// Supported returns true if an engine is registered for the format.
func (r *Renderer) Supported(format models.OutputFormat) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.engines[format]
	return ok
}

// Render produces the payload for the draft in the given format.
func (r *Renderer) Render(ctx context.Context, draft *docgen.Draft, format models.OutputFormat) ([]byte, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unknown output format %q", format)
	}

	r.mu.RLock()
	engine, ok := r.engines[format]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEngine, format)
	}
	return engine.Render(ctx, draft)
}
