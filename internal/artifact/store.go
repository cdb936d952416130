// Package artifact provides the typed, versioned store for stage outputs.
// Writes are append-only and keyed by (stage id, attempt number), so
// concurrent fan-out sub-stage writes never collide.
package artifact

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docsmith/docsmith/pkg/models"
)

// Common errors for artifact store operations.
var (
	// ErrDuplicateWrite indicates a write for a (stage, attempt) key that
	// already holds an artifact. Artifacts are immutable once written.
	ErrDuplicateWrite = errors.New("artifact already written for stage attempt")
	// ErrNotFound indicates no artifact matched the query.
	ErrNotFound = errors.New("artifact not found")
)

// key identifies one artifact version in the store.
type key struct {
	stageID string
	attempt int
}

// Store holds immutable stage outputs for a single run.
// A later attempt for the same stage supersedes earlier ones for
// aggregation purposes, but earlier versions remain readable.
type Store struct {
	// artifacts maps (stage id, attempt) to the stored artifact.
	artifacts map[key]*models.Artifact
	// latest maps stage id to the highest attempt written so far.
	latest map[string]int
	// mu protects all fields.
	mu sync.RWMutex
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{
		artifacts: make(map[key]*models.Artifact),
		latest:    make(map[string]int),
	}
}

// Put writes an artifact. The artifact's StageID and Attempt form the write
// key; writing the same key twice fails with ErrDuplicateWrite.
// Put fills in ID and CreatedAt if unset.
func (s *Store) Put(a *models.Artifact) error {
	if a.StageID == "" {
		return fmt.Errorf("artifact missing stage id")
	}
	if a.Attempt < 1 {
		return fmt.Errorf("artifact attempt must be >= 1, got %d", a.Attempt)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown artifact kind %q", a.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{stageID: a.StageID, attempt: a.Attempt}
	if _, exists := s.artifacts[k]; exists {
		return fmt.Errorf("%w: stage %s attempt %d", ErrDuplicateWrite, a.StageID, a.Attempt)
	}

	if a.ID == "" {
		a.ID = uuid.New().String()[:8]
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	s.artifacts[k] = a
	if a.Attempt > s.latest[a.StageID] {
		s.latest[a.StageID] = a.Attempt
	}
	return nil
}

// Latest returns the highest-attempt artifact for the given stage.
// Returns ErrNotFound if the stage has produced nothing.
func (s *Store) Latest(stageID string) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.latest[stageID]
	if !ok {
		return nil, fmt.Errorf("%w: stage %s", ErrNotFound, stageID)
	}
	return s.artifacts[key{stageID: stageID, attempt: attempt}], nil
}

// LatestOfKind returns the superseding artifact of the given kind for every
// stage that produced one.
func (s *Store) LatestOfKind(kind models.ArtifactKind) []*models.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Artifact
	for stageID, attempt := range s.latest {
		a := s.artifacts[key{stageID: stageID, attempt: attempt}]
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// SupersedingOfKind returns the single superseding artifact of the given
// kind. When more than one stage produced that kind, the most recently
// written one wins. Returns ErrNotFound when no stage has produced one.
func (s *Store) SupersedingOfKind(kind models.ArtifactKind) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Artifact
	for stageID, attempt := range s.latest {
		a := s.artifacts[key{stageID: stageID, attempt: attempt}]
		if a.Kind != kind {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: kind %s", ErrNotFound, kind)
	}
	return found, nil
}

// Get returns the artifact for an exact (stage, attempt) key.
func (s *Store) Get(stageID string, attempt int) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[key{stageID: stageID, attempt: attempt}]
	if !ok {
		return nil, fmt.Errorf("%w: stage %s attempt %d", ErrNotFound, stageID, attempt)
	}
	return a, nil
}

// All returns a copy of every stored artifact, every version included.
func (s *Store) All() []*models.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		out = append(out, a)
	}
	return out
}

// Count returns the number of stored artifact versions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}
