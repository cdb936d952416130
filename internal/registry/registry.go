// Package registry manages resolved agent descriptors.
// Resolution is memoized: an agent is created (or looked up) once per
// registry lifetime and reused afterwards. The registry is explicit state
// owned by its caller, never a process-wide singleton, so tests can build
// isolated instances freely.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docsmith/docsmith/pkg/models"
)

// Resolver creates or looks up agent identities in the backing runtime.
type Resolver interface {
	// ResolveAgent returns a descriptor for the role.
	ResolveAgent(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error)
	// DeleteAgent tears down the identity behind a descriptor.
	DeleteAgent(ctx context.Context, agentID string) error
}

// Registry provides thread-safe resolve-once storage of agent descriptors.
type Registry struct {
	// resolver is the backing runtime resolver.
	resolver Resolver
	// byRole maps roles to their resolved descriptor.
	byRole map[models.WorkerRole]*models.AgentDescriptor
	// byID maps descriptor IDs back to roles for teardown.
	byID map[string]models.WorkerRole
	// mu protects all fields.
	mu sync.Mutex
}

// New creates a Registry backed by the given resolver.
func New(resolver Resolver) *Registry {
	return &Registry{
		resolver: resolver,
		byRole:   make(map[models.WorkerRole]*models.AgentDescriptor),
		byID:     make(map[string]models.WorkerRole),
	}
}

// Resolve returns the descriptor for a role, resolving it on first use and
// reusing the stored descriptor afterwards. Descriptors are never mutated
// after resolution.
func (r *Registry) Resolve(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown worker role %q", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if desc, ok := r.byRole[role]; ok {
		return desc, nil
	}

	desc, err := r.resolver.ResolveAgent(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("resolve %s agent: %w", role, err)
	}
	r.byRole[role] = desc
	r.byID[desc.ID] = role
	return desc, nil
}

// List returns all resolved descriptors, ordered by role for stable output.
func (r *Registry) List() []*models.AgentDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.AgentDescriptor, 0, len(r.byRole))
	for _, desc := range r.byRole {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// Teardown deletes the agent behind the descriptor ID and forgets it.
// A subsequent Resolve for the same role creates a fresh identity.
func (r *Registry) Teardown(ctx context.Context, agentID string) error {
	r.mu.Lock()
	role, ok := r.byID[agentID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no resolved agent with id %q", agentID)
	}

	if err := r.resolver.DeleteAgent(ctx, agentID); err != nil {
		return fmt.Errorf("delete agent %s: %w", agentID, err)
	}

	r.mu.Lock()
	delete(r.byID, agentID)
	delete(r.byRole, role)
	r.mu.Unlock()
	return nil
}

// Count returns the number of resolved descriptors.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRole)
}
