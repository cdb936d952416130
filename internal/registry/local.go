package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/docsmith/docsmith/pkg/models"
)

// localNames mirrors the remote agent naming for fallback descriptors.
var localNames = map[models.WorkerRole]string{
	models.RoleAnalyzer:  "CodeAnalyzerAgent",
	models.RoleGenerator: "DocGeneratorAgent",
	models.RoleFormatter: "FormatterAgent",
}

// LocalResolver issues descriptors for fallback-mode workers. There is no
// remote identity behind them; the descriptor exists so the registry listing
// and teardown operations work identically in both modes.
type LocalResolver struct{}

// ResolveAgent implements Resolver.
func (LocalResolver) ResolveAgent(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error) {
	return &models.AgentDescriptor{
		ID:        "local-" + uuid.New().String()[:8],
		Role:      role,
		Name:      localNames[role],
		Mode:      models.ModeFallback,
		CreatedAt: time.Now(),
	}, nil
}

// DeleteAgent implements Resolver. Local descriptors hold no external state.
func (LocalResolver) DeleteAgent(ctx context.Context, agentID string) error {
	return nil
}
