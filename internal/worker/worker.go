package worker

import (
	"context"
	"fmt"

	"github.com/docsmith/docsmith/pkg/models"
)

// Worker executes one pipeline stage.
// Execute returns the produced artifact with kind, format and payload set;
// the orchestrator stamps stage ID and attempt number before storing it.
type Worker interface {
	// Role identifies the stage role this worker serves.
	Role() models.WorkerRole
	// Execute runs the stage against its inputs. The first stage reads the
	// request directly and receives no input artifacts.
	Execute(ctx context.Context, stage models.Stage, req *models.TaskRequest, inputs []*models.Artifact) (*models.Artifact, error)
}

// AgentResolver resolves the agent descriptor backing a role.
// Resolution is memoized per orchestrator lifetime by the registry.
type AgentResolver interface {
	Resolve(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error)
}

// Invoker routes a sub-task invocation to a resolved remote agent.
type Invoker interface {
	Invoke(ctx context.Context, desc *models.AgentDescriptor, prompt string) (string, error)
}

// Uploader optionally ships a rendered payload to external object storage
// and returns a reference. Formatter workers use it when configured.
type Uploader interface {
	Upload(ctx context.Context, name string, payload []byte) (string, error)
}

// validateInputs checks that the provided artifacts match the stage's
// declared input kinds, in order. This is a local precondition check that
// runs before any external call: a mismatch is deterministic and retrying
// it would only waste remote invocations.
func validateInputs(stage models.Stage, inputs []*models.Artifact) error {
	if len(inputs) != len(stage.Inputs) {
		return &WorkerError{
			Kind:  ErrSchemaMismatch,
			Stage: stage.ID,
			Cause: fmt.Errorf("stage declares %d inputs, got %d", len(stage.Inputs), len(inputs)),
		}
	}
	for i, want := range stage.Inputs {
		if inputs[i] == nil || inputs[i].Kind != want {
			got := models.ArtifactKind("<nil>")
			if inputs[i] != nil {
				got = inputs[i].Kind
			}
			return &WorkerError{
				Kind:  ErrSchemaMismatch,
				Stage: stage.ID,
				Cause: fmt.Errorf("input %d: want kind %q, got %q", i, want, got),
			}
		}
	}
	return nil
}
