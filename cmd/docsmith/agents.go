package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/docsmith/docsmith/internal/config"
	"github.com/docsmith/docsmith/internal/probe"
	"github.com/docsmith/docsmith/internal/registry"
	"github.com/docsmith/docsmith/internal/runtime"
	"github.com/docsmith/docsmith/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect and manage agent identities",
	Long: `Inspect the agent identities backing the documentation pipeline.

In managed mode these are remote agents registered with the runtime; in
fallback mode they are local descriptors. Both modes expose the same listing
and teardown operations.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the agent identities for each pipeline role",
	RunE:  runAgentsList,
}

var agentsTeardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Tear down all agent identities",
	RunE:  runAgentsTeardown,
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsTeardownCmd)
}

var agentRoles = []models.WorkerRole{models.RoleAnalyzer, models.RoleGenerator, models.RoleFormatter}

func contextForCmd() context.Context {
	return context.Background()
}

// buildRegistry wires the agent registry for the probed execution mode.
func buildRegistry() (*registry.Registry, models.ExecutionMode, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	result := probe.New(probe.Config{
		Enabled: cfg.Runtime.Enabled,
		APIKey:  cfg.Runtime.APIKey,
		Model:   cfg.Runtime.Model,
	}).Detect(contextForCmd())

	if result.Mode == models.ModeManaged {
		client, err := runtime.NewClient(runtime.Config{
			APIKey:    cfg.Runtime.APIKey,
			Model:     cfg.Runtime.Model,
			BaseURL:   cfg.Runtime.BaseURL,
			MaxTokens: int64(cfg.Runtime.MaxTokens),
		})
		if err != nil {
			return nil, "", fmt.Errorf("runtime client: %w", err)
		}
		return registry.New(client), result.Mode, nil
	}
	return registry.New(registry.LocalResolver{}), result.Mode, nil
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	reg, mode, err := buildRegistry()
	if err != nil {
		return err
	}

	ctx := contextForCmd()
	for _, role := range agentRoles {
		if _, err := reg.Resolve(ctx, role); err != nil {
			return fmt.Errorf("resolve %s agent: %w", role, err)
		}
	}

	title := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Agent identities (%s mode)", mode))
	fmt.Println(title)
	for _, desc := range reg.List() {
		fmt.Printf("  %-14s %-10s %-20s %s\n", desc.ID, desc.Role, desc.Name, strings.Join(desc.Capabilities, ", "))
	}
	return nil
}

func runAgentsTeardown(cmd *cobra.Command, args []string) error {
	reg, mode, err := buildRegistry()
	if err != nil {
		return err
	}

	ctx := contextForCmd()
	for _, role := range agentRoles {
		if _, err := reg.Resolve(ctx, role); err != nil {
			return fmt.Errorf("resolve %s agent: %w", role, err)
		}
	}

	descriptors := reg.List()
	for _, desc := range descriptors {
		if err := reg.Teardown(ctx, desc.ID); err != nil {
			return fmt.Errorf("tear down %s: %w", desc.ID, err)
		}
		fmt.Printf("  removed %s (%s)\n", desc.ID, desc.Role)
	}
	fmt.Printf("Tore down %d agent identities (%s mode)\n", len(descriptors), mode)
	return nil
}
