package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docsmith/docsmith/internal/state"
)

var (
	statusLimit int
	statusYAML  bool
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recent documentation runs",
	Long: `Display recent documentation runs and their outcomes.

With a run ID argument, shows that run only. Otherwise lists the most recent
runs, newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatusCmd,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of runs to show")
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "Emit machine-readable YAML")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try project database first, then global.
	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Run 'docsmith generate' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if len(args) == 1 {
		rec, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		return displayRuns([]*state.RunRecord{rec})
	}

	records, err := db.RecentRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded. Run 'docsmith generate' to start.")
		return nil
	}
	return displayRuns(records)
}

// runReport is the YAML shape for one run.
type runReport struct {
	ID           string   `yaml:"id"`
	Source       string   `yaml:"source"`
	Formats      []string `yaml:"formats"`
	Mode         string   `yaml:"mode,omitempty"`
	State        string   `yaml:"state"`
	FailureKind  string   `yaml:"failure_kind,omitempty"`
	FailureStage string   `yaml:"failure_stage,omitempty"`
	CreatedAt    string   `yaml:"created_at"`
	Duration     string   `yaml:"duration,omitempty"`
}

func displayRuns(records []*state.RunRecord) error {
	if statusYAML {
		reports := make([]runReport, 0, len(records))
		for _, rec := range records {
			reports = append(reports, toReport(rec))
		}
		out, err := yaml.Marshal(reports)
		if err != nil {
			return fmt.Errorf("marshal runs: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Println("Recent Runs:")
	for _, rec := range records {
		formats := make([]string, 0, len(rec.Formats))
		for _, f := range rec.Formats {
			formats = append(formats, string(f))
		}
		line := fmt.Sprintf("  %s: %s [%s]", rec.ID, rec.State, strings.Join(formats, ", "))
		if rec.Mode != "" {
			line += fmt.Sprintf(" (%s)", rec.Mode)
		}
		if rec.FailureKind != "" {
			line += " - " + rec.FailureKind
			if rec.FailureStage != "" {
				line += " at " + rec.FailureStage
			}
		}
		line += fmt.Sprintf(" - %s ago", formatDuration(time.Since(rec.CreatedAt)))
		fmt.Println(line)
	}
	return nil
}

func toReport(rec *state.RunRecord) runReport {
	formats := make([]string, 0, len(rec.Formats))
	for _, f := range rec.Formats {
		formats = append(formats, string(f))
	}
	r := runReport{
		ID:           rec.ID,
		Source:       rec.Source,
		Formats:      formats,
		Mode:         string(rec.Mode),
		State:        string(rec.State),
		FailureKind:  rec.FailureKind,
		FailureStage: rec.FailureStage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.FinishedAt != nil {
		r.Duration = rec.FinishedAt.Sub(rec.CreatedAt).Round(time.Millisecond).String()
	}
	return r
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
