package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/docsmith/docsmith/internal/config"
	"github.com/docsmith/docsmith/internal/orchestrator"
	"github.com/docsmith/docsmith/internal/probe"
	"github.com/docsmith/docsmith/internal/registry"
	"github.com/docsmith/docsmith/internal/runtime"
	"github.com/docsmith/docsmith/internal/state"
	"github.com/docsmith/docsmith/internal/storage"
	"github.com/docsmith/docsmith/internal/watch"
	"github.com/docsmith/docsmith/internal/worker"
	"github.com/docsmith/docsmith/pkg/models"
)

var (
	generateFormats     []string
	generateOutputDir   string
	generateProjectName string
	generateWatch       bool
	generateDebounce    time.Duration
	generateVerbose     bool
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

var generateCmd = &cobra.Command{
	Use:   "generate [source]",
	Short: "Generate a documentation package from a codebase",
	Long: `Analyze a codebase and generate its documentation package.

The source argument is a directory or a .zip archive and defaults to the
current directory. Output formats come from --format or the configured
defaults.

Examples:
  docsmith generate                        # Document the current directory
  docsmith generate ./api --format pdf     # One format
  docsmith generate --format md,html,pdf   # Fan out over several formats
  docsmith generate --watch                # Regenerate on file changes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVarP(&generateFormats, "format", "f", nil, "Output formats (markdown, html, pdf, docx)")
	generateCmd.Flags().StringVarP(&generateOutputDir, "output", "o", "", "Output directory (default from config)")
	generateCmd.Flags().StringVar(&generateProjectName, "project-name", "", "Project name used in document titles")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "Regenerate when source files change")
	generateCmd.Flags().DurationVar(&generateDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a watched regeneration")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print per-stage progress")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	source := "."
	if len(args) > 0 {
		source = args[0]
	}
	absSource, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	req, err := buildRequest(cfg, absSource)
	if err != nil {
		return err
	}

	outputDir := generateOutputDir
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}

	o, db, err := buildOrchestrator(cfg, absSource)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !generateWatch {
		return runOnce(ctx, o, req, outputDir)
	}

	// Watch mode: run once, then regenerate on each settled change burst.
	if err := runOnce(ctx, o, req, outputDir); err != nil {
		color.Yellow("initial run failed: %v", err)
	}
	watcher, err := watch.New(absSource, generateDebounce)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	fmt.Printf("Watching %s for changes (Ctrl-C to stop)...\n", absSource)
	err = watcher.Run(ctx, func(ctx context.Context) error {
		if err := runOnce(ctx, o, req, outputDir); err != nil {
			color.Yellow("regeneration failed: %v", err)
		}
		return nil
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// buildRequest assembles the task request from flags and config defaults.
func buildRequest(cfg *config.Config, source string) (*models.TaskRequest, error) {
	names := generateFormats
	if len(names) == 0 {
		names = cfg.Output.Formats
	}
	if len(names) == 0 {
		names = []string{"markdown"}
	}

	formats := make([]models.OutputFormat, 0, len(names))
	for _, name := range names {
		f := normalizeFormat(name)
		if !f.Valid() {
			return nil, fmt.Errorf("unsupported output format %q (choose from markdown, html, pdf, docx)", name)
		}
		formats = append(formats, f)
	}

	projectName := generateProjectName
	if projectName == "" {
		projectName = filepath.Base(source)
	}

	return &models.TaskRequest{
		Source:  source,
		Formats: formats,
		Options: map[string]string{"project_name": projectName},
	}, nil
}

// normalizeFormat accepts common aliases for output format names.
func normalizeFormat(name string) models.OutputFormat {
	switch name {
	case "md", "markdown":
		return models.FormatMarkdown
	case "html":
		return models.FormatHTML
	case "pdf":
		return models.FormatPDF
	case "docx", "word":
		return models.FormatDOCX
	default:
		return models.OutputFormat(name)
	}
}

// buildOrchestrator wires the pipeline from configuration.
func buildOrchestrator(cfg *config.Config, projectRoot string) (*orchestrator.Orchestrator, *state.DB, error) {
	db, err := state.Open(state.ProjectDBPath(projectRoot))
	if err != nil {
		color.Yellow("run history disabled: %v", err)
		db = nil
	}

	logger := orchestrator.NewDebugLoggerForProject(projectRoot)

	prb := probe.New(probe.Config{
		Enabled: cfg.Runtime.Enabled,
		APIKey:  cfg.Runtime.APIKey,
		Model:   cfg.Runtime.Model,
	})

	workers := func(mode models.ExecutionMode) (*worker.Set, error) {
		deps := worker.Deps{}

		if cfg.Storage.Enabled {
			uploader, err := storage.NewS3Uploader(context.Background(), storage.S3Config{
				Bucket:  cfg.Storage.Bucket,
				Prefix:  cfg.Storage.Prefix,
				Region:  cfg.Storage.Region,
				Profile: cfg.Storage.Profile,
			})
			if err != nil {
				color.Yellow("object storage disabled: %v", err)
			} else {
				deps.Uploader = uploader
			}
		}

		if mode == models.ModeManaged {
			client, err := runtime.NewClient(runtime.Config{
				APIKey:    cfg.Runtime.APIKey,
				Model:     cfg.Runtime.Model,
				BaseURL:   cfg.Runtime.BaseURL,
				MaxTokens: int64(cfg.Runtime.MaxTokens),
			})
			if err != nil {
				return nil, err
			}
			deps.Resolver = registry.New(client)
			deps.Invoker = client
		}

		return worker.NewSet(mode, deps)
	}

	opts := []orchestrator.Option{
		orchestrator.WithMaxRenderWorkers(cfg.Pipeline.MaxRenderWorkers),
		orchestrator.WithRetryPolicy(orchestrator.RetryPolicy{
			MaxRetries: cfg.Pipeline.MaxRetries,
			Backoff:    cfg.Pipeline.RetryBackoff,
		}),
	}
	if generateVerbose {
		opts = append(opts, orchestrator.WithEventSink(printEvent))
	}

	o := orchestrator.New(orchestrator.Deps{
		Probe:   prb.Detect,
		Workers: workers,
		DB:      db,
		Logger:  logger,
	}, opts...)

	return o, db, nil
}

// runOnce submits one run and writes the resulting documents to disk.
func runOnce(ctx context.Context, o *orchestrator.Orchestrator, req *models.TaskRequest, outputDir string) error {
	fmt.Println(headerStyle.Render("Generating documentation for " + req.Option("project_name", "project")))

	pkg, err := o.Submit(ctx, req)
	if pkg == nil {
		return err
	}

	// A partial package still gets written; the failures are reported after.
	if writeErr := writeOutputs(pkg, req, outputDir); writeErr != nil {
		return writeErr
	}

	if err != nil {
		if re, ok := orchestrator.AsRunError(err); ok && re.Kind == orchestrator.KindPartialFormatFailure {
			for _, f := range re.FailedFormats {
				color.Yellow("  ✗ %s rendering failed", f)
			}
			return fmt.Errorf("%d of %d formats failed", len(re.FailedFormats), len(re.FailedFormats)+len(pkg.Outputs))
		}
		return err
	}

	color.Green("Run %s complete: %d documents in %s", pkg.RunID, len(pkg.Outputs), outputDir)
	return nil
}

// writeOutputs writes every rendered document in the package to the output
// directory.
func writeOutputs(pkg *models.DocumentPackage, req *models.TaskRequest, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	name := req.Option("project_name", "documentation")
	for _, format := range pkg.Formats() {
		a := pkg.Outputs[format]
		path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", name, format.Extension()))
		if err := os.WriteFile(path, a.Payload, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		line := fmt.Sprintf("  ✓ %s", path)
		if a.StorageRef != "" {
			line += " (uploaded to " + a.StorageRef + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// printEvent renders pipeline progress for --verbose.
func printEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventProbeCompleted:
		fmt.Printf("  mode: %s (%s)\n", e.Mode, e.Message)
	case orchestrator.EventStageStarted:
		fmt.Printf("  stage %s: attempt %d\n", e.StageID, e.Attempt)
	case orchestrator.EventStageRetrying:
		color.Yellow("  stage %s: retrying after %v", e.StageID, e.Err)
	case orchestrator.EventStageFailed:
		color.Red("  stage %s: failed: %v", e.StageID, e.Err)
	case orchestrator.EventStageCompleted:
		fmt.Printf("  stage %s: done\n", e.StageID)
	}
}
