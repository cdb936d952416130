package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsmith/docsmith/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify docsmith configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/docsmith/config.yaml
Project-specific overrides can be placed in .docsmith.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("runtime.enabled: %t\n", cfg.Runtime.Enabled)
	fmt.Printf("runtime.api_key: %s\n", config.MaskAPIKey(cfg.Runtime.APIKey))
	fmt.Printf("runtime.model: %s\n", orNotSet(cfg.Runtime.Model))
	fmt.Printf("runtime.max_tokens: %d\n", cfg.Runtime.MaxTokens)
	fmt.Printf("output.dir: %s\n", cfg.Output.Dir)
	fmt.Printf("output.formats: %s\n", strings.Join(cfg.Output.Formats, ", "))
	fmt.Printf("pipeline.max_render_workers: %d\n", cfg.Pipeline.MaxRenderWorkers)
	fmt.Printf("pipeline.max_retries: %d\n", cfg.Pipeline.MaxRetries)
	fmt.Printf("pipeline.retry_backoff: %s\n", cfg.Pipeline.RetryBackoff)
	fmt.Printf("pipeline.stage_timeout: %s\n", cfg.Pipeline.StageTimeout)
	fmt.Printf("storage.enabled: %t\n", cfg.Storage.Enabled)
	fmt.Printf("storage.bucket: %s\n", orNotSet(cfg.Storage.Bucket))
	fmt.Printf("storage.region: %s\n", orNotSet(cfg.Storage.Region))
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "runtime.enabled":
		return strconv.FormatBool(cfg.Runtime.Enabled), nil
	case "runtime.api_key":
		return config.MaskAPIKey(cfg.Runtime.APIKey), nil
	case "runtime.model":
		return orNotSet(cfg.Runtime.Model), nil
	case "runtime.max_tokens":
		return strconv.Itoa(cfg.Runtime.MaxTokens), nil
	case "output.dir":
		return cfg.Output.Dir, nil
	case "output.formats":
		return strings.Join(cfg.Output.Formats, ","), nil
	case "pipeline.max_render_workers":
		return strconv.Itoa(cfg.Pipeline.MaxRenderWorkers), nil
	case "pipeline.max_retries":
		return strconv.Itoa(cfg.Pipeline.MaxRetries), nil
	case "pipeline.retry_backoff":
		return cfg.Pipeline.RetryBackoff.String(), nil
	case "pipeline.stage_timeout":
		return cfg.Pipeline.StageTimeout.String(), nil
	case "storage.enabled":
		return strconv.FormatBool(cfg.Storage.Enabled), nil
	case "storage.bucket":
		return orNotSet(cfg.Storage.Bucket), nil
	case "storage.region":
		return orNotSet(cfg.Storage.Region), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "runtime.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for runtime.enabled: %w", err)
		}
		cfg.Runtime.Enabled = b
	case "runtime.api_key":
		cfg.Runtime.APIKey = value
	case "runtime.model":
		cfg.Runtime.Model = value
	case "runtime.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Runtime.MaxTokens = n
	case "output.dir":
		cfg.Output.Dir = value
	case "output.formats":
		cfg.Output.Formats = strings.Split(value, ",")
	case "pipeline.max_render_workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_render_workers: %w", err)
		}
		cfg.Pipeline.MaxRenderWorkers = n
	case "pipeline.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Pipeline.MaxRetries = n
	case "pipeline.retry_backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry_backoff: %w", err)
		}
		cfg.Pipeline.RetryBackoff = d
	case "pipeline.stage_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for stage_timeout: %w", err)
		}
		cfg.Pipeline.StageTimeout = d
	case "storage.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for storage.enabled: %w", err)
		}
		cfg.Storage.Enabled = b
	case "storage.bucket":
		cfg.Storage.Bucket = value
	case "storage.region":
		cfg.Storage.Region = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
