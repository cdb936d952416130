// Package config handles configuration loading and management for docsmith.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for docsmith.
type Config struct {
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Output   OutputConfig   `mapstructure:"output"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// RuntimeConfig holds managed agent runtime settings.
type RuntimeConfig struct {
	// Enabled controls whether managed mode is considered at all.
	// When false the probe reports fallback without checking credentials.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string `mapstructure:"api_key"`
	// Model is the model deployment backing managed agents.
	Model string `mapstructure:"model"`
	// BaseURL overrides the API endpoint (for proxies and testing).
	BaseURL string `mapstructure:"base_url"`
	// MaxTokens caps the response size per agent invocation.
	MaxTokens int `mapstructure:"max_tokens"`
}

// OutputConfig holds document output settings.
type OutputConfig struct {
	// Dir is the directory rendered documents are written to.
	Dir string `mapstructure:"dir"`
	// Formats is the default format set when the command line gives none.
	Formats []string `mapstructure:"formats"`
}

// PipelineConfig holds execution settings for the documentation pipeline.
type PipelineConfig struct {
	// MaxRenderWorkers bounds the render fan-out concurrency.
	MaxRenderWorkers int `mapstructure:"max_render_workers"`
	// MaxRetries is the number of retries after the first attempt of a stage.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the base delay for exponential retry backoff.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// StageTimeout bounds a single stage attempt.
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
}

// StorageConfig holds object storage upload settings.
type StorageConfig struct {
	// Enabled controls whether rendered documents are uploaded.
	Enabled bool `mapstructure:"enabled"`
	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket"`
	// Prefix is an optional key prefix.
	Prefix string `mapstructure:"prefix"`
	// Region is the AWS region.
	Region string `mapstructure:"region"`
	// Profile is the optional shared-config profile.
	Profile string `mapstructure:"profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.docsmith.yaml in current directory or parent)
// 3. User config (~/.config/docsmith/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.BindEnv("runtime.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("runtime.model", "DOCSMITH_MODEL")
	v.BindEnv("storage.bucket", "DOCSMITH_BUCKET")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Runtime.APIKey = os.ExpandEnv(cfg.Runtime.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Runtime.APIKey = os.ExpandEnv(cfg.Runtime.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("runtime.enabled", cfg.Runtime.Enabled)
	v.Set("runtime.api_key", cfg.Runtime.APIKey)
	v.Set("runtime.model", cfg.Runtime.Model)
	v.Set("runtime.base_url", cfg.Runtime.BaseURL)
	v.Set("runtime.max_tokens", cfg.Runtime.MaxTokens)
	v.Set("output.dir", cfg.Output.Dir)
	v.Set("output.formats", cfg.Output.Formats)
	v.Set("pipeline.max_render_workers", cfg.Pipeline.MaxRenderWorkers)
	v.Set("pipeline.max_retries", cfg.Pipeline.MaxRetries)
	v.Set("pipeline.retry_backoff", cfg.Pipeline.RetryBackoff.String())
	v.Set("pipeline.stage_timeout", cfg.Pipeline.StageTimeout.String())
	v.Set("storage.enabled", cfg.Storage.Enabled)
	v.Set("storage.bucket", cfg.Storage.Bucket)
	v.Set("storage.prefix", cfg.Storage.Prefix)
	v.Set("storage.region", cfg.Storage.Region)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime.enabled", true)
	v.SetDefault("runtime.api_key", "")
	v.SetDefault("runtime.model", "")
	v.SetDefault("runtime.max_tokens", 8192)

	v.SetDefault("output.dir", "docs")
	v.SetDefault("output.formats", []string{"markdown"})

	v.SetDefault("pipeline.max_render_workers", 4)
	v.SetDefault("pipeline.max_retries", 2)
	v.SetDefault("pipeline.retry_backoff", "500ms")
	v.SetDefault("pipeline.stage_timeout", "5m")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "")
}

// getUserConfigDir returns the XDG config directory for docsmith.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "docsmith")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "docsmith")
	}
	return filepath.Join(home, ".config", "docsmith")
}

// findProjectConfig searches for .docsmith.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".docsmith.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Enabled:   true,
			MaxTokens: 8192,
		},
		Output: OutputConfig{
			Dir:     "docs",
			Formats: []string{"markdown"},
		},
		Pipeline: PipelineConfig{
			MaxRenderWorkers: 4,
			MaxRetries:       2,
			RetryBackoff:     500 * time.Millisecond,
			StageTimeout:     5 * time.Minute,
		},
	}
}
