package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.Runtime.Enabled {
		t.Error("expected runtime.enabled to be true")
	}

	if cfg.Runtime.MaxTokens != 8192 {
		t.Errorf("expected default max_tokens 8192, got %d", cfg.Runtime.MaxTokens)
	}

	if cfg.Output.Dir != "docs" {
		t.Errorf("expected default output dir 'docs', got %q", cfg.Output.Dir)
	}

	if len(cfg.Output.Formats) != 1 || cfg.Output.Formats[0] != "markdown" {
		t.Errorf("expected default formats [markdown], got %v", cfg.Output.Formats)
	}

	if cfg.Pipeline.MaxRenderWorkers != 4 {
		t.Errorf("expected default max_render_workers 4, got %d", cfg.Pipeline.MaxRenderWorkers)
	}

	if cfg.Pipeline.MaxRetries != 2 {
		t.Errorf("expected default max_retries 2, got %d", cfg.Pipeline.MaxRetries)
	}

	if cfg.Pipeline.RetryBackoff != 500*time.Millisecond {
		t.Errorf("expected default retry backoff 500ms, got %v", cfg.Pipeline.RetryBackoff)
	}

	if cfg.Storage.Enabled {
		t.Error("expected storage.enabled to be false by default")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
runtime:
  enabled: true
  api_key: test-key
  model: claude-sonnet-4-20250514
  max_tokens: 4096
output:
  dir: build/docs
  formats:
    - markdown
    - pdf
pipeline:
  max_render_workers: 2
  max_retries: 3
  retry_backoff: 250ms
  stage_timeout: 2m
storage:
  enabled: true
  bucket: my-docs
  region: us-west-2
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Runtime.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Runtime.APIKey)
	}

	if cfg.Runtime.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected model 'claude-sonnet-4-20250514', got %q", cfg.Runtime.Model)
	}

	if cfg.Output.Dir != "build/docs" {
		t.Errorf("expected output dir 'build/docs', got %q", cfg.Output.Dir)
	}

	if len(cfg.Output.Formats) != 2 {
		t.Errorf("expected 2 formats, got %v", cfg.Output.Formats)
	}

	if cfg.Pipeline.MaxRenderWorkers != 2 {
		t.Errorf("expected max_render_workers 2, got %d", cfg.Pipeline.MaxRenderWorkers)
	}

	if cfg.Pipeline.RetryBackoff != 250*time.Millisecond {
		t.Errorf("expected retry backoff 250ms, got %v", cfg.Pipeline.RetryBackoff)
	}

	if !cfg.Storage.Enabled {
		t.Error("expected storage.enabled to be true")
	}

	if cfg.Storage.Bucket != "my-docs" {
		t.Errorf("expected bucket 'my-docs', got %q", cfg.Storage.Bucket)
	}
}

func TestLoadFromPath_APIKeyExpansion(t *testing.T) {
	t.Setenv("DOCSMITH_TEST_KEY", "sk-ant-expanded")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := "runtime:\n  api_key: ${DOCSMITH_TEST_KEY}\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Runtime.APIKey != "sk-ant-expanded" {
		t.Errorf("expected expanded api_key, got %q", cfg.Runtime.APIKey)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/docsmith"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
