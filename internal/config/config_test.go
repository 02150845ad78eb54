package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"presswork/internal/config"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, resolved %s", resolved)
	}
	if cfg.Pipeline.MaxRewriteLoops != 3 {
		t.Fatalf("expected default max_rewrite_loops=3, got %d", cfg.Pipeline.MaxRewriteLoops)
	}
	if cfg.Compliance.DisclosureTag != "#ad" {
		t.Fatalf("expected default disclosure tag, got %q", cfg.Compliance.DisclosureTag)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[pipeline]
max_rewrite_loops = 5
max_concurrent_stages = 2

[compliance]
auto_block_threshold = 80
disclosure_tag = "#sponsored"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Pipeline.MaxRewriteLoops != 5 {
		t.Fatalf("override not applied: %d", cfg.Pipeline.MaxRewriteLoops)
	}
	if cfg.Compliance.AutoBlockThreshold != 80 {
		t.Fatalf("override not applied: %d", cfg.Compliance.AutoBlockThreshold)
	}
	if cfg.Compliance.DisclosureTag != "#sponsored" {
		t.Fatalf("override not applied: %q", cfg.Compliance.DisclosureTag)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Compliance.HumanReviewThreshold = 90
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when human review threshold exceeds auto block threshold")
	}

	cfg = config.Default()
	cfg.Pipeline.MaxRewriteLoops = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero rewrite loops")
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error on second CreateSample")
	}
}
