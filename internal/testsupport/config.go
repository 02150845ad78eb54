package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"presswork/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.RegistryPath = filepath.Join(base, "registry.yaml")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithMaxRewriteLoops overrides the rewrite loop bound.
func WithMaxRewriteLoops(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.MaxRewriteLoops = n
	}
}

// WithDisclosureTag overrides the disclosure tag QA looks for.
func WithDisclosureTag(tag string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Compliance.DisclosureTag = tag
	}
}

// WriteRegistry fills the config's rights registry file with the given YAML.
func WriteRegistry(t testing.TB, cfg *config.Config, body string) {
	t.Helper()
	if err := os.WriteFile(cfg.Paths.RegistryPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
}
