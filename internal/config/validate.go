package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCompliance(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxRewriteLoops < 1 || c.Pipeline.MaxRewriteLoops > 10 {
		return fmt.Errorf("pipeline.max_rewrite_loops must be between 1 and 10, got %d", c.Pipeline.MaxRewriteLoops)
	}
	if c.Pipeline.MaxConcurrentStages < 1 || c.Pipeline.MaxConcurrentStages > 64 {
		return fmt.Errorf("pipeline.max_concurrent_stages must be between 1 and 64, got %d", c.Pipeline.MaxConcurrentStages)
	}
	return nil
}

func (c *Config) validateCompliance() error {
	if c.Compliance.AutoBlockThreshold < 1 || c.Compliance.AutoBlockThreshold > 100 {
		return fmt.Errorf("compliance.auto_block_threshold must be between 1 and 100, got %d", c.Compliance.AutoBlockThreshold)
	}
	if c.Compliance.HumanReviewThreshold < 0 || c.Compliance.HumanReviewThreshold >= c.Compliance.AutoBlockThreshold {
		return fmt.Errorf("compliance.human_review_threshold must be below auto_block_threshold, got %d", c.Compliance.HumanReviewThreshold)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
