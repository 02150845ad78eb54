package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeCompliance()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.RegistryPath, err = expandPath(c.Paths.RegistryPath); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxRewriteLoops <= 0 {
		c.Pipeline.MaxRewriteLoops = defaultMaxRewriteLoops
	}
	if c.Pipeline.MaxConcurrentStages <= 0 {
		c.Pipeline.MaxConcurrentStages = defaultMaxConcurrentStages
	}
	if c.Pipeline.QueuePollInterval <= 0 {
		c.Pipeline.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Pipeline.ErrorRetryInterval <= 0 {
		c.Pipeline.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeCompliance() {
	if c.Compliance.AutoBlockThreshold <= 0 {
		c.Compliance.AutoBlockThreshold = defaultAutoBlockThreshold
	}
	if c.Compliance.HumanReviewThreshold <= 0 {
		c.Compliance.HumanReviewThreshold = defaultHumanReviewThreshold
	}
	if strings.TrimSpace(c.Compliance.DisclosureTag) == "" {
		c.Compliance.DisclosureTag = defaultDisclosureTag
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
