package main

import (
	"strings"
	"sync"

	"presswork/internal/audit"
	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/runstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withRunStore(fn func(*config.Config, *runstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := runstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) withAuditLog(fn func(*config.Config, *audit.Log) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := audit.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, audit.NewLog(store, logging.NewNop()))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
