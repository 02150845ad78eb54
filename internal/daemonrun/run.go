// Package daemonrun wires the daemon process: logger, stores, compliance
// gate, pipeline, and signal handling. Both the standalone daemon binary and
// the CLI's foreground mode funnel through Run so the wiring exists once.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"presswork/internal/audit"
	"presswork/internal/compliance"
	"presswork/internal/config"
	"presswork/internal/daemon"
	"presswork/internal/logging"
	"presswork/internal/notifications"
	"presswork/internal/pipeline"
	"presswork/internal/publish"
	"presswork/internal/registry"
	"presswork/internal/runstore"
	"presswork/internal/supervisor"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the presswork daemon runtime loop and blocks until the context
// is cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "presswork.log")},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := runstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	auditStore, err := audit.Open(cfg)
	if err != nil {
		return fmt.Errorf("open audit ledger: %w", err)
	}
	defer auditStore.Close()
	auditLog := audit.NewLog(auditStore, logger)

	reg, err := registry.Load(cfg.Paths.RegistryPath)
	if err != nil {
		return fmt.Errorf("load rights registry: %w", err)
	}

	sup := supervisor.New(logger)
	gate := compliance.NewGate(cfg, reg, store, auditLog, logger)
	notifier := notifications.NewService(cfg, logger)
	pl := pipeline.New(cfg, store, gate, auditLog, sup, publish.NewService(store, logger), notifier, logger)

	d, err := daemon.New(cfg, store, pl, sup, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	d.Stop()
	return nil
}
