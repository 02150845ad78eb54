package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/notifications"
	"presswork/internal/pipeline"
	"presswork/internal/runstore"
	"presswork/internal/services"
	"presswork/internal/supervisor"
)

// Daemon claims pending runs and drives them through the pipeline. A flock
// on the data directory enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *runstore.Store
	pipeline *pipeline.Pipeline
	sup      *supervisor.Supervisor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Queue        runstore.HealthSummary
	Agents       map[string]supervisor.Health
	RunsDBPath   string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *runstore.Store, pl *pipeline.Pipeline, sup *supervisor.Supervisor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pl == nil || sup == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, pipeline, supervisor, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "pressworkd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pipeline: pl,
		sup:      sup,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the poll loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another presswork daemon instance is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go d.pollLoop(loopCtx)

	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("poll_interval_seconds", d.cfg.Pipeline.QueuePollInterval),
	)
	return nil
}

// Stop halts the poll loop and releases the daemon lock. A run in flight
// finishes its current stage before the loop observes cancellation.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	<-d.done
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) pollLoop(ctx context.Context) {
	defer close(d.done)

	poll := time.Duration(d.cfg.Pipeline.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	retry := time.Duration(d.cfg.Pipeline.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = poll
	}

	for {
		wait := poll
		worked, err := d.processNext(ctx)
		switch {
		case err != nil && services.IsFatal(err):
			// Validation faults and audit corruption never heal on retry.
			d.logger.Error("fatal run failure, stopping poll loop",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Details(err)),
			)
			return
		case err != nil:
			d.logger.Error("run processing failed", logging.Error(err))
			wait = retry
		case worked:
			// Drain the queue before going back to sleep.
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// processNext claims and executes one pending run. It reports whether a run
// was found.
func (d *Daemon) processNext(ctx context.Context) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	run, err := d.store.NextPending(ctx)
	if err != nil {
		return false, fmt.Errorf("claim pending run: %w", err)
	}
	if run == nil {
		return false, nil
	}

	d.logger.Info("run claimed",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("product_ref", run.ProductRef),
	)
	if err := d.pipeline.Run(ctx, run); err != nil {
		return true, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return true, nil
}

// QueueHealth returns aggregate run diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (runstore.HealthSummary, error) {
	if d.store == nil {
		return runstore.HealthSummary{}, errors.New("run store unavailable")
	}
	return d.store.Health(ctx)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg, d.logger)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	queue, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Queue:        queue,
		Agents:       d.sup.Snapshot(),
		RunsDBPath:   filepath.Join(d.cfg.Paths.DataDir, "runs.db"),
		LockFilePath: d.lockPath,
	}
}
