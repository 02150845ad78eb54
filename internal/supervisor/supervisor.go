// Package supervisor times individual stage calls and keeps a per-agent
// health map the daemon can report on. It never swallows failures: errors are
// recorded and then returned to the caller unchanged.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"presswork/internal/logging"
	"presswork/internal/stage"
)

// Health aggregates observed calls for one agent.
type Health struct {
	AgentID       string
	Runs          int
	Failures      int
	TotalDuration time.Duration
}

// FailureRate returns the fraction of observed calls that failed.
func (h Health) FailureRate() float64 {
	if h.Runs == 0 {
		return 0
	}
	return float64(h.Failures) / float64(h.Runs)
}

// Supervisor records call outcomes keyed by agent id. Safe for concurrent
// use.
type Supervisor struct {
	mu     sync.Mutex
	health map[string]Health
	logger *slog.Logger
}

// New constructs an empty supervisor.
func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{
		health: make(map[string]Health),
		logger: logging.NewComponentLogger(logger, "supervisor"),
	}
}

// Observe records one call outcome.
func (s *Supervisor) Observe(agentID string, duration time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.health[agentID]
	record.AgentID = agentID
	record.Runs++
	if !success {
		record.Failures++
	}
	record.TotalDuration += duration
	s.health[agentID] = record
}

// Health returns the record for one agent.
func (s *Supervisor) Health(agentID string) (Health, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.health[agentID]
	return record, ok
}

// Snapshot copies the full health map.
func (s *Supervisor) Snapshot() map[string]Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]Health, len(s.health))
	for id, record := range s.health {
		snapshot[id] = record
	}
	return snapshot
}

// Supervise runs a stage under timing observation. The stage's error, if any,
// is re-raised after the health record is updated.
func Supervise[In, Out any](ctx context.Context, s *Supervisor, st stage.Stage[In, Out], in In) (Out, error) {
	start := time.Now()
	out, err := st.Run(ctx, in)
	duration := time.Since(start)

	s.Observe(st.Name(), duration, err == nil)
	if err != nil {
		s.logger.Warn("supervised stage failed",
			logging.String("agent_id", st.Name()),
			logging.Duration("duration", duration),
			logging.Error(err),
		)
	} else {
		s.logger.Debug("supervised stage completed",
			logging.String("agent_id", st.Name()),
			logging.Duration("duration", duration),
		)
	}
	return out, err
}
