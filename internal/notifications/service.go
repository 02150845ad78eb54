package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/runstore"
)

const userAgent = "Presswork/0.1.0"

// Service delivers terminal run events. It satisfies the pipeline's Notifier
// contract; delivery failures are logged, never propagated.
type Service struct {
	endpoint string
	client   *http.Client
	enabled  config.Notifications
	logger   *slog.Logger
}

// NewService builds a notifier backed by ntfy when a topic is configured.
// Without a topic every publish is a no-op.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	svc := &Service{
		enabled: cfg.Notifications,
		logger:  logging.NewComponentLogger(logger, "notifications"),
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return svc
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	svc.endpoint = topic
	svc.client = &http.Client{Timeout: timeout}
	return svc
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// RunCompleted announces a published run.
func (s *Service) RunCompleted(ctx context.Context, run *runstore.Run, platforms []string) {
	if !s.enabled.Completed {
		return
	}
	s.publish(ctx, payload{
		title:   "Presswork - Published",
		message: fmt.Sprintf("Published %s to %s", run.ProductRef, strings.Join(platforms, ", ")),
		tags:    []string{"presswork", "publish", "completed"},
	})
}

// RunRejected announces a compliance rejection.
func (s *Service) RunRejected(ctx context.Context, run *runstore.Run, reason string) {
	if !s.enabled.Rejected {
		return
	}
	s.publish(ctx, payload{
		title:   "Presswork - Rejected",
		message: fmt.Sprintf("Run for %s rejected: %s", run.ProductRef, strings.TrimSpace(reason)),
		tags:    []string{"presswork", "compliance", "rejected"},
	})
}

// RunFailed announces a run that landed in the error state.
func (s *Service) RunFailed(ctx context.Context, run *runstore.Run, reason string) {
	if !s.enabled.Errors {
		return
	}
	s.publish(ctx, payload{
		title:    "Presswork - Error",
		message:  fmt.Sprintf("Run for %s failed: %s", run.ProductRef, strings.TrimSpace(reason)),
		tags:     []string{"presswork", "error", "alert"},
		priority: "high",
	})
}

// TestNotification sends a low-priority probe so operators can verify their
// topic wiring.
func (s *Service) TestNotification(ctx context.Context) error {
	return s.send(ctx, payload{
		title:    "Presswork - Test",
		message:  "Notification system test",
		tags:     []string{"presswork", "test"},
		priority: "low",
	})
}

func (s *Service) publish(ctx context.Context, data payload) {
	if err := s.send(ctx, data); err != nil {
		s.logger.Warn("notification delivery failed",
			logging.String("title", data.title),
			logging.Error(err),
		)
	}
}

func (s *Service) send(ctx context.Context, data payload) error {
	if s == nil || s.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
