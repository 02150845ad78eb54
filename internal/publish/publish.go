// Package publish queues approved platform packages for release and records
// their content hashes so the QA duplicate check can see prior publishes.
package publish

import (
	"context"
	"log/slog"
	"time"

	"presswork/internal/compliance"
	"presswork/internal/logging"
	"presswork/internal/runstore"
	"presswork/internal/services"
)

// Release is the scheduling record handed to the downstream delivery system.
// It carries the full deliverable so delivery needs no read-back from the run
// store.
type Release struct {
	Platform    string    `json:"platform"`
	Caption     string    `json:"caption"`
	Script      string    `json:"script"`
	ContentHash string    `json:"content_hash"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Service turns QA-approved packages into queued releases.
type Service struct {
	store  *runstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the publisher against the run store.
func NewService(store *runstore.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.NewComponentLogger(logger, "publisher"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish queues every package and marks its content hash as published. A
// package that fails to record aborts the batch so the run lands in the error
// state rather than silently half-publishing.
func (s *Service) Publish(ctx context.Context, runID string, pkgs []compliance.PlatformPackage) ([]Release, error) {
	releases := make([]Release, 0, len(pkgs))
	for _, pkg := range pkgs {
		if pkg.ComplianceStatus != compliance.StatusApproved {
			return nil, services.Wrap(services.ErrValidation, "publishing", "queue",
				"refusing to publish package without compliance approval", nil)
		}
		if err := s.store.MarkPublished(ctx, pkg.Platform, pkg.ContentHash, runID); err != nil {
			return nil, services.Wrap(services.ErrTransient, "publishing", "record", "record published content", err)
		}
		release := Release{
			Platform:    pkg.Platform,
			Caption:     pkg.Caption,
			Script:      pkg.Script,
			ContentHash: pkg.ContentHash,
			Status:      "queued",
			ScheduledAt: s.now(),
		}
		releases = append(releases, release)
		s.logger.Info("package queued for release",
			logging.String(logging.FieldRunID, runID),
			logging.String("platform", pkg.Platform),
			logging.String("content_hash", pkg.ContentHash),
		)
	}
	return releases, nil
}
