package pipeline

import (
	"context"

	"presswork/internal/runstore"
)

// Notifier receives terminal run events. Implementations must not block the
// pipeline on delivery failures.
type Notifier interface {
	RunCompleted(ctx context.Context, run *runstore.Run, platforms []string)
	RunRejected(ctx context.Context, run *runstore.Run, reason string)
	RunFailed(ctx context.Context, run *runstore.Run, reason string)
}

type nopNotifier struct{}

func (nopNotifier) RunCompleted(context.Context, *runstore.Run, []string) {}
func (nopNotifier) RunRejected(context.Context, *runstore.Run, string)   {}
func (nopNotifier) RunFailed(context.Context, *runstore.Run, string)     {}

// NopNotifier returns a notifier that drops every event.
func NopNotifier() Notifier { return nopNotifier{} }
