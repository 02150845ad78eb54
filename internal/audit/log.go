package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"presswork/internal/logging"
	"presswork/internal/services"
)

// Entry describes one decision to record. Input and Output carry the raw
// payloads the decision was made over; they are digested before storage and
// never persisted.
type Entry struct {
	AgentID   string
	Action    string
	Decision  string
	Reason    string
	Input     any
	Output    any
	SessionID string
}

// Log is the shared ledger facade. All appends funnel through one mutex so
// concurrent pipeline runs cannot interleave inside the hash-chain critical
// section.
type Log struct {
	mu     sync.Mutex
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLog wraps a store with chain maintenance and structured logging.
func NewLog(store *Store, logger *slog.Logger) *Log {
	return &Log{
		store:  store,
		logger: logging.NewComponentLogger(logger, "audit"),
		now:    time.Now,
	}
}

// Record hashes the payloads, links the event to the current chain head, and
// appends it. A failed append is returned to the caller; logging never fails
// silently.
func (l *Log) Record(ctx context.Context, entry Entry) (Event, error) {
	inputHash, err := HashPayload(entry.Input)
	if err != nil {
		return Event{}, services.Wrap(services.ErrValidation, "audit", "hash input payload", "input payload is not serializable", err)
	}
	outputHash, err := HashPayload(entry.Output)
	if err != nil {
		return Event{}, services.Wrap(services.ErrValidation, "audit", "hash output payload", "output payload is not serializable", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash, err := l.store.LastHash(ctx)
	if err != nil {
		return Event{}, services.Wrap(services.ErrTransient, "audit", "read chain head", "cannot read last event hash", err)
	}

	event := Event{
		ID:         uuid.NewString(),
		AgentID:    entry.AgentID,
		Action:     entry.Action,
		Decision:   entry.Decision,
		Reason:     entry.Reason,
		InputHash:  inputHash,
		OutputHash: outputHash,
		SessionID:  entry.SessionID,
		PrevHash:   prevHash,
		Timestamp:  l.now().UTC(),
	}
	event.Hash = ComputeHash(event)

	if err := l.store.Append(ctx, event); err != nil {
		return Event{}, services.Wrap(services.ErrTransient, "audit", "append event", "ledger append failed", err)
	}

	l.logger.Debug("audit event recorded",
		logging.String("audit_id", event.ID),
		logging.String("agent_id", event.AgentID),
		logging.String("action", event.Action),
		logging.String(logging.FieldDecision, event.Decision),
	)
	return event, nil
}

// Events returns recorded events in append order, optionally filtered to one
// session.
func (l *Log) Events(ctx context.Context, sessionID string) ([]Event, error) {
	return l.store.List(ctx, sessionID)
}

// VerifyChainIntegrity walks the full ledger and recomputes every link. It
// returns false on any divergence: a broken link signals tampering or
// corruption and is fatal, never auto-healed. An empty ledger is trivially
// valid.
func (l *Log) VerifyChainIntegrity(ctx context.Context) (bool, error) {
	events, err := l.store.List(ctx, "")
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "audit", "verify chain", "cannot read ledger", err)
	}

	prevHash := ""
	for _, event := range events {
		if event.PrevHash != prevHash {
			l.logger.Error("audit chain link mismatch",
				logging.String("audit_id", event.ID),
				logging.String("expected_prev", prevHash),
				logging.String("stored_prev", event.PrevHash),
				logging.String(logging.FieldErrorHint, "ledger requires operator intervention"),
			)
			return false, nil
		}
		if ComputeHash(event) != event.Hash {
			l.logger.Error("audit event hash mismatch",
				logging.String("audit_id", event.ID),
				logging.String(logging.FieldErrorHint, "ledger requires operator intervention"),
			)
			return false, nil
		}
		prevHash = event.Hash
	}
	return true, nil
}
