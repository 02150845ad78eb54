package runstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusPending           Status = "pending"
	StatusIntake            Status = "intake"
	StatusEnrichment        Status = "enrichment"
	StatusReferenceMapping  Status = "reference_mapping"
	StatusRightsCheck       Status = "rights_check"
	StatusContentGeneration Status = "content_generation"
	StatusQA                Status = "qa"
	StatusPublishing        Status = "publishing"
	StatusCompleted         Status = "completed"
	StatusRejected          Status = "rejected"
	StatusError             Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusIntake,
	StatusEnrichment,
	StatusReferenceMapping,
	StatusRightsCheck,
	StatusContentGeneration,
	StatusQA,
	StatusPublishing,
	StatusCompleted,
	StatusRejected,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether s is a known run status.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether a run in this status accepts no further
// transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusError:
		return true
	default:
		return false
	}
}

// Label renders a status for human-facing output.
func (s Status) Label() string {
	parts := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

// Run is a pipeline run persisted in SQLite. Stage outputs are stored as
// JSON; the state machine round-trips them through the typed payload helpers
// below.
type Run struct {
	ID              string
	ProductRef      string
	TargetPlatforms []string
	SourceData      map[string]string
	Status          Status
	RightsRewrites  int
	QARewrites      int
	ErrorMessage    string
	SessionID       string
	EnrichmentJSON  string
	ReferencesJSON  string
	ScoredJSON      string
	ScriptJSON      string
	PackagesJSON    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// SetTerminal marks the run finished in the given terminal status.
func (r *Run) SetTerminal(status Status, reason string) {
	r.Status = status
	if reason != "" {
		r.ErrorMessage = reason
	}
	now := time.Now().UTC()
	r.CompletedAt = &now
}

// EncodePayload stores a typed stage output as JSON in the given field.
func EncodePayload(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(encoded), nil
}

// DecodePayload restores a typed stage output from its JSON field. An empty
// field leaves the target untouched.
func DecodePayload(encoded string, target any) error {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// HealthSummary describes aggregated run counts per key lifecycle state.
type HealthSummary struct {
	Total     int
	Pending   int
	Active    int
	Completed int
	Rejected  int
	Errored   int
}
