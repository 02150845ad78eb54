package testsupport

import (
	"context"
	"testing"

	"presswork/internal/audit"
	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/runstore"
)

// MustOpenRunStore opens a runstore.Store for tests and registers cleanup.
func MustOpenRunStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenAuditLog opens the audit ledger for tests and registers cleanup.
func MustOpenAuditLog(t testing.TB, cfg *config.Config) *audit.Log {
	t.Helper()

	store, err := audit.Open(cfg)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return audit.NewLog(store, logging.NewNop())
}

// NewRun creates a pending run for tests using the provided store.
func NewRun(t testing.TB, store *runstore.Store, productRef string, platforms []string, sourceData map[string]string) *runstore.Run {
	t.Helper()

	run, err := store.NewRun(context.Background(), productRef, platforms, sourceData)
	if err != nil {
		t.Fatalf("store.NewRun: %v", err)
	}
	return run
}
