package audit_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"presswork/internal/audit"
	"presswork/internal/logging"
)

func openLog(t *testing.T) (*audit.Log, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := audit.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return audit.NewLog(store, logging.NewNop()), dbPath
}

func TestEmptyLedgerIsValid(t *testing.T) {
	log, _ := openLog(t)
	ok, err := log.VerifyChainIntegrity(context.Background())
	if err != nil {
		t.Fatalf("VerifyChainIntegrity: %v", err)
	}
	if !ok {
		t.Fatal("empty ledger should verify")
	}
}

func TestChainHoldsAfterAppends(t *testing.T) {
	log, _ := openLog(t)
	ctx := context.Background()

	var prev string
	for i := 0; i < 10; i++ {
		event, err := log.Record(ctx, audit.Entry{
			AgentID:   "rights_checker",
			Action:    "rights_check",
			Decision:  "APPROVE",
			Reason:    "registry record active",
			Input:     map[string]string{"title": "Some Reference"},
			SessionID: "sess-1",
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		if event.PrevHash != prev {
			t.Fatalf("event %d prev hash %q, want %q", i, event.PrevHash, prev)
		}
		prev = event.Hash
	}

	ok, err := log.VerifyChainIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyChainIntegrity: %v", err)
	}
	if !ok {
		t.Fatal("chain should verify after appends")
	}
}

func TestPayloadsAreDigestedNotStored(t *testing.T) {
	log, dbPath := openLog(t)
	ctx := context.Background()

	secret := "super-secret-api-key"
	if _, err := log.Record(ctx, audit.Entry{
		AgentID: "enrichment",
		Action:  "enrich",
		Input:   map[string]string{"api_key": secret},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var inputHash string
	if err := db.QueryRow("SELECT input_hash FROM audit_events LIMIT 1").Scan(&inputHash); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if inputHash == "" || strings.Contains(inputHash, secret) {
		t.Fatalf("expected digest, got %q", inputHash)
	}
	if len(inputHash) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(inputHash))
	}
}

func TestTamperedEventFailsVerification(t *testing.T) {
	log, dbPath := openLog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := log.Record(ctx, audit.Entry{AgentID: "qa_checker", Action: "qa_check", Decision: "APPROVE"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("UPDATE audit_events SET decision = 'REJECT' WHERE seq = 2"); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	ok, err := log.VerifyChainIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyChainIntegrity: %v", err)
	}
	if ok {
		t.Fatal("tampered ledger must not verify")
	}
}

func TestEventsFiltersBySession(t *testing.T) {
	log, _ := openLog(t)
	ctx := context.Background()

	for _, session := range []string{"a", "a", "b"} {
		if _, err := log.Record(ctx, audit.Entry{AgentID: "gate", Action: "decide", SessionID: session}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := log.Events(ctx, "a")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for session a, got %d", len(events))
	}

	all, err := log.Events(ctx, "")
	if err != nil {
		t.Fatalf("Events all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events total, got %d", len(all))
	}
}

func TestConcurrentAppendsPreserveChain(t *testing.T) {
	log, _ := openLog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := log.Record(ctx, audit.Entry{
					AgentID: "pipeline",
					Action:  "transition",
				}); err != nil {
					t.Errorf("worker %d record: %v", worker, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	ok, err := log.VerifyChainIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyChainIntegrity: %v", err)
	}
	if !ok {
		t.Fatal("chain should survive concurrent writers")
	}

	events, err := log.Events(ctx, "")
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 40 {
		t.Fatalf("expected 40 events, got %d", len(events))
	}
}
