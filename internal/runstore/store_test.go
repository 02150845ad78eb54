package runstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"presswork/internal/runstore"
)

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	store, err := runstore.OpenPath(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRunAndRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "prod-42", []string{"tiktok", "youtube"}, map[string]string{"brief": "spring launch"})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Status != runstore.StatusPending {
		t.Fatalf("new run should be pending, got %s", run.Status)
	}
	if run.SessionID == "" {
		t.Fatal("new run needs a session id")
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.ProductRef != "prod-42" {
		t.Fatalf("wrong product ref: %s", fetched.ProductRef)
	}
	if len(fetched.TargetPlatforms) != 2 || fetched.TargetPlatforms[1] != "youtube" {
		t.Fatalf("wrong platforms: %v", fetched.TargetPlatforms)
	}
	if fetched.SourceData["brief"] != "spring launch" {
		t.Fatalf("wrong source data: %v", fetched.SourceData)
	}
}

func TestUpdatePersistsProgress(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "prod-1", []string{"tiktok"}, nil)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	run.Status = runstore.StatusRightsCheck
	run.RightsRewrites = 2
	run.ReferencesJSON = `[{"title":"Old Symphony"}]`
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != runstore.StatusRightsCheck || fetched.RightsRewrites != 2 {
		t.Fatalf("progress not persisted: %+v", fetched)
	}
	if fetched.ReferencesJSON == "" {
		t.Fatal("payload JSON not persisted")
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.NewRun(ctx, "prod-1", nil, nil)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	run.Status = "abducted"
	if err := store.Update(ctx, run); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openStore(t)
	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, runstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNextPendingOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.NewRun(ctx, "prod-a", nil, nil)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if _, err := store.NewRun(ctx, "prod-b", nil, nil); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending run %s, got %+v", first.ID, next)
	}

	next.Status = runstore.StatusCompleted
	next.SetTerminal(runstore.StatusCompleted, "")
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update: %v", err)
	}

	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if second == nil || second.ProductRef != "prod-b" {
		t.Fatalf("expected prod-b next, got %+v", second)
	}
}

func TestNextPendingEmpty(t *testing.T) {
	store := openStore(t)
	next, err := store.NextPending(context.Background())
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next != nil {
		t.Fatalf("expected nil for empty queue, got %+v", next)
	}
}

func TestPublishedIndex(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	published, err := store.IsPublished(ctx, "tiktok", "hash-1")
	if err != nil {
		t.Fatalf("IsPublished: %v", err)
	}
	if published {
		t.Fatal("hash should not be published yet")
	}

	if err := store.MarkPublished(ctx, "tiktok", "hash-1", "run-1"); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	// Idempotent: second insert is a no-op, not an error.
	if err := store.MarkPublished(ctx, "tiktok", "hash-1", "run-1"); err != nil {
		t.Fatalf("MarkPublished twice: %v", err)
	}

	published, err = store.IsPublished(ctx, "tiktok", "hash-1")
	if err != nil {
		t.Fatalf("IsPublished: %v", err)
	}
	if !published {
		t.Fatal("hash should be published")
	}

	other, err := store.IsPublished(ctx, "youtube", "hash-1")
	if err != nil {
		t.Fatalf("IsPublished: %v", err)
	}
	if other {
		t.Fatal("publication is per platform")
	}
}

func TestHealthSummary(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.NewRun(ctx, "prod", nil, nil); err != nil {
			t.Fatalf("NewRun: %v", err)
		}
	}
	run, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	run.SetTerminal(runstore.StatusRejected, "blocked reference")
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Total != 3 || summary.Pending != 2 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
