package supervisor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"presswork/internal/logging"
	"presswork/internal/stage"
	"presswork/internal/supervisor"
)

func TestSuperviseRecordsSuccess(t *testing.T) {
	sup := supervisor.New(logging.NewNop())
	echo := stage.NewFunc("echo", func(_ context.Context, in string) (string, error) {
		return in, nil
	})

	out, err := supervisor.Supervise(context.Background(), sup, echo, "hello")
	if err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected output %q", out)
	}

	health, ok := sup.Health("echo")
	if !ok {
		t.Fatal("expected health record")
	}
	if health.Runs != 1 || health.Failures != 0 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestSuperviseReRaisesFailure(t *testing.T) {
	sup := supervisor.New(logging.NewNop())
	wantErr := errors.New("agent exploded")
	failing := stage.NewFunc("unstable", func(context.Context, string) (string, error) {
		return "", wantErr
	})

	_, err := supervisor.Supervise(context.Background(), sup, failing, "in")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error back, got %v", err)
	}

	health, _ := sup.Health("unstable")
	if health.Runs != 1 || health.Failures != 1 {
		t.Fatalf("failure not recorded: %+v", health)
	}
	if health.FailureRate() != 1 {
		t.Fatalf("expected failure rate 1, got %f", health.FailureRate())
	}
}

func TestObserveAccumulates(t *testing.T) {
	sup := supervisor.New(logging.NewNop())
	sup.Observe("captioner", 100*time.Millisecond, true)
	sup.Observe("captioner", 200*time.Millisecond, false)
	sup.Observe("captioner", 300*time.Millisecond, true)

	health, _ := sup.Health("captioner")
	if health.Runs != 3 || health.Failures != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.TotalDuration != 600*time.Millisecond {
		t.Fatalf("unexpected total duration: %v", health.TotalDuration)
	}

	snapshot := sup.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected one agent in snapshot, got %d", len(snapshot))
	}
}
