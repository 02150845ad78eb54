// Package stageexec schedules independent units of analysis work with bounded
// concurrency. Sequential steps run in registration order and fail fast;
// parallel groups run every member to completion before the pipeline
// continues, even when some members fail.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"presswork/internal/logging"
)

// Status is the lifecycle of one registered step.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// Task is one unit of schedulable work.
type Task func(ctx context.Context) (any, error)

// Member names a task inside a parallel group.
type Member struct {
	Name string
	Task Task
}

// StageResult captures the outcome of one step or group member.
type StageResult struct {
	Name     string
	Group    string
	Status   Status
	Duration time.Duration
	Output   any
	Err      error
}

// PipelineResult is the joined outcome of a full Run. Run never panics or
// returns an error; every step outcome lives here.
type PipelineResult struct {
	Stages []StageResult
	Failed bool
}

// Result returns the outcome for a named step, if it was registered.
func (r PipelineResult) Result(name string) (StageResult, bool) {
	for _, stage := range r.Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return StageResult{}, false
}

// Output returns the captured output of a completed step.
func (r PipelineResult) Output(name string) (any, bool) {
	result, ok := r.Result(name)
	if !ok || result.Status != StatusCompleted {
		return nil, false
	}
	return result.Output, true
}

type step struct {
	name     string
	parallel bool
	members  []Member
}

// Executor registers steps and runs them under a counting semaphore that caps
// simultaneous outbound calls.
type Executor struct {
	permits chan struct{}
	steps   []step
	logger  *slog.Logger
}

// New constructs an executor with maxConcurrent permits. Values below one
// fall back to a single permit.
func New(maxConcurrent int, logger *slog.Logger) *Executor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Executor{
		permits: make(chan struct{}, maxConcurrent),
		logger:  logging.NewComponentLogger(logger, "stage_executor"),
	}
}

// AddSequential registers a step that executes only after all prior steps
// complete. If any earlier step failed, the step is skipped entirely.
func (e *Executor) AddSequential(name string, task Task) {
	e.steps = append(e.steps, step{name: name, members: []Member{{Name: name, Task: task}}})
}

// AddParallel registers a group whose members run concurrently, each holding
// a semaphore permit. The group joins after every member finishes, success or
// failure; if any member failed, later steps do not run.
func (e *Executor) AddParallel(groupName string, members ...Member) {
	e.steps = append(e.steps, step{name: groupName, parallel: true, members: members})
}

// Run executes every registered step. Sequential steps run in registration
// order; members of one parallel group have no defined relative order but are
// jointly complete before the next step begins.
func (e *Executor) Run(ctx context.Context) PipelineResult {
	var result PipelineResult

	for _, st := range e.steps {
		if result.Failed {
			for _, member := range st.members {
				result.Stages = append(result.Stages, StageResult{
					Name:   member.Name,
					Group:  groupLabel(st),
					Status: StatusSkipped,
				})
			}
			continue
		}

		if st.parallel {
			e.runParallel(ctx, st, &result)
		} else {
			e.runSequential(ctx, st, &result)
		}
	}
	return result
}

func (e *Executor) runSequential(ctx context.Context, st step, result *PipelineResult) {
	member := st.members[0]
	outcome := e.runMember(ctx, member, "")
	if outcome.Status == StatusFailed {
		result.Failed = true
	}
	result.Stages = append(result.Stages, outcome)
}

func (e *Executor) runParallel(ctx context.Context, st step, result *PipelineResult) {
	outcomes := make([]StageResult, len(st.members))
	var wg sync.WaitGroup
	for i, member := range st.members {
		wg.Add(1)
		go func(idx int, m Member) {
			defer wg.Done()
			outcomes[idx] = e.runMember(ctx, m, st.name)
		}(i, member)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome.Status == StatusFailed {
			result.Failed = true
		}
		result.Stages = append(result.Stages, outcome)
	}
}

// runMember acquires a permit, executes the task, and converts panics into
// FAILED results so Run never propagates an exception.
func (e *Executor) runMember(ctx context.Context, member Member, group string) (outcome StageResult) {
	outcome = StageResult{Name: member.Name, Group: group, Status: StatusRunning}
	start := time.Now()

	defer func() {
		outcome.Duration = time.Since(start)
		if recovered := recover(); recovered != nil {
			outcome.Status = StatusFailed
			outcome.Err = fmt.Errorf("stage %s panicked: %v", member.Name, recovered)
			e.logger.Error("stage panicked",
				logging.String(logging.FieldStage, member.Name),
				logging.Error(outcome.Err),
			)
		}
	}()

	select {
	case e.permits <- struct{}{}:
	case <-ctx.Done():
		outcome.Status = StatusFailed
		outcome.Err = ctx.Err()
		return outcome
	}
	defer func() { <-e.permits }()

	output, err := member.Task(ctx)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		e.logger.Warn("stage failed",
			logging.String(logging.FieldStage, member.Name),
			logging.Error(err),
		)
		return outcome
	}

	outcome.Status = StatusCompleted
	outcome.Output = output
	return outcome
}

func groupLabel(st step) string {
	if st.parallel {
		return st.name
	}
	return ""
}
