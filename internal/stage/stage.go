// Package stage defines the narrow contract every content stage implements.
// Concrete stages are composed, not subclassed: a stage is a named function
// from a typed request to a typed response.
package stage

import "context"

// Stage is the contract the pipeline needs from each content stage.
type Stage[In, Out any] interface {
	Name() string
	Run(ctx context.Context, in In) (Out, error)
}

type funcStage[In, Out any] struct {
	name string
	fn   func(context.Context, In) (Out, error)
}

// NewFunc adapts a plain function to a Stage.
func NewFunc[In, Out any](name string, fn func(context.Context, In) (Out, error)) Stage[In, Out] {
	return funcStage[In, Out]{name: name, fn: fn}
}

func (s funcStage[In, Out]) Name() string { return s.name }

func (s funcStage[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	return s.fn(ctx, in)
}
