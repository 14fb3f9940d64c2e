// Package flow runs a fixed sequence of named steps as one flow run.
//
// A run is strictly sequential. Each step completes before the next starts
// and the first failing step aborts the run. Steps handle their own retries.
//
//	f := flow.New[State]("weather-flow").
//	    Step("fetch", fetch).
//	    Step("write", write)
//
//	run, err := f.Run(ctx, &State{})
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-flow/internal/store"
)

// ErrStepFailed wraps the error of the step that aborted a run.
var ErrStepFailed = errors.New("step failed")

// StepFunc is one unit of work operating on the shared run state.
type StepFunc[S any] func(ctx context.Context, state *S) error

type step[S any] struct {
	name string
	fn   StepFunc[S]
}

// Flow is an ordered list of steps sharing a state of type S.
type Flow[S any] struct {
	name   string
	steps  []step[S]
	store  store.RunStore
	output io.Writer
	namer  func() string
}

// New creates a new flow with the given name.
func New[S any](name string) *Flow[S] {
	if name == "" {
		panic("flow: name must not be empty")
	}
	return &Flow[S]{
		name:  name,
		namer: RunName,
	}
}

// Name returns the flow name.
func (f *Flow[S]) Name() string {
	return f.name
}

// Steps returns the step names in execution order.
func (f *Flow[S]) Steps() []string {
	names := make([]string, len(f.steps))
	for i, s := range f.steps {
		names[i] = s.name
	}
	return names
}

// Step appends a step to the flow.
func (f *Flow[S]) Step(name string, fn StepFunc[S]) *Flow[S] {
	if name == "" {
		panic("flow: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("flow: step %q has nil function", name))
	}
	f.steps = append(f.steps, step[S]{name: name, fn: fn})
	return f
}

// WithStore records every run state transition in s.
func (f *Flow[S]) WithStore(s store.RunStore) *Flow[S] {
	f.store = s
	return f
}

// WithOutput sends run logs to w instead of the standard logger's output.
func (f *Flow[S]) WithOutput(w io.Writer) *Flow[S] {
	f.output = w
	return f
}

// WithRunNamer overrides the generated run names.
func (f *Flow[S]) WithRunNamer(namer func() string) *Flow[S] {
	f.namer = namer
	return f
}

// Run executes every step in order against state. It returns the run record
// and, if a step failed, an error wrapping ErrStepFailed and the step error.
func (f *Flow[S]) Run(ctx context.Context, state *S) (store.Run, error) {
	out := f.output
	if out == nil {
		out = log.Writer()
	}

	run := store.Run{
		ID:        uuid.NewString(),
		Name:      f.namer(),
		Flow:      f.name,
		Status:    store.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	info := &RunInfo{
		ID:     run.ID,
		Name:   run.Name,
		Flow:   f.name,
		Logger: log.New(out, fmt.Sprintf("%s/%s | ", f.name, run.Name), log.LstdFlags|log.Lmsgprefix),
	}
	ctx = withRunInfo(ctx, info)
	lg := info.Logger

	lg.Printf("INFO: Starting flow %s", run.Name)
	f.save(run)

	for _, s := range f.steps {
		rec := store.StepRecord{
			Name:      s.name,
			Status:    store.StatusRunning,
			StartedAt: time.Now().UTC(),
		}
		run.Steps = append(run.Steps, rec)
		f.save(run)

		lg.Printf("INFO: step %s started", s.name)
		err := ctx.Err()
		if err == nil {
			err = callStep(ctx, s, state)
		}

		rec.FinishedAt = time.Now().UTC()
		if err != nil {
			rec.Status = store.StatusFailed
			rec.Error = err.Error()
			run.Steps[len(run.Steps)-1] = rec
			run.Status = store.StatusFailed
			run.Error = err.Error()
			run.FinishedAt = rec.FinishedAt
			f.save(run)

			lg.Printf("ERROR: step %s failed: %v", s.name, err)
			lg.Printf("ERROR: flow run %s failed", run.Name)
			return run, fmt.Errorf("%w %q: %w", ErrStepFailed, s.name, err)
		}

		rec.Status = store.StatusCompleted
		run.Steps[len(run.Steps)-1] = rec
		f.save(run)
		lg.Printf("INFO: step %s completed in %s", s.name, rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond))
	}

	run.Status = store.StatusCompleted
	run.FinishedAt = time.Now().UTC()
	f.save(run)
	lg.Printf("INFO: flow run %s completed", run.Name)
	return run, nil
}

func callStep[S any](ctx context.Context, s step[S], state *S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in step %s: %v", s.name, r)
		}
	}()
	return s.fn(ctx, state)
}

func (f *Flow[S]) save(run store.Run) {
	if f.store != nil {
		f.store.SaveRun(run)
	}
}
