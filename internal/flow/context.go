package flow

import (
	"context"
	"log"
)

// RunInfo describes the run a step executes in.
type RunInfo struct {
	ID     string
	Name   string
	Flow   string
	Logger *log.Logger
}

type runInfoKey struct{}

func withRunInfo(ctx context.Context, info *RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// RunFromContext returns the RunInfo of the current run, if any.
func RunFromContext(ctx context.Context) (*RunInfo, bool) {
	info, ok := ctx.Value(runInfoKey{}).(*RunInfo)
	return info, ok
}

// Logger returns the run-scoped logger, or the standard logger outside a run.
func Logger(ctx context.Context) *log.Logger {
	if info, ok := RunFromContext(ctx); ok && info.Logger != nil {
		return info.Logger
	}
	return log.Default()
}
