package runner

import (
	"context"
	"time"
)

// StepFunc executes one step in-process with the step's resolved arguments.
type StepFunc func(ctx context.Context, args []string) error

// Recorder receives per-step outcomes.
type Recorder interface {
	Observe(task string, started time.Time, err error)
}
