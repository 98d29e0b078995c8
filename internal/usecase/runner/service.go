// Package runner executes a compiled pipeline locally, one step after the
// other, handing artifacts off through paths under the pipeline root.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/pipeline"
)

// StepResult reports one executed step.
type StepResult struct {
	Name     string
	Duration time.Duration
}

// Result reports a finished run.
type Result struct {
	RunID     string
	Steps     []StepResult
	Artifacts map[string]string
}

// Service runs pipelines in-process.
type Service struct {
	steps    map[string]StepFunc
	recorder Recorder
	logger   *zap.Logger
}

// New creates a local runner. steps maps a command name (the last element of
// a step command) to its implementation. recorder can be nil.
func New(steps map[string]StepFunc, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{steps: steps, recorder: recorder, logger: logger}
}

// ArtifactPath is where a run keeps an artifact of a step.
func ArtifactPath(root, runID string, ref pipeline.ArtifactRef) string {
	return strings.TrimRight(root, "/") + "/" + runID + "/" + ref.Step + "/" + ref.Artifact
}

// Run executes ir for job. Steps run in IR order and the first failure stops
// the run.
func (s *Service) Run(ctx context.Context, ir *pipeline.IR, job pipeline.Job) (Result, error) {
	root := job.PipelineRoot
	if root == "" {
		root = ir.Pipeline.Root
	}
	if root == "" {
		return Result{}, fmt.Errorf("run %s: pipeline root is required: %w", job.ID, domain.ErrInvalidInput)
	}

	fns := make([]StepFunc, len(ir.Steps))
	for i, st := range ir.Steps {
		cmd := st.Command[len(st.Command)-1]
		fn, ok := s.steps[cmd]
		if !ok {
			return Result{}, fmt.Errorf("step %s: no local implementation of %q: %w", st.Name, cmd, domain.ErrInvalidInput)
		}
		fns[i] = fn
	}

	log := s.logger.With(
		zap.String("pipeline", ir.Pipeline.Name),
		zap.String("run_id", job.ID),
		zap.String("pipeline_root", root),
	)
	log.Info("Pipeline run started", zap.String("display_name", job.DisplayName), zap.Int("steps", len(ir.Steps)))

	res := Result{RunID: job.ID, Artifacts: make(map[string]string)}
	path := func(ref pipeline.ArtifactRef) string {
		p := ArtifactPath(root, job.ID, ref)
		res.Artifacts[ref.Step+"."+ref.Artifact] = p
		return p
	}

	for i, st := range ir.Steps {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("step %s: %w", st.Name, err)
		}
		args := make([]string, len(st.Args))
		for j, a := range st.Args {
			args[j] = pipeline.Resolve(a, path)
		}

		name := st.Name
		if st.DisplayName != "" {
			name = st.DisplayName
		}
		log.Info("Step started", zap.String("step", st.Name), zap.String("display_name", name))
		started := time.Now()
		err := fns[i](ctx, args)
		if s.recorder != nil {
			s.recorder.Observe("pipeline:"+st.Name, started, err)
		}
		if err != nil {
			log.Error("Step failed", zap.String("step", st.Name), zap.Error(err))
			return res, fmt.Errorf("step %s: %w", st.Name, err)
		}
		elapsed := time.Since(started)
		res.Steps = append(res.Steps, StepResult{Name: st.Name, Duration: elapsed})
		log.Info("Step finished", zap.String("step", st.Name), zap.Duration("elapsed", elapsed))
	}

	log.Info("Pipeline run completed")
	return res, nil
}
