package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain/pipeline"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
	"github.com/kailas-cloud/housepipe/internal/usecase/runner"
)

// houseParams fills the pipeline parameters from config; root overrides the
// derived pipeline root when set.
func (a *app) houseParams(root string) (pipeline.HousePriceParams, error) {
	b := a.cfg.Batch
	if _, err := table.ParseID(b.Input); err != nil {
		return pipeline.HousePriceParams{}, fmt.Errorf("batch.input: %w: %w", errUsage, err)
	}
	if _, err := table.ParseID(b.Output); err != nil {
		return pipeline.HousePriceParams{}, fmt.Errorf("batch.output: %w: %w", errUsage, err)
	}
	if root == "" {
		root = a.cfg.Derived.PipelineRoot
	}
	return pipeline.HousePriceParams{
		Root:            root,
		Image:           a.cfg.Derived.Images[a.cfg.Pipeline.Image],
		Input:           b.Input,
		Output:          b.Output,
		Project:         b.Project,
		Disposition:     b.WriteDisposition,
		MaxRowsPerChunk: b.MaxRowsPerChunk,
	}, nil
}

func (a *app) jobTarget() pipeline.JobTarget {
	return pipeline.JobTarget{
		Project:        a.cfg.Derived.ProjectID,
		Location:       a.cfg.Project.Region,
		ServiceAccount: a.cfg.Derived.ServiceAccount,
	}
}

// --- compile-pipeline ---

type compilePipelineCmd struct {
	app    *app
	output string
	root   string
}

func (*compilePipelineCmd) Name() string { return "compile-pipeline" }
func (*compilePipelineCmd) Synopsis() string {
	return "Compile the house price pipeline to its JSON or YAML representation."
}
func (*compilePipelineCmd) Usage() string {
	return "compile-pipeline [-output PATH] [-root URI]\n  The format follows the output extension (.json, .yaml).\n"
}

func (c *compilePipelineCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "output", "house_price_pipeline.json", "file to write")
	f.StringVar(&c.root, "root", "", "pipeline root (default: derived from project)")
}

func (c *compilePipelineCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *compilePipelineCmd) run(_ context.Context) error {
	log := c.app.commandLogger(c.Name())

	params, err := c.app.houseParams(c.root)
	if err != nil {
		return err
	}
	ir, err := pipeline.Compile(pipeline.HousePrice(params))
	if err != nil {
		return err
	}
	data, err := ir.Encode(pipeline.FormatFor(c.output))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.output); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(c.output, data, 0o600); err != nil {
		return fmt.Errorf("write pipeline: %w", err)
	}

	job := pipeline.NewJob(ir, pipeline.HousePriceRunName, c.output, c.app.jobTarget())
	log.Info("Pipeline compiled",
		zap.String("path", c.output),
		zap.String("pipeline", ir.Pipeline.Name),
		zap.String("pipeline_root", job.PipelineRoot),
		zap.String("project", job.Project),
		zap.String("location", job.Location),
		zap.String("service_account", job.ServiceAccount),
		zap.Bool("enable_caching", job.EnableCaching),
	)
	return nil
}

// --- run-pipeline ---

type runPipelineCmd struct {
	app      *app
	template string
	root     string
}

func (*runPipelineCmd) Name() string { return "run-pipeline" }
func (*runPipelineCmd) Synopsis() string {
	return "Run the house price pipeline locally, step by step."
}
func (*runPipelineCmd) Usage() string {
	return "run-pipeline [-template PATH] [-root DIR]\n" +
		"  Without -template the pipeline is compiled from the current config.\n"
}

func (c *runPipelineCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.template, "template", "", "compiled pipeline to run")
	f.StringVar(&c.root, "root", c.app.cfg.Pipeline.LocalRoot, "pipeline root for step artifacts")
}

func (c *runPipelineCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *runPipelineCmd) run(ctx context.Context) error {
	log := c.app.commandLogger(c.Name())

	ir, err := c.load()
	if err != nil {
		return err
	}
	job := pipeline.NewJob(ir, pipeline.HousePriceRunName, c.template, c.app.jobTarget())
	if c.root != "" {
		job.PipelineRoot = c.root
	}

	steps := map[string]runner.StepFunc{
		pipeline.StepTrain:        local(func() task { return newTrainCmd(c.app) }),
		pipeline.StepBatchPredict: local(func() task { return newBatchPredictCmd(c.app) }),
	}
	res, err := runner.New(steps, c.app.metrics, log).Run(ctx, ir, job)
	if err != nil {
		return err
	}
	log.Info("Pipeline run finished",
		zap.String("run_id", res.RunID),
		zap.Int("steps", len(res.Steps)),
		zap.Any("artifacts", res.Artifacts),
	)
	return nil
}

func (c *runPipelineCmd) load() (*pipeline.IR, error) {
	if c.template == "" {
		params, err := c.app.houseParams(c.root)
		if err != nil {
			return nil, err
		}
		return pipeline.Compile(pipeline.HousePrice(params))
	}
	data, err := os.ReadFile(filepath.Clean(c.template))
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	return pipeline.Decode(data)
}
