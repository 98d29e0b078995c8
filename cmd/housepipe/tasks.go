package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain/table"
	"github.com/kailas-cloud/housepipe/internal/repository/dataset"
	"github.com/kailas-cloud/housepipe/internal/tabular"
	"github.com/kailas-cloud/housepipe/internal/usecase/batchpredict"
	"github.com/kailas-cloud/housepipe/internal/usecase/inference"
	"github.com/kailas-cloud/housepipe/internal/usecase/training"
)

// --- train ---

type trainCmd struct {
	app         *app
	modelOutput string
	datasetURL  string
	testRatio   float64
	seed        uint64
	maxMAE      float64
}

func newTrainCmd(a *app) *trainCmd { return &trainCmd{app: a} }

func (*trainCmd) Name() string     { return "train" }
func (*trainCmd) Synopsis() string { return "Train the house price model and write the artifact." }
func (*trainCmd) Usage() string {
	return "train -model-output PATH [-dataset-url URL] [-test-ratio R] [-seed N] [-max-mae X]\n"
}

func (c *trainCmd) SetFlags(f *flag.FlagSet) {
	cfg := c.app.cfg.Training
	f.StringVar(&c.modelOutput, "model-output", "", "artifact location: file path or valkey://<key>")
	f.StringVar(&c.datasetURL, "dataset-url", cfg.DatasetURL, "labelled CSV dataset URL")
	f.Float64Var(&c.testRatio, "test-ratio", cfg.TestRatio, "share of rows held out for evaluation")
	f.Uint64Var(&c.seed, "seed", cfg.Seed, "split seed; 0 draws a fresh split")
	f.Float64Var(&c.maxMAE, "max-mae", cfg.MaxMAE, "fail when eval MAE exceeds this; 0 disables")
}

func (c *trainCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *trainCmd) run(ctx context.Context) error {
	if err := required("model-output", c.modelOutput); err != nil {
		return err
	}
	log := c.app.commandLogger(c.Name())

	repo, store, err := c.app.artifacts(ctx, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	client := &http.Client{Timeout: time.Duration(c.app.cfg.Training.FetchTimeoutSec) * time.Second}
	svc := training.New(
		dataset.NewFetcher(c.datasetURL, client, log),
		repo,
		c.app.metrics,
		training.Options{TestRatio: c.testRatio, Seed: c.seed, MaxMAE: c.maxMAE},
		log,
	)
	res, err := svc.Run(ctx, c.modelOutput)
	if err != nil {
		return err
	}
	log.Info("Training finished",
		zap.String("model_output", c.modelOutput),
		zap.Float64("mae", res.MAE),
		zap.Int("train_rows", res.TrainRows),
		zap.Int("eval_rows", res.EvalRows),
	)
	return nil
}

// --- batch-predict ---

type batchPredictCmd struct {
	app             *app
	model           string
	input           string
	output          string
	project         string
	disposition     string
	maxRowsPerChunk int
}

func newBatchPredictCmd(a *app) *batchPredictCmd { return &batchPredictCmd{app: a} }

func (*batchPredictCmd) Name() string { return "batch-predict" }
func (*batchPredictCmd) Synopsis() string {
	return "Score a warehouse table and load the predictions into another table."
}
func (*batchPredictCmd) Usage() string {
	return "batch-predict -model PATH -input P.D.T -output P.D.T [-project P] " +
		"[-write-disposition WRITE_TRUNCATE|WRITE_APPEND] [-max-rows-per-chunk N]\n"
}

func (c *batchPredictCmd) SetFlags(f *flag.FlagSet) {
	cfg := c.app.cfg.Batch
	f.StringVar(&c.model, "model", "", "artifact location")
	f.StringVar(&c.input, "input", cfg.Input, "input table project.dataset.table")
	f.StringVar(&c.output, "output", cfg.Output, "output table project.dataset.table")
	f.StringVar(&c.project, "project", cfg.Project, "project running the load jobs")
	f.StringVar(&c.disposition, "write-disposition", cfg.WriteDisposition, "WRITE_TRUNCATE or WRITE_APPEND")
	f.IntVar(&c.maxRowsPerChunk, "max-rows-per-chunk", cfg.MaxRowsPerChunk, "rows per warehouse load")
}

func (c *batchPredictCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *batchPredictCmd) run(ctx context.Context) error {
	req, err := c.request()
	if err != nil {
		return err
	}
	log := c.app.commandLogger(c.Name())

	repo, store, err := c.app.artifacts(ctx, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	wh, closeWarehouse, err := c.app.warehouse(ctx, log)
	if err != nil {
		return err
	}
	defer closeWarehouse()

	res, err := batchpredict.New(repo, wh, c.app.metrics, log).Run(ctx, req)
	if err != nil {
		return err
	}
	log.Info("Batch prediction finished", zap.Int("rows", res.Rows), zap.Int("chunks", res.Chunks))
	return nil
}

func (c *batchPredictCmd) request() (batchpredict.Request, error) {
	for name, v := range map[string]string{"model": c.model, "input": c.input, "output": c.output} {
		if err := required(name, v); err != nil {
			return batchpredict.Request{}, err
		}
	}
	in, err := table.ParseID(c.input)
	if err != nil {
		return batchpredict.Request{}, fmt.Errorf("-input: %w: %w", errUsage, err)
	}
	out, err := table.ParseID(c.output)
	if err != nil {
		return batchpredict.Request{}, fmt.Errorf("-output: %w: %w", errUsage, err)
	}
	d, err := table.ParseWriteDisposition(c.disposition)
	if err != nil {
		return batchpredict.Request{}, fmt.Errorf("-write-disposition: %w: %w", errUsage, err)
	}
	if c.maxRowsPerChunk <= 0 {
		return batchpredict.Request{}, fmt.Errorf("-max-rows-per-chunk must be positive: %w", errUsage)
	}
	return batchpredict.Request{
		ModelPath:       c.model,
		Input:           in,
		Output:          out,
		Project:         c.project,
		Disposition:     d,
		MaxRowsPerChunk: c.maxRowsPerChunk,
	}, nil
}

// --- infer ---

type inferCmd struct {
	app               *app
	evalDataset       string
	model             string
	predictionsOutput string
}

func newInferCmd(a *app) *inferCmd { return &inferCmd{app: a} }

func (*inferCmd) Name() string     { return "infer" }
func (*inferCmd) Synopsis() string { return "Score a CSV or Parquet file and write the predictions as CSV." }
func (*inferCmd) Usage() string {
	return "infer -eval-dataset PATH -model PATH -predictions-output PATH\n"
}

func (c *inferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.evalDataset, "eval-dataset", "", "CSV or Parquet file to score")
	f.StringVar(&c.model, "model", "", "artifact location")
	f.StringVar(&c.predictionsOutput, "predictions-output", "", "CSV file to write")
}

func (c *inferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return c.app.execute(ctx, c.Name(), c.run)
}

func (c *inferCmd) run(ctx context.Context) error {
	for _, kv := range [][2]string{
		{"eval-dataset", c.evalDataset}, {"model", c.model}, {"predictions-output", c.predictionsOutput},
	} {
		if err := required(kv[0], kv[1]); err != nil {
			return err
		}
	}
	log := c.app.commandLogger(c.Name())

	repo, store, err := c.app.artifacts(ctx, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	n, err := inference.New(repo, tabular.Files{}, c.app.metrics, log).Run(ctx, inference.Request{
		EvalDataset:       c.evalDataset,
		ModelPath:         c.model,
		PredictionsOutput: c.predictionsOutput,
	})
	if err != nil {
		return err
	}
	log.Info("Inference finished", zap.Int("rows", n), zap.String("output", c.predictionsOutput))
	return nil
}
