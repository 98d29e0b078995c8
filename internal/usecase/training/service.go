// Package training fits the house price model and stores the artifact.
package training

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/estimator"
)

// TargetColumn is the label column of the training data.
const TargetColumn = "SalePrice"

// DefaultTestRatio is the share of rows held out for evaluation.
const DefaultTestRatio = 0.1

// Options tunes a training run.
type Options struct {
	// TestRatio is the eval share in (0, 1).
	TestRatio float64
	// Seed fixes the split; 0 draws a fresh split every run.
	Seed uint64
	// MaxMAE fails the run when the eval error exceeds it. 0 disables the check.
	MaxMAE float64
}

// Result summarizes a finished training run.
type Result struct {
	TrainRows int
	EvalRows  int
	MAE       float64
}

// Service runs the training task.
type Service struct {
	fetcher  DatasetFetcher
	saver    ArtifactSaver
	recorder Recorder
	opts     Options
	logger   *zap.Logger
}

// New creates a training service. recorder can be nil.
func New(fetcher DatasetFetcher, saver ArtifactSaver, recorder Recorder, opts Options, logger *zap.Logger) *Service {
	if opts.TestRatio == 0 {
		opts.TestRatio = DefaultTestRatio
	}
	return &Service{fetcher: fetcher, saver: saver, recorder: recorder, opts: opts, logger: logger}
}

// Run fetches the dataset, fits the model on the train split, evaluates it on
// the eval split and writes the artifact to modelOutput.
func (s *Service) Run(ctx context.Context, modelOutput string) (Result, error) {
	if s.opts.TestRatio <= 0 || s.opts.TestRatio >= 1 {
		return Result{}, fmt.Errorf("test ratio %v must be in (0, 1): %w", s.opts.TestRatio, domain.ErrInvalidInput)
	}

	s.logger.Info("Downloading data")
	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch dataset: %w", err)
	}
	s.logger.Info("Data loaded", zap.Int("rows", data.Len()), zap.Int("columns", len(data.Columns())))

	labels, err := Labels(data)
	if err != nil {
		return Result{}, err
	}

	trainIdx, evalIdx, err := Split(data.Len(), s.opts.TestRatio, s.opts.Seed)
	if err != nil {
		return Result{}, err
	}
	train, eval := data.Take(trainIdx), data.Take(evalIdx)

	model, err := estimator.New().Fit(train, pick(labels, trainIdx))
	if err != nil {
		return Result{}, fmt.Errorf("fit model: %w", err)
	}

	predictions, err := model.Predict(eval)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate model: %w", err)
	}
	mae := MeanAbsoluteError(pick(labels, evalIdx), predictions)
	s.logger.Info("Model MAE on eval set",
		zap.Float64("mae", mae),
		zap.Int("train_rows", len(trainIdx)),
		zap.Int("eval_rows", len(evalIdx)),
	)
	if s.recorder != nil {
		s.recorder.TrainingRows(len(trainIdx), len(evalIdx))
		s.recorder.EvalMAE(mae)
	}
	if s.opts.MaxMAE > 0 && mae > s.opts.MaxMAE {
		return Result{}, fmt.Errorf("eval MAE %.2f exceeds limit %.2f: %w", mae, s.opts.MaxMAE, domain.ErrInvalidInput)
	}

	blob, err := model.MarshalBinary()
	if err != nil {
		return Result{}, fmt.Errorf("serialize model: %w", err)
	}
	if err := s.saver.Save(ctx, modelOutput, blob); err != nil {
		return Result{}, fmt.Errorf("save model: %w", err)
	}

	return Result{TrainRows: len(trainIdx), EvalRows: len(evalIdx), MAE: mae}, nil
}

// Labels extracts the numeric target column.
func Labels(data *frame.Frame) ([]float64, error) {
	col, ok := data.Column(TargetColumn)
	if !ok {
		return nil, domain.NewMissingColumn(TargetColumn)
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := frame.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("row %d: %s %v is not a number: %w", i, TargetColumn, v, domain.ErrInvalidInput)
		}
		out[i] = f
	}
	return out, nil
}

// Split shuffles row indexes and holds out ceil(n*ratio) of them for eval.
// A zero seed draws from the global source.
func Split(n int, ratio float64, seed uint64) (train, eval []int, err error) {
	if n == 0 {
		return nil, nil, fmt.Errorf("split: %w", domain.ErrEmptyInput)
	}
	nEval := int(math.Ceil(float64(n) * ratio))
	if nEval < 1 || nEval >= n {
		return nil, nil, fmt.Errorf("split %d rows at ratio %v leaves an empty partition: %w", n, ratio, domain.ErrInvalidInput)
	}

	var perm []int
	if seed == 0 {
		perm = rand.Perm(n)
	} else {
		perm = rand.New(rand.NewPCG(seed, seed)).Perm(n)
	}
	return perm[nEval:], perm[:nEval], nil
}

func pick(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}
