// Package inference scores a dataset file and writes the predictions next to
// the input columns.
package inference

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
	"github.com/kailas-cloud/housepipe/internal/estimator"
)

// TaskName labels metrics of this task.
const TaskName = "infer"

// TargetColumn is dropped from the model input when present.
const TargetColumn = "SalePrice"

// Request describes one inference run.
type Request struct {
	EvalDataset       string
	ModelPath         string
	PredictionsOutput string
}

// Service runs file-based inference.
type Service struct {
	artifacts ArtifactLoader
	files     TableFiles
	recorder  Recorder
	logger    *zap.Logger
}

// New creates an inference service. recorder can be nil.
func New(artifacts ArtifactLoader, files TableFiles, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{artifacts: artifacts, files: files, recorder: recorder, logger: logger}
}

// Run loads the model and the dataset, predicts every row and writes the
// dataset with an added PredictedSalePrice column. It returns the row count.
func (s *Service) Run(ctx context.Context, req Request) (int, error) {
	s.logger.Info("Loading model", zap.String("path", req.ModelPath))
	blob, err := s.artifacts.Load(ctx, req.ModelPath)
	if err != nil {
		return 0, fmt.Errorf("load model: %w", err)
	}
	model, err := estimator.Load(blob)
	if err != nil {
		return 0, fmt.Errorf("load model %s: %w", req.ModelPath, err)
	}

	s.logger.Info("Loading dataset", zap.String("path", req.EvalDataset))
	data, err := s.files.Read(ctx, req.EvalDataset)
	if err != nil {
		return 0, fmt.Errorf("read dataset: %w", err)
	}

	features := data
	if data.Has(TargetColumn) {
		s.logger.Info("Dropping target column", zap.String("column", TargetColumn))
		features = data.Drop(TargetColumn)
	}

	predictions, err := model.Predict(features)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RowsPredicted(TaskName, len(predictions))
	}

	out := data.Clone()
	if err := prediction.Attach(out, predictions); err != nil {
		return 0, err
	}

	s.logger.Info("Saving predictions", zap.String("path", req.PredictionsOutput), zap.Int("rows", out.Len()))
	if err := s.files.Write(ctx, req.PredictionsOutput, out); err != nil {
		return 0, fmt.Errorf("write predictions: %w", err)
	}
	return out.Len(), nil
}
