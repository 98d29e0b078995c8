// Package batchpredict scores a warehouse table and writes the predictions
// to another table.
package batchpredict

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/batch"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
	"github.com/kailas-cloud/housepipe/internal/estimator"
)

// TaskName labels metrics of this task.
const TaskName = "batch-predict"

// NullTokens are input values treated as missing.
var NullTokens = []string{"NA", "N/A", "na", "null", "NULL", ""}

// ZipcodeColumn is added with DefaultZipcode when the input lacks it.
const (
	ZipcodeColumn  = "zipcode"
	DefaultZipcode = "00000"
)

// Request describes one batch prediction run.
type Request struct {
	ModelPath       string
	Input           table.ID
	Output          table.ID
	Project         string
	Disposition     table.WriteDisposition
	MaxRowsPerChunk int
}

// Result summarizes a run. Zero rows means the input was empty.
type Result struct {
	Rows   int
	Chunks int
}

// Service runs batch predictions.
type Service struct {
	artifacts ArtifactLoader
	warehouse Warehouse
	recorder  Recorder
	logger    *zap.Logger
}

// New creates a batch prediction service. recorder can be nil.
func New(artifacts ArtifactLoader, warehouse Warehouse, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{artifacts: artifacts, warehouse: warehouse, recorder: recorder, logger: logger}
}

// Run scores req.Input and loads the result into req.Output. An empty input
// table is logged and reported as success with zero rows.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if req.MaxRowsPerChunk == 0 {
		req.MaxRowsPerChunk = batch.DefaultMaxRowsPerChunk
	}
	if req.Disposition == "" {
		req.Disposition = table.WriteTruncate
	}
	log := s.logger.With(
		zap.String("project", req.Project),
		zap.Stringer("input", req.Input),
		zap.Stringer("output", req.Output),
	)

	blob, err := s.artifacts.Load(ctx, req.ModelPath)
	if err != nil {
		return Result{}, fmt.Errorf("load model: %w", err)
	}
	model, err := estimator.Load(blob)
	if err != nil {
		return Result{}, fmt.Errorf("load model %s: %w", req.ModelPath, err)
	}

	if err := s.warehouse.EnsureDataset(ctx, req.Output); err != nil {
		return Result{}, err
	}

	data, err := s.warehouse.Read(ctx, req.Input)
	if err != nil {
		return Result{}, fmt.Errorf("read input: %w", err)
	}
	if data.Len() == 0 {
		log.Warn("Input table is empty, nothing to predict", zap.Error(domain.ErrEmptyInput))
		return Result{}, nil
	}

	data.ReplaceTokens(NullTokens...)
	if !data.Has(ZipcodeColumn) {
		zip := make([]any, data.Len())
		for i := range zip {
			zip[i] = DefaultZipcode
		}
		if err := data.SetColumn(ZipcodeColumn, zip); err != nil {
			return Result{}, fmt.Errorf("add %s: %w", ZipcodeColumn, err)
		}
	}

	predictions, err := model.Predict(data)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RowsPredicted(TaskName, len(predictions))
	}

	out := data.Clone()
	if err := prediction.Attach(out, predictions); err != nil {
		return Result{}, err
	}
	if cols := out.StringifyObjects(); len(cols) > 0 {
		log.Debug("Object columns cast to string", zap.Strings("columns", cols))
	}

	chunks, err := batch.Plan(out.Len(), req.MaxRowsPerChunk, req.Disposition)
	if err != nil {
		return Result{}, err
	}
	schema := table.SchemaOf(out)
	for _, c := range chunks {
		n, err := s.warehouse.Load(ctx, req.Output, schema, out.Slice(c.Start, c.End), c.Disposition)
		if err != nil {
			return Result{}, fmt.Errorf("load chunk %d/%d: %w", c.Index+1, len(chunks), err)
		}
		if s.recorder != nil {
			s.recorder.ChunkWritten()
		}
		log.Info("Loaded chunk",
			zap.Int("chunk", c.Index+1),
			zap.Int("chunks", len(chunks)),
			zap.Int64("rows", n),
			zap.String("write_disposition", string(c.Disposition)),
		)
	}

	log.Info("Predictions saved", zap.Int("rows", out.Len()))
	return Result{Rows: out.Len(), Chunks: len(chunks)}, nil
}
