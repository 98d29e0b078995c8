// Package online scores records received over the network with a model
// loaded once at startup.
package online

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
)

// TaskName labels metrics of online scoring.
const TaskName = "serve"

// Service scores batches of records.
type Service struct {
	model    Model
	recorder Recorder
	logger   *zap.Logger
}

// New creates an online scoring service. recorder can be nil.
func New(model Model, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{model: model, recorder: recorder, logger: logger}
}

// IsFitted reports whether the service has a usable model.
func (s *Service) IsFitted() bool {
	return s.model != nil && s.model.IsFitted()
}

// Predict returns one record per input row, in input order.
func (s *Service) Predict(_ context.Context, rows []map[string]any) ([]prediction.Record, error) {
	if !s.IsFitted() {
		return nil, domain.ErrNotFitted
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("predict: %w", domain.ErrEmptyInput)
	}
	data, err := Records(rows)
	if err != nil {
		return nil, err
	}
	out, err := s.model.Predict(data)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RowsPredicted(TaskName, len(out))
	}
	s.logger.Debug("Scored records", zap.Int("rows", len(out)))
	return out, nil
}

// Records lays rows out as a frame. Columns follow first appearance; a key
// missing from a row is a missing value.
func Records(rows []map[string]any) (*frame.Frame, error) {
	var names []string
	seen := make(map[string]bool)
	for _, r := range rows {
		for _, k := range slices.Sorted(maps.Keys(r)) {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	data := make(map[string][]any, len(names))
	for _, name := range names {
		col := make([]any, len(rows))
		for i, r := range rows {
			col[i] = r[name]
		}
		data[name] = col
	}
	f, err := frame.FromColumns(names, data)
	if err != nil {
		return nil, fmt.Errorf("build records: %w", err)
	}
	return f, nil
}
