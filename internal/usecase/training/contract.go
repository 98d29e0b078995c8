package training

import (
	"context"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// DatasetFetcher downloads the labelled training data.
type DatasetFetcher interface {
	Fetch(ctx context.Context) (*frame.Frame, error)
}

// ArtifactSaver persists a serialized model.
type ArtifactSaver interface {
	Save(ctx context.Context, location string, data []byte) error
}

// Recorder receives training metrics.
type Recorder interface {
	TrainingRows(train, eval int)
	EvalMAE(v float64)
}
