package inference

import (
	"context"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// ArtifactLoader reads a serialized model.
type ArtifactLoader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// TableFiles reads datasets and writes prediction files.
type TableFiles interface {
	Read(ctx context.Context, path string) (*frame.Frame, error)
	Write(ctx context.Context, path string, f *frame.Frame) error
}

// Recorder receives inference metrics.
type Recorder interface {
	RowsPredicted(task string, n int)
}
