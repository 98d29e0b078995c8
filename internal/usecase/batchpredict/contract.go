package batchpredict

import (
	"context"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/table"
)

// ArtifactLoader reads a serialized model.
type ArtifactLoader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// Warehouse reads input tables and loads result tables.
type Warehouse interface {
	EnsureDataset(ctx context.Context, id table.ID) error
	Read(ctx context.Context, id table.ID) (*frame.Frame, error)
	Load(ctx context.Context, id table.ID, schema []table.Field, rows *frame.Frame, d table.WriteDisposition) (int64, error)
}

// Recorder receives batch prediction metrics.
type Recorder interface {
	RowsPredicted(task string, n int)
	ChunkWritten()
}
