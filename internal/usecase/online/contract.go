package online

import (
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
)

// Model scores raw records.
type Model interface {
	Predict(raw *frame.Frame) ([]prediction.Record, error)
	IsFitted() bool
}

// Recorder counts scored rows.
type Recorder interface {
	RowsPredicted(task string, n int)
}
