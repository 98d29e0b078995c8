package training

import (
	"math"

	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
)

// MeanAbsoluteError compares labels with predicted prices.
func MeanAbsoluteError(labels []float64, predictions []prediction.Record) float64 {
	if len(labels) == 0 {
		return 0
	}
	var sum float64
	for i, y := range labels {
		sum += math.Abs(y - predictions[i].Price)
	}
	return sum / float64(len(labels))
}
