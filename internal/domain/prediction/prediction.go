// Package prediction holds the output rows of an estimator.
package prediction

import (
	"fmt"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// Record is a single prediction.
// Info is always nil; the field is kept for the output contract.
type Record struct {
	Price   float64 `json:"price"`
	IsValid bool    `json:"is_valid"`
	Info    *string `json:"info"`
}

// New creates a record. IsValid is true iff price > 0.
func New(price float64) Record {
	return Record{Price: price, IsValid: price > 0}
}

// Prices extracts the price column.
func Prices(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Price
	}
	return out
}

// OutputColumn names the predicted price column added to scored tables.
const OutputColumn = "PredictedSalePrice"

// Attach adds the predicted prices to f as OutputColumn, replacing an
// existing column of that name.
func Attach(f *frame.Frame, records []Record) error {
	vals := make([]any, len(records))
	for i, r := range records {
		vals[i] = r.Price
	}
	if err := f.SetColumn(OutputColumn, vals); err != nil {
		return fmt.Errorf("attach predictions: %w", err)
	}
	return nil
}
