package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

// Modelled input columns.
const (
	ColLotFrontage = "LotFrontage"
	ColLotArea     = "LotArea"
	ColYearBuilt   = "YearBuilt"
	ColSaleType    = "SaleType"
)

// ReferenceYear is the year house age is measured from.
const ReferenceYear = 2024

// FeatureColumns is the fixed feature order shared by training and serving.
var FeatureColumns = []string{ColLotFrontage, ColLotArea, ColYearBuilt, ColSaleType}

// missingCategory is the label a missing categorical value is encoded as.
const missingCategory = "nan"

// maxAbsYear bounds YearBuilt to integers a float64 represents exactly.
const maxAbsYear = 1 << 53

// transform maps raw rows onto the feature matrix using frozen fit-time state.
// LotArea and YearBuilt fill values come from the batch itself.
func transform(raw *frame.Frame, enc *labelEncoder, meanFrontage float64) (*mat.Dense, error) {
	for _, c := range FeatureColumns {
		if !raw.Has(c) {
			return nil, domain.NewMissingColumn(c)
		}
	}
	n := raw.Len()
	if n == 0 {
		return nil, nil
	}

	frontage, _ := numericColumn(raw, ColLotFrontage)
	fill(frontage, meanFrontage)

	area, observed := numericColumn(raw, ColLotArea)
	if len(observed) < n {
		if len(observed) == 0 {
			return nil, fmt.Errorf("%s has no observed values to impute from: %w", ColLotArea, domain.ErrInvalidInput)
		}
		fill(area, median(observed))
	}

	years, observed := numericColumn(raw, ColYearBuilt)
	if len(observed) < n {
		if len(observed) == 0 {
			return nil, fmt.Errorf("%s has no observed values to impute from: %w", ColYearBuilt, domain.ErrInvalidInput)
		}
		fill(years, mode(observed))
	}

	codes, err := enc.transform(ColSaleType, stringColumn(raw, ColSaleType))
	if err != nil {
		return nil, err
	}

	x := mat.NewDense(n, len(FeatureColumns), nil)
	for i := 0; i < n; i++ {
		if math.IsInf(years[i], 0) || math.Abs(years[i]) > maxAbsYear {
			return nil, fmt.Errorf("row %d: %s %v is not a year: %w", i, ColYearBuilt, years[i], domain.ErrInvalidInput)
		}
		row := []float64{
			frontage[i],
			math.Log1p(area[i]),
			float64(ReferenceYear - int64(years[i])),
			float64(codes[i]),
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d: %s is not finite: %w", i, FeatureColumns[j], domain.ErrInvalidInput)
			}
		}
		x.SetRow(i, row)
	}
	return x, nil
}

// featureFrame renders a feature matrix as a frame with integer age and code columns.
func featureFrame(x *mat.Dense) *frame.Frame {
	data := make(map[string][]any, len(FeatureColumns))
	var n int
	if x != nil {
		n, _ = x.Dims()
	}
	for j, c := range FeatureColumns {
		col := make([]any, n)
		for i := 0; i < n; i++ {
			v := x.At(i, j)
			if c == ColYearBuilt || c == ColSaleType {
				col[i] = int64(v)
			} else {
				col[i] = v
			}
		}
		data[c] = col
	}
	f, _ := frame.FromColumns(FeatureColumns, data)
	return f
}

// numericColumn coerces a column to floats. Missing cells are NaN; observed
// holds only the parsed values.
func numericColumn(raw *frame.Frame, name string) (vals, observed []float64) {
	col, _ := raw.Column(name)
	vals = make([]float64, len(col))
	for i, v := range col {
		if f, ok := frame.ToFloat(v); ok {
			vals[i] = f
			observed = append(observed, f)
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals, observed
}

func stringColumn(raw *frame.Frame, name string) []string {
	col, _ := raw.Column(name)
	out := make([]string, len(col))
	for i, v := range col {
		if v == nil {
			out[i] = missingCategory
			continue
		}
		out[i] = frame.Format(v)
	}
	return out
}

func fill(vals []float64, with float64) {
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = with
		}
	}
}
