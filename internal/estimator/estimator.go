// Package estimator implements the house price model: a fixed feature
// transformation followed by linear regression.
//
// An Estimator starts Unfitted. Fit moves it to Fitted, which carries the
// frozen state (encoder classes, LotFrontage mean, coefficients) that every
// later Predict and Transform call uses.
package estimator

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
)

// State is the lifecycle of an estimator: Unfitted or Fitted.
type State interface {
	isState()
}

// Unfitted is the state of a new estimator.
type Unfitted struct{}

// Fitted carries the state learned by Fit.
type Fitted struct {
	encoder      *labelEncoder
	meanFrontage float64
	model        linearModel
}

func (Unfitted) isState() {}
func (Fitted) isState()   {}

// Coefficients returns the regression weights in FeatureColumns order.
func (f Fitted) Coefficients() []float64 {
	out := make([]float64, len(f.model.coef))
	copy(out, f.model.coef)
	return out
}

// Intercept returns the regression intercept.
func (f Fitted) Intercept() float64 { return f.model.intercept }

// SaleTypeClasses returns the encoder classes; a class's code is its index.
func (f Fitted) SaleTypeClasses() []string { return f.encoder.classList() }

// MeanLotFrontage returns the fill value for missing LotFrontage.
func (f Fitted) MeanLotFrontage() float64 { return f.meanFrontage }

// Estimator predicts house prices from raw records.
type Estimator struct {
	state State
}

// New creates an unfitted estimator.
func New() *Estimator {
	return &Estimator{state: Unfitted{}}
}

// State returns the current lifecycle state.
func (e *Estimator) State() State { return e.state }

// IsFitted reports whether Fit has completed.
func (e *Estimator) IsFitted() bool {
	_, ok := e.state.(Fitted)
	return ok
}

// Fit learns the SaleType encoder and the LotFrontage mean from raw, then
// fits the regression on the transformed features. A failed Fit leaves the
// previous state untouched.
func (e *Estimator) Fit(raw *frame.Frame, labels []float64) (*Estimator, error) {
	if raw.Len() == 0 {
		return nil, fmt.Errorf("fit: %w", domain.ErrEmptyInput)
	}
	if len(labels) != raw.Len() {
		return nil, fmt.Errorf("fit: %d labels for %d rows: %w", len(labels), raw.Len(), domain.ErrInvalidInput)
	}
	for i, y := range labels {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("fit: label %d is not finite: %w", i, domain.ErrInvalidInput)
		}
	}
	for _, c := range FeatureColumns {
		if !raw.Has(c) {
			return nil, fmt.Errorf("fit: %w", domain.NewMissingColumn(c))
		}
	}

	enc := fitLabelEncoder(stringColumn(raw, ColSaleType))

	_, observed := numericColumn(raw, ColLotFrontage)
	if len(observed) == 0 {
		return nil, fmt.Errorf("fit: %s has no observed values: %w", ColLotFrontage, domain.ErrInvalidInput)
	}
	meanFrontage := mean(observed)

	x, err := transform(raw, enc, meanFrontage)
	if err != nil {
		return nil, fmt.Errorf("fit: transform: %w", err)
	}
	model, err := fitLinear(x, labels)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	e.state = Fitted{encoder: enc, meanFrontage: meanFrontage, model: model}
	return e, nil
}

// Transform returns the feature frame for raw using the fitted state.
func (e *Estimator) Transform(raw *frame.Frame) (*frame.Frame, error) {
	st, ok := e.state.(Fitted)
	if !ok {
		return nil, domain.ErrNotFitted
	}
	x, err := transform(raw, st.encoder, st.meanFrontage)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	return featureFrame(x), nil
}

// Predict returns one record per input row.
func (e *Estimator) Predict(raw *frame.Frame) ([]prediction.Record, error) {
	st, ok := e.state.(Fitted)
	if !ok {
		return nil, domain.ErrNotFitted
	}
	x, err := transform(raw, st.encoder, st.meanFrontage)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	prices := st.model.predict(x)
	out := make([]prediction.Record, len(prices))
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("predict: row %d: price overflows: %w", i, domain.ErrInvalidInput)
		}
		out[i] = prediction.New(p)
	}
	return out, nil
}
