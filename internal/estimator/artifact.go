package estimator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/housepipe/internal/domain"
)

// ArtifactFormatVersion is bumped whenever the artifact layout changes.
const ArtifactFormatVersion = 1

const artifactModelName = "HousePredictionModel"

// artifact is the serialized form of a fitted estimator.
type artifact struct {
	FormatVersion   int       `json:"format_version"`
	Model           string    `json:"model"`
	Features        []string  `json:"features"`
	Coefficients    []float64 `json:"coefficients"`
	Intercept       float64   `json:"intercept"`
	SaleTypeClasses []string  `json:"sale_type_classes"`
	MeanLotFrontage float64   `json:"mean_lot_frontage"`
}

// MarshalBinary encodes a fitted estimator as an artifact.
func (e *Estimator) MarshalBinary() ([]byte, error) {
	st, ok := e.state.(Fitted)
	if !ok {
		return nil, domain.ErrNotFitted
	}
	a := artifact{
		FormatVersion:   ArtifactFormatVersion,
		Model:           artifactModelName,
		Features:        FeatureColumns,
		Coefficients:    st.model.coef,
		Intercept:       st.model.intercept,
		SaleTypeClasses: st.encoder.classes,
		MeanLotFrontage: st.meanFrontage,
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return data, nil
}

// UnmarshalBinary replaces the estimator state with the one stored in data.
func (e *Estimator) UnmarshalBinary(data []byte) error {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("decode artifact: %w: %w", domain.ErrArtifactLoad, err)
	}
	if err := a.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArtifactLoad, err)
	}
	e.state = Fitted{
		encoder:      newLabelEncoder(a.SaleTypeClasses),
		meanFrontage: a.MeanLotFrontage,
		model:        linearModel{coef: a.Coefficients, intercept: a.Intercept},
	}
	return nil
}

// Load decodes an artifact into a new fitted estimator.
func Load(data []byte) (*Estimator, error) {
	e := New()
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return e, nil
}

func (a *artifact) validate() error {
	if a.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("format version %d, want %d", a.FormatVersion, ArtifactFormatVersion)
	}
	if a.Model != artifactModelName {
		return fmt.Errorf("model %q, want %q", a.Model, artifactModelName)
	}
	if len(a.Features) != len(FeatureColumns) {
		return fmt.Errorf("%d features, want %d", len(a.Features), len(FeatureColumns))
	}
	for i, f := range FeatureColumns {
		if a.Features[i] != f {
			return fmt.Errorf("feature %d is %q, want %q", i, a.Features[i], f)
		}
	}
	if len(a.Coefficients) != len(FeatureColumns) {
		return fmt.Errorf("%d coefficients, want %d", len(a.Coefficients), len(FeatureColumns))
	}
	for _, v := range append([]float64{a.Intercept, a.MeanLotFrontage}, a.Coefficients...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite parameter %v", v)
		}
	}
	if len(a.SaleTypeClasses) == 0 {
		return fmt.Errorf("no sale type classes")
	}
	if !sort.StringsAreSorted(a.SaleTypeClasses) {
		return fmt.Errorf("sale type classes are not sorted")
	}
	for i := 1; i < len(a.SaleTypeClasses); i++ {
		if a.SaleTypeClasses[i] == a.SaleTypeClasses[i-1] {
			return fmt.Errorf("duplicate sale type class %q", a.SaleTypeClasses[i])
		}
	}
	return nil
}
