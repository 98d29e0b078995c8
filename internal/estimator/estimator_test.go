package estimator

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

type house struct {
	frontage, area, year, saleType any
}

func houses(t *testing.T, rows ...house) *frame.Frame {
	t.Helper()
	f, err := frame.New(ColLotFrontage, ColLotArea, ColYearBuilt, ColSaleType, "zipcode")
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	for _, r := range rows {
		if err := f.AppendRow(r.frontage, r.area, r.year, r.saleType, "00000"); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return f
}

var trainingHouses = []house{
	{50, 5000, 1990, "WD"},
	{60, 8000, 2005, "New"},
	{70, 6000, 1970, "WD"},
	{80, 10000, 2010, "COD"},
	{65, 7000, 2000, "New"},
	{90, 12000, 1985, "WD"},
}

// linearPrice generates labels that are exactly linear in the features.
func linearPrice(h house) float64 {
	codes := map[string]float64{"COD": 0, "New": 1, "WD": 2}
	age := float64(ReferenceYear - h.year.(int))
	return 10000 +
		1000*float64(h.frontage.(int)) +
		20000*math.Log1p(float64(h.area.(int))) -
		500*age +
		3000*codes[h.saleType.(string)]
}

func fittedEstimator(t *testing.T) *Estimator {
	t.Helper()
	labels := make([]float64, len(trainingHouses))
	for i, h := range trainingHouses {
		labels[i] = linearPrice(h)
	}
	e, err := New().Fit(houses(t, trainingHouses...), labels)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return e
}

func TestPredict_BeforeFit(t *testing.T) {
	e := New()
	raw := houses(t, house{60, 8000, 2005, "WD"})

	if e.IsFitted() {
		t.Fatal("new estimator reports fitted")
	}
	if _, err := e.Predict(raw); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("Predict err = %v, want ErrNotFitted", err)
	}
	if _, err := e.Transform(raw); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("Transform err = %v, want ErrNotFitted", err)
	}
	if _, err := e.MarshalBinary(); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("MarshalBinary err = %v, want ErrNotFitted", err)
	}
	if _, ok := e.State().(Unfitted); !ok {
		t.Errorf("State() = %T, want Unfitted", e.State())
	}
}

func TestFitPredict_SingleRow(t *testing.T) {
	raw := houses(t, house{60, 8000, 2005, "WD"})
	e, err := New().Fit(raw, []float64{200000})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	preds, err := e.Predict(raw)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("got %d predictions, want 1", len(preds))
	}
	if math.Abs(preds[0].Price-200000) > 1e-6 {
		t.Errorf("price = %v, want ~200000", preds[0].Price)
	}
	if !preds[0].IsValid {
		t.Error("is_valid = false, want true")
	}
	if preds[0].Info != nil {
		t.Error("info must be nil")
	}
}

func TestFit_RecoversLinearRelation(t *testing.T) {
	e := fittedEstimator(t)
	preds, err := e.Predict(houses(t, trainingHouses...))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, h := range trainingHouses {
		if want := linearPrice(h); math.Abs(preds[i].Price-want) > 1e-4 {
			t.Errorf("row %d: price = %v, want %v", i, preds[i].Price, want)
		}
	}
	st := e.State().(Fitted)
	if got := st.SaleTypeClasses(); len(got) != 3 || got[0] != "COD" || got[2] != "WD" {
		t.Errorf("classes = %v", got)
	}
	if math.Abs(st.Coefficients()[0]-1000) > 1e-6 {
		t.Errorf("LotFrontage coefficient = %v, want 1000", st.Coefficients()[0])
	}
}

func TestPredict_TrainingDataHasNoUnknownCategory(t *testing.T) {
	e := fittedEstimator(t)
	if _, err := e.Predict(houses(t, trainingHouses...)); errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("unexpected unknown category: %v", err)
	}
}

func TestPredict_RowCountMatchesInput(t *testing.T) {
	e := fittedEstimator(t)
	for n := 0; n <= len(trainingHouses); n++ {
		preds, err := e.Predict(houses(t, trainingHouses[:n]...))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(preds) != n {
			t.Errorf("n=%d: got %d predictions", n, len(preds))
		}
	}
}

func TestPredict_UnseenCategory(t *testing.T) {
	e := fittedEstimator(t)
	_, err := e.Predict(houses(t, house{60, 8000, 2005, "UnseenCategory"}))
	if !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
	var uce *domain.UnknownCategoryError
	if !errors.As(err, &uce) || uce.Value != "UnseenCategory" || uce.Column != ColSaleType {
		t.Errorf("unexpected error detail: %#v", uce)
	}
}

func TestPredict_MissingFrontageUsesFitTimeMean(t *testing.T) {
	e := fittedEstimator(t)
	target := house{nil, 9000, 2000, "WD"}

	alone, err := e.Predict(houses(t, target))
	if err != nil {
		t.Fatalf("Predict alone: %v", err)
	}
	mixed, err := e.Predict(houses(t, target, house{300, 9000, 2000, "WD"}))
	if err != nil {
		t.Fatalf("Predict mixed: %v", err)
	}
	if alone[0].Price != mixed[0].Price {
		t.Errorf("fill depends on batch: %v vs %v", alone[0].Price, mixed[0].Price)
	}

	features, err := e.Transform(houses(t, target))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	col, _ := features.Column(ColLotFrontage)
	if want := e.State().(Fitted).MeanLotFrontage(); col[0] != want {
		t.Errorf("filled LotFrontage = %v, want fit-time mean %v", col[0], want)
	}
	if want := (50.0 + 60 + 70 + 80 + 65 + 90) / 6; math.Abs(e.State().(Fitted).MeanLotFrontage()-want) > 1e-9 {
		t.Errorf("mean = %v, want %v", e.State().(Fitted).MeanLotFrontage(), want)
	}
}

func TestTransform_Features(t *testing.T) {
	e := fittedEstimator(t)
	features, err := e.Transform(houses(t,
		house{"60", 8000, 2005, "WD"},
		house{"n/a", nil, nil, "COD"},
		house{70, 4000, 2005, "New"},
		house{80, 6000, 1999.9, "WD"},
	))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := features.Columns(); len(got) != 4 || got[0] != ColLotFrontage || got[3] != ColSaleType {
		t.Fatalf("columns = %v", got)
	}
	if features.Len() != 4 {
		t.Fatalf("Len() = %d", features.Len())
	}

	frontage, _ := features.Column(ColLotFrontage)
	area, _ := features.Column(ColLotArea)
	age, _ := features.Column(ColYearBuilt)
	code, _ := features.Column(ColSaleType)

	if frontage[0] != 60.0 {
		t.Errorf("string frontage not coerced: %v", frontage[0])
	}
	if frontage[1] != e.State().(Fitted).MeanLotFrontage() {
		t.Errorf("unparseable frontage not filled with mean: %v", frontage[1])
	}
	if area[0] != math.Log1p(8000) {
		t.Errorf("area = %v, want log1p(8000)", area[0])
	}
	// median of the batch's observed areas: 4000, 6000, 8000
	if area[1] != math.Log1p(6000) {
		t.Errorf("missing area = %v, want log1p(6000)", area[1])
	}
	if age[0] != int64(19) {
		t.Errorf("age = %v, want 19", age[0])
	}
	// mode of the batch's observed years is 2005
	if age[1] != int64(19) {
		t.Errorf("missing year age = %v, want 19", age[1])
	}
	if age[3] != int64(25) {
		t.Errorf("fractional year age = %v, want 25", age[3])
	}
	if code[0] != int64(2) || code[1] != int64(0) || code[2] != int64(1) {
		t.Errorf("codes = %v", code)
	}
}

func TestTransform_Deterministic(t *testing.T) {
	e := fittedEstimator(t)
	raw := houses(t, house{nil, nil, 2005, "WD"}, house{60, 7000, nil, "New"}, house{75, 9000, 1999, "WD"})

	a, err := e.Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	b, err := e.Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if a.Len() != raw.Len() {
		t.Errorf("row count %d, want %d", a.Len(), raw.Len())
	}
	for i := 0; i < a.Len(); i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			if ra[j] != rb[j] {
				t.Errorf("row %d col %d differs: %v vs %v", i, j, ra[j], rb[j])
			}
		}
	}
}

func TestTransform_MissingColumn(t *testing.T) {
	e := fittedEstimator(t)
	raw := houses(t, house{60, 8000, 2005, "WD"}).Drop(ColLotArea)

	_, err := e.Predict(raw)
	var mce *domain.MissingColumnError
	if !errors.As(err, &mce) || mce.Column != ColLotArea {
		t.Fatalf("err = %v, want MissingColumnError(LotArea)", err)
	}
}

func TestTransform_NoObservedArea(t *testing.T) {
	e := fittedEstimator(t)
	_, err := e.Predict(houses(t, house{60, nil, 2005, "WD"}))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPredict_NonFiniteInputs(t *testing.T) {
	e := fittedEstimator(t)
	tests := map[string]house{
		"infinite frontage":  {math.Inf(1), 8000, 2005, "WD"},
		"area of minus one":  {60, -1.0, 2005, "WD"},
		"area below minus 1": {60, -2.0, 2005, "WD"},
		"huge year":          {60, 8000, 1e300, "WD"},
		"infinite year":      {60, 8000, math.Inf(-1), "WD"},
		"overflowing price":  {1e308, 8000, 2005, "WD"},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := e.Predict(houses(t, h)); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestPredict_NonDecimalStringIsMissing(t *testing.T) {
	e := fittedEstimator(t)
	got, err := e.Predict(houses(t, house{"Inf", 8000, 2005, "WD"}, house{"0x1p4", 8000, 2005, "WD"}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want, err := e.Predict(houses(t, house{nil, 8000, 2005, "WD"}))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range got {
		if got[i] != want[0] {
			t.Errorf("row %d = %+v, want the imputed prediction %+v", i, got[i], want[0])
		}
	}
}

func TestPredict_MissingSaleTypeEncodedAsNan(t *testing.T) {
	raw := houses(t, house{60, 8000, 2005, nil}, house{70, 9000, 2001, "WD"})
	e, err := New().Fit(raw, []float64{100000, 150000})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	classes := e.State().(Fitted).SaleTypeClasses()
	if len(classes) != 2 || classes[0] != "WD" || classes[1] != "nan" {
		t.Errorf("classes = %v", classes)
	}
	if _, err := e.Predict(houses(t, house{65, 8500, 2003, nil})); err != nil {
		t.Errorf("Predict with missing SaleType: %v", err)
	}
}

func TestFit_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		raw    *frame.Frame
		labels []float64
		want   error
	}{
		{"empty", houses(t), nil, domain.ErrEmptyInput},
		{"label count", houses(t, house{60, 8000, 2005, "WD"}), []float64{1, 2}, domain.ErrInvalidInput},
		{"nan label", houses(t, house{60, 8000, 2005, "WD"}), []float64{math.NaN()}, domain.ErrInvalidInput},
		{"no frontage", houses(t, house{nil, 8000, 2005, "WD"}), []float64{1}, domain.ErrInvalidInput},
		{"missing column", houses(t, house{60, 8000, 2005, "WD"}).Drop(ColSaleType), []float64{1}, domain.ErrMissingColumn},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := New()
			if _, err := e.Fit(tc.raw, tc.labels); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if e.IsFitted() {
				t.Error("failed Fit left the estimator fitted")
			}
		})
	}
}
