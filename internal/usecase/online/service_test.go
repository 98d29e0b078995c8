package online

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/frame"
	"github.com/kailas-cloud/housepipe/internal/domain/prediction"
	"github.com/kailas-cloud/housepipe/internal/estimator"
)

// --- Mocks ---

type mockModel struct {
	fitted bool
	got    *frame.Frame
	err    error
}

func (m *mockModel) IsFitted() bool { return m.fitted }

func (m *mockModel) Predict(raw *frame.Frame) ([]prediction.Record, error) {
	m.got = raw
	if m.err != nil {
		return nil, m.err
	}
	out := make([]prediction.Record, raw.Len())
	for i := range out {
		out[i] = prediction.New(float64(i + 1))
	}
	return out, nil
}

type mockRecorder struct {
	task string
	rows int
}

func (m *mockRecorder) RowsPredicted(task string, n int) { m.task, m.rows = task, m.rows+n }

func TestPredict(t *testing.T) {
	model := &mockModel{fitted: true}
	rec := &mockRecorder{}
	svc := New(model, rec, zap.NewNop())

	out, err := svc.Predict(context.Background(), []map[string]any{
		{"LotArea": 8450.0, "SaleType": "WD"},
		{"LotArea": 9600.0, "zipcode": "10001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[1].Price != 2 {
		t.Errorf("unexpected records %+v", out)
	}
	if rec.task != TaskName || rec.rows != 2 {
		t.Errorf("unexpected recorder %+v", rec)
	}

	want := []string{"LotArea", "SaleType", "zipcode"}
	got := model.got.Columns()
	if len(got) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected columns %v, got %v", want, got)
		}
	}
	if st := model.got.Row(1)[1]; st != nil {
		t.Errorf("expected missing SaleType in row 1, got %v", st)
	}
}

func TestPredict_Errors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		model Model
		rows  []map[string]any
		want  error
	}{
		{"no model", nil, []map[string]any{{"a": 1.0}}, domain.ErrNotFitted},
		{"unfitted", &mockModel{}, []map[string]any{{"a": 1.0}}, domain.ErrNotFitted},
		{"empty", &mockModel{fitted: true}, nil, domain.ErrEmptyInput},
		{"model error", &mockModel{fitted: true, err: boom}, []map[string]any{{"a": 1.0}}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.model, nil, zap.NewNop()).Predict(context.Background(), tt.rows)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPredict_RealEstimator(t *testing.T) {
	train, err := Records([]map[string]any{
		{"LotFrontage": 60.0, "LotArea": 8000.0, "YearBuilt": 2000.0, "SaleType": "WD"},
		{"LotFrontage": 80.0, "LotArea": 9000.0, "YearBuilt": 1990.0, "SaleType": "New"},
		{"LotFrontage": 70.0, "LotArea": 12000.0, "YearBuilt": 1970.0, "SaleType": "WD"},
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	model, err := estimator.New().Fit(train, []float64{200000, 250000, 180000})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	svc := New(model, nil, zap.NewNop())
	_, err = svc.Predict(context.Background(), []map[string]any{
		{"LotFrontage": 60.0, "LotArea": 8000.0, "YearBuilt": 2000.0, "SaleType": "COD"},
	})
	if !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}
