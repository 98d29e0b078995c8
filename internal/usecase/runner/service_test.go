package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/housepipe/internal/domain"
	"github.com/kailas-cloud/housepipe/internal/domain/pipeline"
)

// --- Mocks ---

type call struct {
	cmd  string
	args []string
}

type mockSteps struct {
	calls []call
	fail  map[string]error
}

func (m *mockSteps) fn(cmd string) StepFunc {
	return func(_ context.Context, args []string) error {
		m.calls = append(m.calls, call{cmd: cmd, args: args})
		return m.fail[cmd]
	}
}

func (m *mockSteps) all() map[string]StepFunc {
	return map[string]StepFunc{
		pipeline.StepTrain:        m.fn(pipeline.StepTrain),
		pipeline.StepBatchPredict: m.fn(pipeline.StepBatchPredict),
	}
}

type mockRecorder struct {
	tasks []string
	errs  []error
}

func (m *mockRecorder) Observe(task string, _ time.Time, err error) {
	m.tasks = append(m.tasks, task)
	m.errs = append(m.errs, err)
}

func compiled(t *testing.T) *pipeline.IR {
	t.Helper()
	ir, err := pipeline.Compile(pipeline.HousePrice(pipeline.HousePriceParams{
		Root:            "/tmp/pipeline_root/",
		Image:           "img:1",
		Input:           "p.d.in",
		Output:          "p.d.out",
		Project:         "p",
		Disposition:     "WRITE_APPEND",
		MaxRowsPerChunk: 10,
	}))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return ir
}

func job(ir *pipeline.IR, id string) pipeline.Job {
	j := pipeline.NewJob(ir, pipeline.HousePriceRunName, "", pipeline.JobTarget{})
	j.ID = id
	return j
}

func TestRun_HandsOffArtifact(t *testing.T) {
	ir := compiled(t)
	steps := &mockSteps{}
	rec := &mockRecorder{}
	svc := New(steps.all(), rec, zap.NewNop())

	res, err := svc.Run(context.Background(), ir, job(ir, "run-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantModel := "/tmp/pipeline_root/run-1/train/model"
	if len(steps.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(steps.calls))
	}
	if steps.calls[0].cmd != pipeline.StepTrain || steps.calls[0].args[1] != wantModel {
		t.Errorf("unexpected train call %+v", steps.calls[0])
	}
	if steps.calls[1].cmd != pipeline.StepBatchPredict || steps.calls[1].args[1] != wantModel {
		t.Errorf("unexpected batch call %+v", steps.calls[1])
	}
	if res.RunID != "run-1" || len(res.Steps) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Artifacts["train.model"] != wantModel {
		t.Errorf("expected artifact %q, got %v", wantModel, res.Artifacts)
	}
	if len(rec.tasks) != 2 || rec.tasks[0] != "pipeline:train" || rec.errs[0] != nil {
		t.Errorf("unexpected observations %v %v", rec.tasks, rec.errs)
	}
}

func TestRun_StopsOnFailure(t *testing.T) {
	ir := compiled(t)
	boom := errors.New("boom")
	steps := &mockSteps{fail: map[string]error{pipeline.StepTrain: boom}}
	rec := &mockRecorder{}
	svc := New(steps.all(), rec, zap.NewNop())

	_, err := svc.Run(context.Background(), ir, job(ir, "run-2"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(steps.calls) != 1 {
		t.Errorf("expected batch-predict to be skipped, got %d calls", len(steps.calls))
	}
	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], boom) {
		t.Errorf("expected failed observation, got %v", rec.errs)
	}
}

func TestRun_MissingImplementation(t *testing.T) {
	ir := compiled(t)
	steps := &mockSteps{}
	svc := New(map[string]StepFunc{pipeline.StepTrain: steps.fn(pipeline.StepTrain)}, nil, zap.NewNop())

	_, err := svc.Run(context.Background(), ir, job(ir, "run-3"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(steps.calls) != 0 {
		t.Errorf("expected nothing to run, got %d calls", len(steps.calls))
	}
}

func TestRun_NoRoot(t *testing.T) {
	ir := compiled(t)
	ir.Pipeline.Root = ""
	j := job(ir, "run-4")
	j.PipelineRoot = ""

	steps := &mockSteps{}
	_, err := New(steps.all(), nil, zap.NewNop()).Run(context.Background(), ir, j)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ir := compiled(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := &mockSteps{}
	_, err := New(steps.all(), nil, zap.NewNop()).Run(ctx, ir, job(ir, "run-5"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(steps.calls) != 0 {
		t.Errorf("expected nothing to run, got %d calls", len(steps.calls))
	}
}

func TestArtifactPath(t *testing.T) {
	got := ArtifactPath("valkey://runs/", "r", pipeline.ArtifactRef{Step: "train", Artifact: "model"})
	if got != "valkey://runs/r/train/model" {
		t.Errorf("unexpected path %q", got)
	}
}
