package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Task holds the metrics of the batch-style commands (train, batch-predict,
// infer). They live on an explicit registry so one run can be pushed to a
// Pushgateway when the process exits.
type Task struct {
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rows          *prometheus.CounterVec
	chunksWritten prometheus.Counter
	evalMAE       prometheus.Gauge
	datasetRows   *prometheus.GaugeVec
}

// NewTask creates task metrics and registers them on reg.
func NewTask(reg prometheus.Registerer) *Task {
	m := &Task{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housepipe",
			Name:      "task_runs_total",
			Help:      "Task runs by outcome",
		}, []string{"task", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "housepipe",
			Name:      "task_duration_seconds",
			Help:      "Task wall time",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
		}, []string{"task"}),

		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housepipe",
			Name:      "rows_predicted_total",
			Help:      "Rows scored by the model",
		}, []string{"task"}),

		chunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "housepipe",
			Name:      "warehouse_chunks_written_total",
			Help:      "Chunks loaded into the warehouse",
		}),

		evalMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "housepipe",
			Name:      "eval_mean_absolute_error",
			Help:      "Mean absolute error of the last trained model on the eval split",
		}),

		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "housepipe",
			Name:      "training_rows",
			Help:      "Rows in each split of the last training run",
		}, []string{"split"}),
	}

	reg.MustRegister(
		m.runs, m.duration, m.rows,
		m.chunksWritten, m.evalMAE, m.datasetRows,
	)
	return m
}

// Observe records the outcome and duration of a task run.
func (m *Task) Observe(task string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(task, status).Inc()
	m.duration.WithLabelValues(task).Observe(time.Since(started).Seconds())
}

// RowsPredicted adds n scored rows for task.
func (m *Task) RowsPredicted(task string, n int) {
	m.rows.WithLabelValues(task).Add(float64(n))
}

// ChunkWritten counts one warehouse chunk load.
func (m *Task) ChunkWritten() {
	m.chunksWritten.Inc()
}

// EvalMAE records the evaluation error of a training run.
func (m *Task) EvalMAE(v float64) {
	m.evalMAE.Set(v)
}

// TrainingRows records the split sizes of a training run.
func (m *Task) TrainingRows(train, eval int) {
	m.datasetRows.WithLabelValues("train").Set(float64(train))
	m.datasetRows.WithLabelValues("eval").Set(float64(eval))
}

// Push sends everything in g to the Pushgateway at url under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
