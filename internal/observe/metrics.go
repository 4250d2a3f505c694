// Package observe records lipsync OpenTelemetry metrics.
//
// Instruments are created from a metric.MeterProvider; DefaultMetrics uses the
// global provider, which is a no-op until the host process installs one.
// Tests should build their own Metrics with NewMetrics and an SDK reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lipsync"

// Metrics holds the pipeline instruments. Safe for concurrent use.
type Metrics struct {
	// Jobs counts finished generation jobs. Attributes: tier, outcome.
	Jobs metric.Int64Counter

	// StageDuration tracks per-stage latency. Attribute: stage.
	StageDuration metric.Float64Histogram

	// InferenceBatches counts model calls. Attribute: status.
	InferenceBatches metric.Int64Counter
}

// stageBuckets are in seconds; model loads and long videos reach minutes.
var stageBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Jobs, err = m.Int64Counter("lipsync.jobs",
		metric.WithDescription("Finished generation jobs by tier and outcome."),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("lipsync.stage.duration",
		metric.WithDescription("Latency of pipeline stages."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceBatches, err = m.Int64Counter("lipsync.inference.batches",
		metric.WithDescription("Model inference calls by status."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics backed by the global
// meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordJob counts a finished job.
func (m *Metrics) RecordJob(ctx context.Context, tier, outcome string) {
	if m == nil {
		return
	}
	m.Jobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("outcome", outcome),
	))
}

// RecordStage records how long stage took since started.
func (m *Metrics) RecordStage(ctx context.Context, stage string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, time.Since(started).Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordBatch counts one inference call.
func (m *Metrics) RecordBatch(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.InferenceBatches.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
