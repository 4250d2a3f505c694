package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordJobAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordJob(ctx, "native", "completed")
	m.RecordJob(ctx, "native", "completed")
	m.RecordJob(ctx, "passthrough", "degraded")

	found := findMetric(collect(t, reader), "lipsync.jobs")
	if found == nil {
		t.Fatal("lipsync.jobs not recorded")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		tier, _ := dp.Attributes.Value(attribute.Key("tier"))
		counts[tier.AsString()] += dp.Value
	}
	if counts["native"] != 2 || counts["passthrough"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordStageHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordStage(context.Background(), "detect", time.Now().Add(-1500*time.Millisecond))

	found := findMetric(collect(t, reader), "lipsync.stage.duration")
	if found == nil {
		t.Fatal("lipsync.stage.duration not recorded")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", found.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("unexpected data points %+v", hist.DataPoints)
	}
	if hist.DataPoints[0].Sum < 1.5 {
		t.Fatalf("expected at least 1.5s, got %v", hist.DataPoints[0].Sum)
	}
}

func TestRecordBatchCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	for range 3 {
		m.RecordBatch(context.Background(), "ok")
	}
	found := findMetric(collect(t, reader), "lipsync.inference.batches")
	if found == nil {
		t.Fatal("lipsync.inference.batches not recorded")
	}
	sum := found.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected data points %+v", sum.DataPoints)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordJob(context.Background(), "native", "completed")
	m.RecordStage(context.Background(), "decode", time.Now())
	m.RecordBatch(context.Background(), "ok")
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Fatal("DefaultMetrics should return the same instance")
	}
}
