package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordsWorkflowInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRegistryCall(ctx, "creating patient", 201, 12)
	m.RecordRegistryCall(ctx, "acquire_token", 0, 3)
	m.RecordSyncOperation(ctx, "create_patient", true)
	m.RecordReconcileOutcome(ctx, "updated")
	m.RecordReconcileOutcome(ctx, "skipped")
	m.RecordReconcileOutcome(ctx, "skipped")

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["registry_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["sync_operations_total"]))
	assert.Equal(t, int64(3), sumOf(t, got["reconcile_patients_total"]))

	_, ok := got["registry_request_duration_milliseconds"]
	assert.True(t, ok)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_METRICS_EXPORT_INTERVAL", "10s")

	cfg := LoadConfig("registry-sync")
	assert.Equal(t, "registry-sync", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "10s", cfg.MetricsInterval.String())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "reconcile-nightly")
	t.Setenv("OTEL_TRACES_SAMPLER", "traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	t.Setenv("OTEL_METRICS_EXPORT_INTERVAL", "bogus")

	cfg := LoadConfig("registry-reconcile")
	assert.Equal(t, "reconcile-nightly", cfg.ServiceName)
	assert.Equal(t, 0.25, cfg.SamplerRatio)
	assert.Equal(t, 30*time.Second, cfg.MetricsInterval)
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		sampler string
		want    string
	}{
		{"always_on", "AlwaysOnSampler"},
		{"", "AlwaysOnSampler"},
		{"always_off", "AlwaysOffSampler"},
		{"traceidratio", "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		t.Run(tc.sampler, func(t *testing.T) {
			s := newSampler(Config{TracesSampler: tc.sampler, SamplerRatio: 0.5})
			assert.Equal(t, tc.want, s.Description())
		})
	}
}
