package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/WailSalutem-Health-Care/registry-sync"

// Metrics holds all custom metrics for the service
type Metrics struct {
	// Registry metrics
	RegistryRequestsTotal metric.Int64Counter
	RegistryDurationMs    metric.Float64Histogram

	// Workflow metrics
	SyncOperationsTotal   metric.Int64Counter
	ReconcilePatientTotal metric.Int64Counter

	// Operator API metrics
	HTTPRequestsTotal       metric.Int64Counter
	HTTPDurationMs          metric.Float64Histogram
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics registers all instruments on the global meter provider.
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(meterName))
}

// NewMetrics registers all instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	registryRequestsTotal, err := meter.Int64Counter(
		"registry_requests_total",
		metric.WithDescription("Total number of identity and registry API calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	registryDurationMs, err := meter.Float64Histogram(
		"registry_request_duration_milliseconds",
		metric.WithDescription("Identity and registry API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	syncOperationsTotal, err := meter.Int64Counter(
		"sync_operations_total",
		metric.WithDescription("Total number of patient and search workflow runs"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	reconcilePatientTotal, err := meter.Int64Counter(
		"reconcile_patients_total",
		metric.WithDescription("Registry patients visited by the reconciler, by outcome"),
		metric.WithUnit("{patient}"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	permissionCheckDuration, err := meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RegistryRequestsTotal:   registryRequestsTotal,
		RegistryDurationMs:      registryDurationMs,
		SyncOperationsTotal:     syncOperationsTotal,
		ReconcilePatientTotal:   reconcilePatientTotal,
		HTTPRequestsTotal:       httpRequestsTotal,
		HTTPDurationMs:          httpDurationMs,
		AuthFailuresTotal:       authFailuresTotal,
		PermissionCheckDuration: permissionCheckDuration,
	}, nil
}

// RecordRegistryCall records one outbound identity or registry request. A
// zero status code means the request never got a response.
func (m *Metrics) RecordRegistryCall(ctx context.Context, operation string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("http_status_code", statusCode),
	)
	m.RegistryRequestsTotal.Add(ctx, 1, attrs)
	m.RegistryDurationMs.Record(ctx, durationMs, attrs)
}

// RecordSyncOperation records a workflow run and whether it succeeded.
func (m *Metrics) RecordSyncOperation(ctx context.Context, operation string, success bool) {
	m.SyncOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// RecordReconcileOutcome records how the reconciler handled one registry patient.
func (m *Metrics) RecordReconcileOutcome(ctx context.Context, outcome string) {
	m.ReconcilePatientTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
