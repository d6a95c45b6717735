package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exportTimeout = 5 * time.Second

// Config controls the OTLP exporters of one process.
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	SamplerRatio     float64
	MetricsInterval  time.Duration
}

// LoadConfig reads the OTEL_* environment. defaultService names the
// process when OTEL_SERVICE_NAME is unset, so the API, the CLI and the
// reconcile job report as separate services.
func LoadConfig(defaultService string) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("OTEL_SERVICE_NAME", defaultService)
	v.SetDefault("OTEL_SERVICE_NAMESPACE", "stem-cell-registry")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_TRACES_SAMPLER", "always_on")
	v.SetDefault("OTEL_TRACES_SAMPLER_ARG", 0.1)
	v.SetDefault("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second)

	interval := v.GetDuration("OTEL_METRICS_EXPORT_INTERVAL")
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return Config{
		ServiceName:      v.GetString("OTEL_SERVICE_NAME"),
		ServiceNamespace: v.GetString("OTEL_SERVICE_NAMESPACE"),
		ServiceVersion:   v.GetString("OTEL_SERVICE_VERSION"),
		Environment:      v.GetString("ENVIRONMENT"),
		OTLPEndpoint:     v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracesSampler:    v.GetString("OTEL_TRACES_SAMPLER"),
		SamplerRatio:     v.GetFloat64("OTEL_TRACES_SAMPLER_ARG"),
		MetricsInterval:  interval,
	}
}

// Provider owns the tracer and meter providers installed as globals.
// Either may be nil when its exporter could not be created.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	logger         *zap.Logger
}

// InitProvider installs the global tracer and meter providers. An
// unreachable collector is logged and leaves that signal disabled; only a
// broken resource definition is returned as an error.
func InitProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	logger.Info("initializing OpenTelemetry",
		zap.String("service", cfg.ServiceName),
		zap.String("endpoint", cfg.OTLPEndpoint),
	)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{logger: logger}

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		logger.Warn("continuing without distributed tracing", zap.Error(err))
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		logger.Warn("continuing without metrics export", zap.Error(err))
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func newSampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(cfg.SamplerRatio)
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio))
	default:
		return trace.AlwaysSample()
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(newSampler(cfg)),
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(exportTimeout),
			trace.WithMaxExportBatchSize(512),
		),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// Shutdown flushes both providers and returns every error they reported.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down OpenTelemetry providers")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			p.logger.Error("error shutting down tracer provider", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			p.logger.Error("error shutting down meter provider", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
