package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/registry-sync/registry")

// MetricsRecorder records the outcome of every identity and registry call.
type MetricsRecorder interface {
	RecordRegistryCall(ctx context.Context, operation string, statusCode int, durationMs float64)
}

// TokenSource hands out bearer tokens for registry calls.
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

// TokenProvider exchanges the configured client credentials for a bearer
// token. Tokens are not cached: every call performs a fresh exchange.
type TokenProvider struct {
	http     *resty.Client
	tenantID string
	form     map[string]string
	logger   *zap.Logger
	metrics  MetricsRecorder
}

var _ TokenSource = (*TokenProvider)(nil)

// NewTokenProvider creates a provider for cfg.IdentityURL.
func NewTokenProvider(cfg config.RegistryConfig, logger *zap.Logger) *TokenProvider {
	client := resty.New().
		SetBaseURL(cfg.IdentityURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &TokenProvider{
		http:     client,
		tenantID: cfg.TenantID,
		form: map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     cfg.ClientID,
			"client_secret": cfg.ClientSecret,
			"resource":      cfg.ResourceID,
		},
		logger: logger,
	}
}

// WithMetrics attaches a recorder and returns p.
func (p *TokenProvider) WithMetrics(m MetricsRecorder) *TokenProvider {
	p.metrics = m
	return p
}

// AcquireToken performs one client-credentials grant. Any non-200 answer
// is returned as *AuthError with the status and body of the response.
func (p *TokenProvider) AcquireToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "registry.AcquireToken",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	start := time.Now()
	resp, err := p.http.R().
		SetContext(ctx).
		SetPathParam("tenantId", p.tenantID).
		SetFormData(p.form).
		Post("/{tenantId}/oauth2/token")
	if err != nil {
		p.record(ctx, 0, start)
		span.SetStatus(codes.Error, "token request failed")
		p.logger.Error("error getting bearer token", zap.Error(err))
		return "", &AuthError{Err: err}
	}
	p.record(ctx, resp.StatusCode(), start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "token request rejected")
		p.logger.Error("error getting bearer token",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return "", &AuthError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		span.SetStatus(codes.Error, "invalid token response")
		return "", &AuthError{StatusCode: resp.StatusCode(), Body: resp.String(), Err: err}
	}
	if result.AccessToken == "" {
		span.SetStatus(codes.Error, "empty token")
		return "", &AuthError{StatusCode: resp.StatusCode(), Body: resp.String(), Err: ErrNoToken}
	}

	span.SetStatus(codes.Ok, "token acquired")
	return result.AccessToken, nil
}

func (p *TokenProvider) record(ctx context.Context, status int, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordRegistryCall(ctx, "acquire_token", status, float64(time.Since(start).Milliseconds()))
	}
}
