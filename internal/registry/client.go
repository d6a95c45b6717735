package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

var errInvalidJSON = errors.New("response is not valid JSON")

// API is the set of registry calls the workflows depend on.
type API interface {
	CreatePatient(ctx context.Context, token string, payload PatientPayload) error
	UpdatePatient(ctx context.Context, token string, payload PatientPayload) error
	ListPatients(ctx context.Context, token string, params PageParams) (*PatientList, error)
	CreateSearch(ctx context.Context, token string, req SearchRequest) (*SearchCreated, error)
	ListPatientSearches(ctx context.Context, token string, wmdaID string) (json.RawMessage, error)
	GetSearch(ctx context.Context, token string, searchID string) (json.RawMessage, error)
}

// Client talks to the registry's patient and search API.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	metrics MetricsRecorder
}

var _ API = (*Client)(nil)

// NewClient creates a client for cfg.APIURL. No retries are configured: a
// failed call is terminal for the operation that issued it.
func NewClient(cfg config.RegistryConfig, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", contentTypeJSON)

	return &Client{http: client, logger: logger}
}

// WithMetrics attaches a recorder and returns c.
func (c *Client) WithMetrics(m MetricsRecorder) *Client {
	c.metrics = m
	return c
}

// CreatePatient inserts a new registry patient. Calling it twice creates two patients.
func (c *Client) CreatePatient(ctx context.Context, token string, payload PatientPayload) error {
	c.logger.Debug("patient payload for create", zap.Any("payload", payload))
	_, err := c.do(ctx, "creating patient", http.MethodPost, "/patients", http.StatusCreated,
		func(r *resty.Request) {
			r.SetAuthToken(token).
				SetHeader("Content-Type", contentTypeJSON).
				SetBody(payload)
		})
	return err
}

// UpdatePatient replaces the registry patient addressed by payload.WmdaID.
func (c *Client) UpdatePatient(ctx context.Context, token string, payload PatientPayload) error {
	c.logger.Debug("patient payload for update", zap.Any("payload", payload))
	_, err := c.do(ctx, "updating patient", http.MethodPut, "/patients", http.StatusNoContent,
		func(r *resty.Request) {
			r.SetAuthToken(token).
				SetHeader("Content-Type", contentTypeJSONPatch).
				SetBody(payload)
		})
	return err
}

// ListPatients fetches a single page of the registry's patient collection.
func (c *Client) ListPatients(ctx context.Context, token string, params PageParams) (*PatientList, error) {
	resp, err := c.do(ctx, "retrieving patients", http.MethodGet, "/patients", http.StatusOK,
		func(r *resty.Request) {
			r.SetAuthToken(token).
				SetQueryParams(map[string]string{
					"Limit":          strconv.Itoa(params.Limit),
					"OnlyMyPatients": strconv.FormatBool(params.OnlyMyPatients),
					"Offset":         strconv.Itoa(params.Offset),
				})
		})
	if err != nil {
		return nil, err
	}

	var list PatientList
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, &RegistryError{Operation: "retrieving patients", StatusCode: resp.StatusCode(), Body: resp.String(), Err: err}
	}
	return &list, nil
}

// CreateSearch starts a matching run. The returned SearchID is empty when
// the registry answered 201 without one.
func (c *Client) CreateSearch(ctx context.Context, token string, req SearchRequest) (*SearchCreated, error) {
	resp, err := c.do(ctx, "creating patient search", http.MethodPost, "/searches", http.StatusCreated,
		func(r *resty.Request) {
			r.SetAuthToken(token).
				SetHeader("Content-Type", contentTypeJSON).
				SetBody(req)
		})
	if err != nil {
		return nil, err
	}

	var created SearchCreated
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &created); err != nil {
			return nil, &RegistryError{Operation: "creating patient search", StatusCode: resp.StatusCode(), Body: resp.String(), Err: err}
		}
	}
	return &created, nil
}

// ListPatientSearches returns the raw search list of one registry patient.
func (c *Client) ListPatientSearches(ctx context.Context, token string, wmdaID string) (json.RawMessage, error) {
	return c.getRaw(ctx, "retrieving search results", "/searches/patientSearches/{wmdaId}", token, "wmdaId", wmdaID)
}

// GetSearch returns the raw summary of one search.
func (c *Client) GetSearch(ctx context.Context, token string, searchID string) (json.RawMessage, error) {
	return c.getRaw(ctx, "retrieving search summary", "/searches/{searchId}", token, "searchId", searchID)
}

func (c *Client) getRaw(ctx context.Context, op, path, token, param, value string) (json.RawMessage, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, http.StatusOK,
		func(r *resty.Request) {
			r.SetAuthToken(token).SetPathParam(param, value)
		})
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, &RegistryError{Operation: op, StatusCode: resp.StatusCode(), Body: resp.String(), Err: errInvalidJSON}
	}
	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return raw, nil
}

// do issues one request and checks it against the single status the
// operation accepts.
func (c *Client) do(ctx context.Context, op, method, path string, expect int, build func(*resty.Request)) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "registry "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	req := c.http.R().SetContext(ctx)
	build(req)

	start := time.Now()
	resp, err := req.Execute(method, path)
	duration := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.record(ctx, op, 0, duration)
		span.SetStatus(codes.Error, "request failed")
		c.logger.Error("registry request failed", zap.String("operation", op), zap.Error(err))
		return nil, &RegistryError{Operation: op, Err: err}
	}

	c.record(ctx, op, resp.StatusCode(), duration)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.StatusCode() != expect {
		span.SetStatus(codes.Error, "unexpected status")
		c.logger.Error("error "+op,
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, &RegistryError{Operation: op, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (c *Client) record(ctx context.Context, op string, status int, durationMs float64) {
	if c.metrics != nil {
		c.metrics.RecordRegistryCall(ctx, op, status, durationMs)
	}
}
