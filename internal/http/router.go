package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/auth"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/patient"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/search"
)

const serviceName = "registry-sync"

// Metrics is what the router records about requests, authentication and
// permission checks.
type Metrics interface {
	auth.MetricsRecorder
	auth.PermissionMetricsRecorder
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// Services are the workflows exposed by the operator API.
type Services struct {
	Patient   patient.ServiceInterface
	Search    search.ServiceInterface
	Reconcile reconcile.ServiceInterface
}

// Options configure SetupRouter. Metrics may be nil.
type Options struct {
	Verifier     auth.TokenVerifier
	Permissions  auth.Permissions
	Metrics      Metrics
	DefaultLimit int
	Logger       *zap.Logger
}

// SetupRouter initializes all routes for the application
func SetupRouter(svc Services, opts Options) *mux.Router {
	patientHandler := patient.NewHandler(svc.Patient, opts.DefaultLimit)
	searchHandler := search.NewHandler(svc.Search)
	reconcileHandler := reconcile.NewHandler(svc.Reconcile)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(requestMetrics(opts.Metrics))

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + serviceName + `"}`))
	}).Methods("GET")

	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.Middleware(opts.Verifier, opts.Metrics, opts.Logger)(
			auth.RequirePermission(permission, opts.Permissions, opts.Metrics, opts.Logger)(h),
		)
	}

	// Patient synchronization
	r.Handle("/donors/{donorId}/patient/sync",
		protect(auth.PermSync, patientHandler.SyncPatient),
	).Methods("POST")

	r.Handle("/donors/{donorId}/patient",
		protect(auth.PermSync, patientHandler.CreatePatient),
	).Methods("POST")

	r.Handle("/donors/{donorId}/patient",
		protect(auth.PermSync, patientHandler.UpdatePatient),
	).Methods("PUT")

	// Searches
	r.Handle("/donors/{donorId}/searches",
		protect(auth.PermSearch, searchHandler.CreateSearch),
	).Methods("POST")

	r.Handle("/donors/{donorId}/searches",
		protect(auth.PermView, searchHandler.ListSearches),
	).Methods("GET")

	r.Handle("/donors/{donorId}/searches/summary",
		protect(auth.PermView, searchHandler.GetSearchSummary),
	).Methods("GET")

	// Registry-wide operations
	r.Handle("/registry/patients",
		protect(auth.PermView, patientHandler.ListRegistryPatients),
	).Methods("GET")

	r.Handle("/registry/reconcile",
		protect(auth.PermReconcile, reconcileHandler.Reconcile),
	).Methods("POST")

	return r
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}

// requestMetrics records every routed request under its route template.
func requestMetrics(metrics Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.statusCode, float64(time.Since(start).Milliseconds()))
		})
	}
}
