package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epw-platform/internal/services"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter wires every route. weather may be nil when the server runs
// without a database.
func NewRouter(files *FileHandler, weather *WeatherHandler, db HealthChecker, catalog *services.Catalog, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestID, instrument(metricsCollector))

	files.RegisterRoutes(router)
	if weather != nil {
		weather.RegisterRoutes(router)
	}

	health := &healthHandler{base: base{logger: logger, metrics: metricsCollector}, db: db, catalog: catalog}
	router.HandleFunc("/health", health.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/api/docs", SwaggerUI).Methods(http.MethodGet)
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metricsCollector.Registry, promhttp.HandlerOpts{}))
	return router
}

// routeName is the matched path template, so metrics do not carry IDs.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(m *metrics.Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			endpoint := routeName(r)
			m.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			m.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
		})
	}
}

type healthHandler struct {
	base
	db      HealthChecker
	catalog *services.Catalog
}

// HealthCheck handles GET /health
func (h *healthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"files":     h.catalog.Len(),
	}
	code := http.StatusOK
	if h.db != nil {
		status["database"] = "ok"
		if err := h.db.HealthCheck(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}
