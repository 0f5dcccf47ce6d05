package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/routewx/internal/config"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/pkg/logger"
)

// Router wires the API handlers into an HTTP handler tree
type Router struct {
	handler *Handler
	config  *config.Config
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewRouter creates a new API router. metrics may be nil.
func NewRouter(handler *Handler, cfg *config.Config, metrics *observability.Metrics, log *logger.Logger) *Router {
	return &Router{
		handler: handler,
		config:  cfg,
		metrics: metrics,
		logger:  log.Named("api-router"),
	}
}

// Routes returns the root handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(rt.cors)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/config", rt.handler.GetConfig)

		r.Route("/forecast", func(r chi.Router) {
			r.Get("/", rt.handler.GetForecast)
			r.Get("/airports/{origin}/{destination}", rt.handler.GetAirportForecast)
		})

		r.Route("/airports", func(r chi.Router) {
			r.Get("/search", rt.handler.SearchAirports)
			r.Get("/{code}", rt.handler.GetAirport)
		})

		r.Route("/aircraft", func(r chi.Router) {
			r.Get("/", rt.handler.ListAircraft)
			r.Get("/{code}", rt.handler.GetAircraft)
		})
	})

	return r
}

// requestLogger logs each request and records its metrics under the matched
// route pattern
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		if rt.metrics != nil {
			rt.metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			rt.metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		}

		fields := []logger.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", elapsed),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		}
		if status >= http.StatusInternalServerError {
			rt.logger.Warn("Request failed", fields...)
			return
		}
		rt.logger.Debug("Request served", fields...)
	})
}

// cors answers preflight requests and sets the allow-origin header for the
// configured origins. "*" allows any origin.
func (rt *Router) cors(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool)
	for _, o := range rt.config.Server.CORSAllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-Id")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
