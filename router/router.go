// Package router assembles the HTTP edge: the middleware chain and the
// core routes (availability, recurring series, route optimisation, and
// service-area lookup) plus health, metrics, and documentation endpoints.
package router

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/barkbox/walkmarket/config"
	"github.com/barkbox/walkmarket/core"
	"github.com/barkbox/walkmarket/handler"
	wmmw "github.com/barkbox/walkmarket/middleware"
	"github.com/barkbox/walkmarket/observability"
)

// NewRouter returns a configured chi Router with the full middleware chain
// and every API route mounted. metrics and tracer may be nil.
func NewRouter(cfg *config.Config, appLogger zerolog.Logger, registry *core.Registry, metrics *observability.Metrics, tracer *observability.Tracer) http.Handler {
	r := chi.NewRouter()

	// --- Middleware chain (order matters) ---
	// 1. CORS — must be first so preflight responses succeed.
	r.Use(wmmw.CORSMiddleware([]string{"*"}))

	// 2. Security headers.
	r.Use(wmmw.SecurityHeadersMiddleware)

	// 3. Request ID injection (chi built-in).
	r.Use(chimw.RequestID)

	// 4. Panic recovery.
	r.Use(chimw.Recoverer)

	// 5. Request logger.
	r.Use(mwRequestLogger(appLogger))

	if tracer != nil {
		r.Use(observability.TracingMiddleware(tracer))
	}

	// 6. Body size limit.
	r.Use(mwMaxBodySize(cfg.MaxBodyBytes))

	// --- Health endpoints (no auth required) ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"walkmarket-availability"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"walkmarket-availability"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"walkmarket-availability"}`))
	})

	if metrics != nil {
		r.Get("/metrics", metrics.Handler())
	}

	r.Get("/openapi.json", handler.OpenAPIHandler())
	r.Get("/docs", handler.SwaggerUIHandler())

	// --- API routes (auth + rate limiting required) ---
	availabilityHandler := handler.NewAvailabilityHandler(registry)
	seriesHandler := handler.NewSeriesHandler(registry)
	routeHandler := handler.NewRouteHandler(registry)
	serviceAreaHandler := handler.NewServiceAreaHandler(registry)

	authMW := wmmw.NewAuthMiddleware(appLogger, cfg.APIKeyHeader)
	rateLimiter := wmmw.NewRateLimiter(appLogger, cfg.RateLimitEnabled, cfg.RateLimitRPM, cfg.RateLimitBurst)
	timeoutMW := wmmw.NewTimeoutMiddleware(appLogger, cfg)
	concurrencyGuard := wmmw.NewConcurrencyGuard(4, cfg.DefaultTimeout, appLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW.Handler)
		r.Use(rateLimiter.Handler)
		r.Use(timeoutMW.Handler)
		r.Use(concurrencyGuard.Middleware)

		r.Get("/availability", availabilityHandler.ServeHTTP)
		r.Post("/recurring-series", seriesHandler.Create)
		r.Post("/recurring-series/{id}/cancel", seriesHandler.Cancel)
		r.Post("/route", routeHandler.ServeHTTP)
		r.Get("/service-area", serviceAreaHandler.ServeHTTP)
	})

	return r
}

// mwMaxBodySize returns middleware that limits the request body size.
func mwMaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024 // default 1MB
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			max := maxBytes
			if v := os.Getenv("WALKMARKET_MAX_BODY_BYTES"); v != "" {
				if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
					max = parsed
				}
			}

			if r.ContentLength > 0 && r.ContentLength > max {
				http.Error(w, `{"error":"request_too_large","message":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

func mwRequestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			dur := time.Since(start)
			reqID := chimw.GetReqID(r.Context())
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", reqID).
				Int("status", rw.Status()).
				Dur("duration", dur).
				Msg("request completed")
		})
	}
}
