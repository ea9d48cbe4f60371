package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/okian/rigmatch/pkg/logger"
)

const corsMaxAge = 86400

// RouterOption configures the global middleware stack.
type RouterOption func(*routerConfig)

type routerConfig struct {
	corsOrigins []string
}

// WithCORSOrigins allows browser calls from origins. No origins disables CORS.
func WithCORSOrigins(origins ...string) RouterOption {
	return func(c *routerConfig) {
		for _, o := range origins {
			if o != "" {
				c.corsOrigins = append(c.corsOrigins, o)
			}
		}
	}
}

// NewRouter returns a chi router carrying the global middleware stack.
func NewRouter(opts ...RouterOption) *chi.Mux {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestIDLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", idempotencyHeader},
			MaxAge:         corsMaxAge,
		}))
	}
	return r
}

// requestIDLogging copies chi's request id into the logging context.
func requestIDLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
