// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/okian/rigmatch/internal/adapters/mq/queue"
	"github.com/okian/rigmatch/internal/domain/dedupe"
	"github.com/okian/rigmatch/internal/domain/types"
	"github.com/okian/rigmatch/pkg/logger"
)

const (
	defaultCount           = 5
	defaultMaxCount        = 50
	defaultMaxRequestBytes = 1 << 20
)

// Recommender answers recommendation queries.
type Recommender interface {
	Similar(ctx context.Context, anchorID int, category string, count int, strict bool) (types.Result, error)
	Compatible(ctx context.Context, build map[string]int, target string, count int, strict bool) (types.Result, error)
}

// Admin covers the write side: rebuild requests and inventory sync.
type Admin interface {
	RequestRebuild(ctx context.Context, reason string) (queue.Result, error)
	AddInventoryComponent(ctx context.Context, category string, fields map[string]any) (int, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() types.Stats
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Recommender
	Admin
	StatsProvider
}

// limits bound request bodies and result sizes.
type limits struct {
	defaultCount int
	maxCount     int
	maxBody      int64
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recommendHandler *RecommendHandler
	adminHandler     *AdminHandler
	adminRate        rateLimit
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	limits    limits
	log       logger.Logger
	dedupe    dedupe.Deduper
	adminRate rateLimit
}

// rateLimit allows requests per window for each client IP. Zero disables it.
type rateLimit struct {
	requests int
	window   time.Duration
}

// WithDefaultCount sets the result size used when a request omits it.
func WithDefaultCount(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.limits.defaultCount = n
		}
	}
}

// WithMaxCount caps n_recommendations.
func WithMaxCount(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.limits.maxCount = n
		}
	}
}

// WithMaxRequestBytes caps request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.limits.maxBody = n
		}
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithAdminRateLimit limits each client IP to requests per window on the
// /api routes. requests <= 0 disables the limit.
func WithAdminRateLimit(requests int, window time.Duration) Option {
	return func(c *serverConfig) {
		if window <= 0 {
			window = time.Minute
		}
		c.adminRate = rateLimit{requests: requests, window: window}
	}
}

// WithDeduper replaces the tracker of Idempotency-Key headers on inventory sync.
func WithDeduper(d dedupe.Deduper) Option {
	return func(c *serverConfig) {
		if d != nil {
			c.dedupe = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{
		limits: limits{defaultCount: defaultCount, maxCount: defaultMaxCount, maxBody: defaultMaxRequestBytes},
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limits.defaultCount > cfg.limits.maxCount {
		cfg.limits.defaultCount = cfg.limits.maxCount
	}
	if cfg.dedupe == nil {
		cfg.dedupe = dedupe.NewInMemoryDeduper()
	}
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps),
		recommendHandler: NewRecommendHandler(deps, cfg.limits, cfg.log),
		adminHandler:     NewAdminHandler(deps, cfg.limits, cfg.log, cfg.dedupe),
		adminRate:        cfg.adminRate,
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Method(http.MethodGet, "/metrics", MetricsHandler())

	r.Post("/similar", MetricsMiddleware(s.recommendHandler.HandleSimilar, "similar"))
	r.Post("/compatible", MetricsMiddleware(s.recommendHandler.HandleCompatible, "compatible"))

	r.Route("/api", func(r chi.Router) {
		if s.adminRate.requests > 0 {
			r.Use(httprate.Limit(s.adminRate.requests, s.adminRate.window,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					fail(r.Context(), w, s.adminHandler.log, "api.rate_limit", ErrRateLimited)
				}),
			))
		}
		r.Post("/retrain", MetricsMiddleware(s.adminHandler.HandleRetrain, "retrain"))
		r.Post("/sync/component", MetricsMiddleware(s.adminHandler.HandleSyncComponent, "sync_component"))
	})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with its mapped status, logging server side failures.
func fail(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decodeJSON decodes one JSON body of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
		}
		return fmt.Errorf("%w: read body: %w", ErrBadRequest, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	return nil
}
