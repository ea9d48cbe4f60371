package querycheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/rigmatch/pkg/logger"
)

// ErrViolations is returned when any result invariant is broken.
var ErrViolations = errors.New("result invariants violated")

const repeatChecks = 20

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Components  int    `json:"components_loaded"`
}

// Run executes the complete query check and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting rigmatch query check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("queries", cfg.NumQueries),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("count", cfg.Count),
		logger.Int("maxID", cfg.MaxID))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and send queries
	queries := generateQueries(ctx, cfg, stats)
	violations := runQueries(ctx, cfg, queries, stats)

	// Step 3: Repeat a sample to check determinism
	violations = append(violations, checkRepeatable(ctx, cfg, queries, repeatChecks)...)
	stats.Violations = len(violations)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(violations) > 0 {
		for i, v := range violations {
			if !cfg.Verbose && i >= 10 {
				break
			}
			log.Warn(ctx, "violation", logger.String("detail", v.String()))
		}
		return stats, fmt.Errorf("%w: %d found", ErrViolations, len(violations))
	}
	log.Info(ctx, "query check completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running with a model.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	var h healthResponse
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if !h.ModelLoaded {
		return fmt.Errorf("service is %s: no model loaded", h.Status)
	}
	logger.Get().Info(ctx, "service is healthy", logger.Int("components", h.Components))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var okRate, queriesPerSecond float64
	if stats.QueriesSent > 0 {
		okRate = float64(stats.QueriesOK) / float64(stats.QueriesSent) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		queriesPerSecond = float64(stats.QueriesSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("queriesGenerated", stats.QueriesGenerated),
		logger.Int("queriesSent", stats.QueriesSent),
		logger.Int("queriesOK", stats.QueriesOK),
		logger.Int("queriesNotFound", stats.QueriesNotFound),
		logger.Int("queriesFailed", stats.QueriesFailed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("okRate", okRate),
		logger.Float64("queriesPerSecond", queriesPerSecond))
}
