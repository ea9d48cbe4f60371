package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rigmatch/internal/querycheck"
)

// Default configuration constants.
const (
	defaultNumQueries  = 2000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultCount       = 5
	defaultMaxID       = 50
	defaultStrictRate  = 0.3
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5000", "Base URL of the service")
		numQueries = flag.Int("queries", defaultNumQueries, "Number of queries to send")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		count      = flag.Int("count", defaultCount, "n_recommendations per query")
		maxID      = flag.Int("max-id", defaultMaxID, "Component ids are drawn from 1..max-id")
		strictRate = flag.Float64("strict", defaultStrictRate, "Share of strict mode queries")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose    = flag.Bool("verbose", false, "Log every failed query and violation")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		querycheck.ShowHelp()
		return
	}

	if err := querycheck.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &querycheck.Config{
		BaseURL:    *baseURL,
		NumQueries: *numQueries,
		Workers:    max(*workers, 1),
		Timeout:    *timeout,
		Count:      max(*count, 1),
		MaxID:      max(*maxID, 1),
		StrictRate: *strictRate,
		Seed:       *seed,
		Verbose:    *verbose,
	}

	if _, err := querycheck.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Query check failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
