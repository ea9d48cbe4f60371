package querycheck

import (
	"fmt"
	"os"

	"github.com/okian/rigmatch/pkg/logger"
)

// SetupLogging initializes the global logger for the CLI.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the query check tool.
func ShowHelp() {
	os.Stdout.WriteString(`rigmatch query check
====================

Sends concurrent random /similar and /compatible queries to a running
rigmatch service and verifies every answer: result size limits, category
of each item, anchor exclusion, strict mode purity, purchasable-first
ordering, descending scores and repeatable rankings.

Usage:
  go run ./cmd/querycheck [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -queries int
        Number of queries to send (default 2000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -count int
        n_recommendations per query (default 5)
  -max-id int
        Component ids are drawn from 1..max-id (default 50)
  -strict float
        Share of strict mode queries (default 0.3)
  -seed uint
        Generator seed (default: current time)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every failed query and violation
  -help
        Show this help message
`)
}
