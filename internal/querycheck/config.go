package querycheck

import "time"

// Config holds configuration for a query check run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumQueries int           // Number of queries to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Count      int           // n_recommendations sent with every query
	MaxID      int           // Component ids are drawn from [1, MaxID]
	StrictRate float64       // Share of queries sent in strict mode
	Seed       uint64        // Seed for the query generator
	Verbose    bool          // Log every violation
}

// Query is one generated request.
type Query struct {
	ID         string
	Kind       string
	Similar    *SimilarRequest
	Compatible *CompatibleRequest
}

// Strict reports whether the query runs in strict mode.
func (q Query) Strict() bool {
	if q.Similar != nil {
		return q.Similar.Strict
	}
	return q.Compatible != nil && q.Compatible.Strict
}

// SimilarRequest is the POST /similar body.
type SimilarRequest struct {
	ComponentID int    `json:"component_id"`
	Category    string `json:"category"`
	Count       int    `json:"n_recommendations"`
	Strict      bool   `json:"strict"`
}

// CompatibleRequest is the POST /compatible body.
type CompatibleRequest struct {
	CurrentBuild   map[string]int `json:"current_build"`
	TargetCategory string         `json:"target_category"`
	Count          int            `json:"n_recommendations"`
	Strict         bool           `json:"strict"`
}

// Recommendation is one ranked item as returned by the service.
type Recommendation struct {
	ID          int      `json:"id"`
	Category    string   `json:"category"`
	Score       float64  `json:"score"`
	Purchasable bool     `json:"in_database"`
	Notes       []string `json:"compatibility_notes"`
}

// Response is the union of the /similar and /compatible response bodies.
type Response struct {
	Success         bool             `json:"success"`
	StrictMode      bool             `json:"strict_mode"`
	Recommendations []Recommendation `json:"recommendations"`
	Database        []Recommendation `json:"database_recommendations"`
	Dataset         []Recommendation `json:"dataset_recommendations"`
	SnapshotVersion string           `json:"snapshot_version"`
}

// Stats holds run statistics.
type Stats struct {
	QueriesGenerated int
	QueriesSent      int
	QueriesOK        int
	QueriesNotFound  int
	QueriesFailed    int
	Violations       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
