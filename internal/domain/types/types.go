// Package types contains common types used across the application
package types

// Availability labels reported with each recommendation.
const (
	StatusAvailable = "Available in store"
	StatusReference = "Reference only - Not in database"
)

// Recommendation modes.
const (
	ModeSimilar    = "similar"
	ModeCompatible = "compatible"
)

// Recommendation is one ranked candidate returned by a query
type Recommendation struct {
	ID                 int      `json:"id"`
	Category           string   `json:"category"`
	ModelName          string   `json:"model_name"`
	Brand              string   `json:"brand"`
	Price              *float64 `json:"price"`
	Score              float64  `json:"score"`
	Purchasable        bool     `json:"in_database"`
	AvailabilityStatus string   `json:"availability_status"`
	Notes              []string `json:"compatibility_notes,omitempty"`
	Reason             string   `json:"reason,omitempty"`
}

// StatusFor returns the availability label for purchasable.
func StatusFor(purchasable bool) string {
	if purchasable {
		return StatusAvailable
	}
	return StatusReference
}

// UnresolvedRef is a build entry that did not resolve to a catalog component
type UnresolvedRef struct {
	Category string `json:"category"`
	ID       int    `json:"id"`
}

// Result is the ordered outcome of a query
type Result struct {
	Items           []Recommendation `json:"recommendations"`
	Mode            string           `json:"mode"`
	Strict          bool             `json:"strict_mode"`
	SnapshotVersion string           `json:"snapshot_version"`
	Note            string           `json:"note,omitempty"`
	Unresolved      []UnresolvedRef  `json:"unresolved,omitempty"`
}

// Purchasable returns the purchasable items in result order.
func (r Result) Purchasable() []Recommendation {
	return r.filter(true)
}

// ReferenceOnly returns the reference-only items in result order.
func (r Result) ReferenceOnly() []Recommendation {
	return r.filter(false)
}

func (r Result) filter(purchasable bool) []Recommendation {
	out := make([]Recommendation, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Purchasable == purchasable {
			out = append(out, it)
		}
	}
	return out
}

// Stats summarizes the service state for monitoring.
type Stats struct {
	Started         bool           `json:"started"`
	ModelLoaded     bool           `json:"model_loaded"`
	SnapshotVersion string         `json:"snapshot_version,omitempty"`
	SnapshotSeq     uint64         `json:"snapshot_seq"`
	BuiltAt         string         `json:"built_at,omitempty"`
	Components      int            `json:"components"`
	ByCategory      map[string]int `json:"components_by_category"`
	Vocabulary      int            `json:"vocabulary"`
	QueueLength     int            `json:"queue_length"`
	QueueCapacity   int            `json:"queue_capacity"`
	OracleState     string         `json:"oracle_state,omitempty"`
	ModelFile       string         `json:"model_file,omitempty"`
	ModelVersion    string         `json:"model_version,omitempty"`
	ModelSavedAt    string         `json:"model_saved_at,omitempty"`
	ModelSizeBytes  int64          `json:"model_size_bytes,omitempty"`
}
