package querycheck

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/rigmatch/pkg/logger"
)

// Violation is one broken result invariant.
type Violation struct {
	QueryID string
	Kind    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.QueryID, v.Message)
}

// checkResponse verifies the invariants every answer to q must hold.
func checkResponse(q Query, resp Response) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{QueryID: q.ID, Kind: q.Kind, Message: fmt.Sprintf(format, args...)})
	}

	var target string
	var count, limit int
	switch q.Kind {
	case KindSimilar:
		target, count = q.Similar.Category, q.Similar.Count
		limit = count
	case KindCompatible:
		target, count = q.Compatible.TargetCategory, q.Compatible.Count
		limit = count
		if !q.Compatible.Strict {
			limit = 2 * count
		}
	}
	strict := q.Strict()
	items := resp.Recommendations

	if !resp.Success {
		add("success is false")
	}
	if resp.StrictMode != strict {
		add("strict_mode %v, sent %v", resp.StrictMode, strict)
	}
	if len(items) > limit {
		add("%d recommendations, limit %d", len(items), limit)
	}
	for _, it := range items {
		if it.Category != target {
			add("item %d has category %q, want %q", it.ID, it.Category, target)
		}
		if strict && !it.Purchasable {
			add("strict result contains reference-only item %d", it.ID)
		}
		if q.Kind == KindSimilar && it.ID == q.Similar.ComponentID {
			add("anchor %d returned as its own recommendation", it.ID)
		}
	}

	if q.Kind == KindSimilar || strict {
		if !descending(items) {
			add("scores not in descending order")
		}
		return out
	}

	// non-strict compatible: purchasable block first, each block ranked
	split := slices.IndexFunc(items, func(r Recommendation) bool { return !r.Purchasable })
	if split < 0 {
		split = len(items)
	}
	if slices.ContainsFunc(items[split:], func(r Recommendation) bool { return r.Purchasable }) {
		add("purchasable item listed after a reference-only item")
	}
	if !descending(items[:split]) || !descending(items[split:]) {
		add("scores not in descending order within a partition")
	}
	if len(resp.Database)+len(resp.Dataset) != len(items) {
		add("partitions hold %d items, recommendations %d", len(resp.Database)+len(resp.Dataset), len(items))
	}
	return out
}

func descending(items []Recommendation) bool {
	for i := 1; i < len(items); i++ {
		if items[i].Score > items[i-1].Score {
			return false
		}
	}
	return true
}

// checkRepeatable re-sends up to n queries and reports any whose ranking
// changed while the snapshot version stayed the same.
func checkRepeatable(ctx context.Context, cfg *Config, queries []Query, n int) []Violation {
	client := newHTTPClient(cfg.Timeout)
	var out []Violation
	checked := 0
	for _, q := range queries {
		if checked >= n || ctx.Err() != nil {
			break
		}
		first, outcome, err := send(ctx, client, cfg.BaseURL, q)
		if err != nil || outcome != outcomeOK {
			continue
		}
		second, outcome, err := send(ctx, client, cfg.BaseURL, q)
		if err != nil || outcome != outcomeOK {
			continue
		}
		checked++
		if first.SnapshotVersion != second.SnapshotVersion {
			continue
		}
		if !slices.Equal(ids(first.Recommendations), ids(second.Recommendations)) {
			out = append(out, Violation{QueryID: q.ID, Kind: q.Kind, Message: "repeated query returned a different ranking"})
		}
	}
	logger.Get().Info(ctx, "repeatability checked", logger.Int("queries", checked), logger.Int("violations", len(out)))
	return out
}

func ids(items []Recommendation) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
