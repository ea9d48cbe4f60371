package querycheck

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/pkg/logger"
)

const maxBuildParts = 3

// generateQueries builds cfg.NumQueries random queries, half of each kind.
// The same seed yields the same queries.
func generateQueries(ctx context.Context, cfg *Config, stats *Stats) []Query {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	cats := model.Categories()

	queries := make([]Query, 0, cfg.NumQueries)
	for i := 0; i < cfg.NumQueries; i++ {
		strict := rng.Float64() < cfg.StrictRate
		target := cats[rng.IntN(len(cats))]
		q := Query{ID: uuid.NewString()}
		if i%2 == 0 {
			q.Kind = KindSimilar
			q.Similar = &SimilarRequest{
				ComponentID: 1 + rng.IntN(cfg.MaxID),
				Category:    target.String(),
				Count:       cfg.Count,
				Strict:      strict,
			}
		} else {
			q.Kind = KindCompatible
			q.Compatible = &CompatibleRequest{
				CurrentBuild:   randomBuild(rng, cats, target, cfg.MaxID),
				TargetCategory: target.String(),
				Count:          cfg.Count,
				Strict:         strict,
			}
		}
		queries = append(queries, q)
	}

	stats.QueriesGenerated = len(queries)
	logger.Get().Info(ctx, "queries generated", logger.Int("count", len(queries)), logger.Int64("seed", int64(cfg.Seed)))
	return queries
}

// randomBuild picks up to maxBuildParts categories other than target.
func randomBuild(rng *rand.Rand, cats []model.Category, target model.Category, maxID int) map[string]int {
	build := make(map[string]int, maxBuildParts)
	for _, i := range rng.Perm(len(cats))[:rng.IntN(maxBuildParts+1)] {
		if cats[i] == target {
			continue
		}
		build[cats[i].String()] = 1 + rng.IntN(maxID)
	}
	return build
}
