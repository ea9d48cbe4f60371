// Package recommend ranks catalog components for "similar" and
// "compatible" queries and partitions them by purchasability.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/scoring"
	"github.com/okian/rigmatch/internal/domain/types"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
)

// Reason thresholds.
const (
	highSimilarity = 0.8
	goodSimilarity = 0.6
)

// Oracle answers whether a component is stocked in the live inventory.
type Oracle interface {
	Exists(ctx context.Context, id int, category model.Category) (bool, error)
}

// Recommender answers Similar and Compatible queries against a snapshot.
// It holds no per-query state and is safe for concurrent use.
type Recommender struct {
	oracle Oracle
	scorer scoring.Scorer
	log    logger.Logger
}

// New creates a recommender. A nil oracle treats every component as
// reference-only.
func New(oracle Oracle, opts ...Option) *Recommender {
	r := &Recommender{
		oracle: oracle,
		scorer: scoring.NewRuleScorer(),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type ranked struct {
	pos   int
	score float64
	notes []string
}

// Similar returns up to count components of category most similar to the
// anchor (anchorID, category). The anchor and its duplicates are never
// returned. In strict mode only purchasable components are returned.
func (r *Recommender) Similar(ctx context.Context, snap *catalog.Snapshot, anchorID int, category model.Category, count int, strict bool) (res types.Result, err error) {
	start := time.Now()
	defer func() { r.observe(types.ModeSimilar, strict, err, start) }()

	if err := checkQuery(snap, count); err != nil {
		return types.Result{}, err
	}
	anchor := model.Key{ID: anchorID, Category: category}
	apos, ok := snap.Position(anchor)
	if !ok {
		return types.Result{}, fmt.Errorf("%w: %s %d", ErrNotFound, category, anchorID)
	}

	res = newResult(snap, types.ModeSimilar, strict)
	row, err := snap.Index.SimilarityRow(apos)
	if err != nil {
		return types.Result{}, fmt.Errorf("similarity of %s %d: %w", category, anchorID, err)
	}

	pool := snap.InCategory(category)
	cands := make([]ranked, 0, len(pool))
	for _, p := range pool {
		if snap.Components[p].Key() == anchor {
			continue
		}
		cands = append(cands, ranked{pos: p, score: row[p]})
	}
	metrics.RecordCandidatesScored(types.ModeSimilar, len(cands))
	if len(cands) == 0 {
		return r.emptyPool(ctx, res, category), nil
	}
	sortRanked(cands)
	count = min(count, len(cands))

	if strict {
		res.Items = r.collectPurchasable(ctx, snap, cands, count)
		return res, nil
	}

	limit := min(2*count, len(cands))
	for _, c := range cands[:limit] {
		comp := &snap.Components[c.pos]
		res.Items = append(res.Items, recommendation(comp, c, r.exists(ctx, comp)))
		if len(res.Items) >= count {
			break
		}
	}
	return res, nil
}

// Compatible scores every component of target against build and returns
// the best fits. Strict mode returns only purchasable components. Otherwise
// up to count purchasable and count reference-only components are
// returned, purchasable first.
func (r *Recommender) Compatible(ctx context.Context, snap *catalog.Snapshot, build model.Build, target model.Category, count int, strict bool) (res types.Result, err error) {
	start := time.Now()
	defer func() { r.observe(types.ModeCompatible, strict, err, start) }()

	if err := checkQuery(snap, count); err != nil {
		return types.Result{}, err
	}
	res = newResult(snap, types.ModeCompatible, strict)
	resolved := r.resolveBuild(ctx, snap, build, &res)

	pool := snap.InCategory(target)
	metrics.RecordCandidatesScored(types.ModeCompatible, len(pool))
	if len(pool) == 0 {
		return r.emptyPool(ctx, res, target), nil
	}

	cands := make([]ranked, 0, len(pool))
	for _, p := range pool {
		s := r.scorer.Score(&snap.Components[p], resolved, snap)
		cands = append(cands, ranked{pos: p, score: s.Score, notes: s.Notes})
	}
	sortRanked(cands)
	count = min(count, len(cands))

	if strict {
		res.Items = r.collectPurchasable(ctx, snap, cands, count)
		return res, nil
	}

	var stocked, reference []types.Recommendation
	for _, c := range cands {
		comp := &snap.Components[c.pos]
		var purchasable bool
		switch comp.Availability {
		case model.AvailabilityPurchasable:
			purchasable = true
		case model.AvailabilityReferenceOnly:
			purchasable = false
		default:
			purchasable = r.exists(ctx, comp)
		}
		rec := recommendation(comp, c, purchasable)
		if purchasable {
			if len(stocked) < count {
				stocked = append(stocked, rec)
			}
		} else if len(reference) < count {
			reference = append(reference, rec)
		}
		if len(stocked) >= count && len(reference) >= count {
			break
		}
	}
	res.Items = append(stocked, reference...)
	return res, nil
}

// resolveBuild drops build entries that do not resolve and reports them.
func (r *Recommender) resolveBuild(ctx context.Context, snap *catalog.Snapshot, build model.Build, res *types.Result) model.Build {
	resolved := make(model.Build, len(build))
	for _, c := range model.Categories() {
		id, ok := build[c]
		if !ok {
			continue
		}
		if _, found := snap.Lookup(model.Key{ID: id, Category: c}); !found {
			res.Unresolved = append(res.Unresolved, types.UnresolvedRef{Category: c.String(), ID: id})
			r.log.Debug(ctx, "build reference not in catalog",
				logger.String("category", c.String()), logger.Int("id", id))
			continue
		}
		resolved[c] = id
	}
	return resolved
}

func (r *Recommender) collectPurchasable(ctx context.Context, snap *catalog.Snapshot, cands []ranked, count int) []types.Recommendation {
	out := make([]types.Recommendation, 0, min(count, len(cands)))
	for _, c := range cands {
		if len(out) >= count {
			break
		}
		comp := &snap.Components[c.pos]
		if r.exists(ctx, comp) {
			out = append(out, recommendation(comp, c, true))
		}
	}
	return out
}

// exists asks the oracle and fails closed.
func (r *Recommender) exists(ctx context.Context, comp *model.Component) bool {
	if r.oracle == nil {
		return false
	}
	ok, err := r.oracle.Exists(ctx, comp.ID, comp.Category)
	if err != nil {
		metrics.RecordOracleLookup(metrics.OracleError)
		metrics.RecordErrorByComponent("oracle", "lookup_failed")
		r.log.Warn(ctx, "inventory lookup failed, treating as not purchasable",
			logger.String("category", comp.Category.String()),
			logger.Int("id", comp.ID),
			logger.Error(err))
		return false
	}
	if ok {
		metrics.RecordOracleLookup(metrics.OracleHit)
	} else {
		metrics.RecordOracleLookup(metrics.OracleMiss)
	}
	return ok
}

func (r *Recommender) emptyPool(ctx context.Context, res types.Result, c model.Category) types.Result {
	metrics.RecordEmptyPool(res.Mode)
	res.Note = fmt.Sprintf("no %s candidates in catalog", c)
	r.log.Info(ctx, "empty candidate pool", logger.String("category", c.String()), logger.String("mode", res.Mode))
	return res
}

func (r *Recommender) observe(mode string, strict bool, err error, start time.Time) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.RecordRecommendation(mode, strict, outcome, time.Since(start))
}

func checkQuery(snap *catalog.Snapshot, count int) error {
	if snap == nil || snap.Index == nil {
		return ErrNotTrained
	}
	if count < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	return nil
}

func newResult(snap *catalog.Snapshot, mode string, strict bool) types.Result {
	return types.Result{
		Items:           []types.Recommendation{},
		Mode:            mode,
		Strict:          strict,
		SnapshotVersion: snap.Version,
	}
}

// sortRanked orders by descending score, ties by catalog position.
func sortRanked(c []ranked) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].score > c[j].score })
}

func recommendation(comp *model.Component, c ranked, purchasable bool) types.Recommendation {
	return types.Recommendation{
		ID:                 comp.ID,
		Category:           comp.Category.String(),
		ModelName:          comp.ModelName,
		Brand:              comp.Brand,
		Price:              comp.Price,
		Score:              c.score,
		Purchasable:        purchasable,
		AvailabilityStatus: types.StatusFor(purchasable),
		Notes:              c.notes,
		Reason:             Reason(comp, c.score),
	}
}

// Reason renders the human readable explanation of a score.
func Reason(comp *model.Component, score float64) string {
	parts := make([]string, 0, 2)
	switch {
	case score >= highSimilarity:
		parts = append(parts, "Highly similar features")
	case score >= goodSimilarity:
		parts = append(parts, "Good feature match")
	default:
		parts = append(parts, "Moderate similarity")
	}
	switch comp.Category {
	case model.CategoryCPU:
		if v, ok := comp.Attribute("cores"); ok {
			parts = append(parts, v+" cores")
		}
	case model.CategoryGPU:
		if v, ok := comp.Attribute("vram"); ok {
			parts = append(parts, v+"GB VRAM")
		}
	case model.CategoryRAM:
		if v, ok := comp.Attribute("capacity"); ok {
			parts = append(parts, v+"GB")
		}
	}
	return strings.Join(parts, ", ")
}
