package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/types"
	"github.com/okian/rigmatch/pkg/logger"
)

// similarRequest mirrors the OpenAPI schema for POST /similar.
type similarRequest struct {
	ComponentID *int   `json:"component_id" validate:"required"`
	Category    string `json:"category" validate:"notblank"`
	Count       *int   `json:"n_recommendations" validate:"omitempty,min=1"`
	Strict      bool   `json:"strict"`
}

type similarResponse struct {
	Success         bool                   `json:"success"`
	ComponentID     int                    `json:"component_id"`
	Category        string                 `json:"category"`
	StrictMode      bool                   `json:"strict_mode"`
	Recommendations []types.Recommendation `json:"recommendations"`
	SnapshotVersion string                 `json:"snapshot_version"`
	Note            string                 `json:"note,omitempty"`
}

// compatibleRequest mirrors the OpenAPI schema for POST /compatible.
// Build ids may arrive as numbers or numeric strings.
type compatibleRequest struct {
	CurrentBuild   map[string]any `json:"current_build"`
	TargetCategory string         `json:"target_category" validate:"notblank"`
	Count          *int           `json:"n_recommendations" validate:"omitempty,min=1"`
	Strict         bool           `json:"strict"`
}

type compatibleResponse struct {
	Success         bool                   `json:"success"`
	TargetCategory  string                 `json:"target_category"`
	CurrentBuild    map[string]int         `json:"current_build"`
	StrictMode      bool                   `json:"strict_mode"`
	Database        []types.Recommendation `json:"database_recommendations"`
	Dataset         []types.Recommendation `json:"dataset_recommendations"`
	Recommendations []types.Recommendation `json:"recommendations"`
	Unresolved      []types.UnresolvedRef  `json:"unresolved"`
	Note            string                 `json:"note,omitempty"`
	SnapshotVersion string                 `json:"snapshot_version"`
}

// RecommendHandler handles the recommendation queries.
type RecommendHandler struct {
	deps   Recommender
	limits limits
	log    logger.Logger
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps Recommender, l limits, log logger.Logger) *RecommendHandler {
	return &RecommendHandler{deps: deps, limits: l, log: log}
}

// HandleSimilar handles POST /similar requests.
func (h *RecommendHandler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.similar"
	var req similarRequest
	if err := decodeJSON(w, r, h.limits.maxBody, &req); err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	count, err := h.count(req.Count)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}

	res, err := h.deps.Similar(r.Context(), *req.ComponentID, req.Category, count, req.Strict)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{
		Success:         true,
		ComponentID:     *req.ComponentID,
		Category:        req.Category,
		StrictMode:      req.Strict,
		Recommendations: nonNil(res.Items),
		SnapshotVersion: res.SnapshotVersion,
		Note:            res.Note,
	})
}

// HandleCompatible handles POST /compatible requests.
func (h *RecommendHandler) HandleCompatible(w http.ResponseWriter, r *http.Request) {
	const op = "api.compatible"
	var req compatibleRequest
	if err := decodeJSON(w, r, h.limits.maxBody, &req); err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	count, err := h.count(req.Count)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	build, err := parseBuild(req.CurrentBuild)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}

	res, err := h.deps.Compatible(r.Context(), build, req.TargetCategory, count, req.Strict)
	if err != nil {
		fail(r.Context(), w, h.log, op, err)
		return
	}
	unresolved := res.Unresolved
	if unresolved == nil {
		unresolved = []types.UnresolvedRef{}
	}
	writeJSON(w, http.StatusOK, compatibleResponse{
		Success:         true,
		TargetCategory:  req.TargetCategory,
		CurrentBuild:    build,
		StrictMode:      req.Strict,
		Database:        res.Purchasable(),
		Dataset:         res.ReferenceOnly(),
		Recommendations: nonNil(res.Items),
		Unresolved:      unresolved,
		Note:            res.Note,
		SnapshotVersion: res.SnapshotVersion,
	})
}

// count resolves n_recommendations against the configured default and cap.
func (h *RecommendHandler) count(n *int) (int, error) {
	if n == nil {
		return h.limits.defaultCount, nil
	}
	if *n > h.limits.maxCount {
		return 0, fmt.Errorf("%w: n_recommendations must be at most %d", ErrBadRequest, h.limits.maxCount)
	}
	return *n, nil
}

// parseBuild converts the decoded current_build into category ids.
func parseBuild(raw map[string]any) (map[string]int, error) {
	build := make(map[string]int, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, ok := buildID(raw[k])
		if !ok {
			return nil, fmt.Errorf("%w: current_build.%s must be an integer id", ErrBadRequest, k)
		}
		build[k] = id
	}
	return build, nil
}

func buildID(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return model.IntValue(x)
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(x))
		return id, err == nil
	}
	return 0, false
}

func nonNil(items []types.Recommendation) []types.Recommendation {
	if items == nil {
		return []types.Recommendation{}
	}
	return items
}
