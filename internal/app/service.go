// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rigmatch/internal/adapters/modelstore"
	eventqueue "github.com/okian/rigmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/rigmatch/internal/adapters/mq/worker"
	repository "github.com/okian/rigmatch/internal/adapters/repository"
	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/recommend"
	"github.com/okian/rigmatch/internal/domain/scoring"
	"github.com/okian/rigmatch/internal/domain/similarity"
	"github.com/okian/rigmatch/internal/domain/types"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
)

// Rebuild reasons reported in logs and metrics.
const (
	ReasonStartup      = "startup"
	ReasonRetrain      = "retrain"
	ReasonInventoryAdd = "inventory_add"
)

// Default service configuration.
const (
	defaultQueueSize      = 1
	workerShutdownTimeout = 30 * time.Second
)

const (
	rebuildOutcomeReused  = "reused"
	rebuildOutcomeFailed  = "error"
	rebuildOutcomeRebuilt = "ok"
)

// Inventory is the live store: it stocks components and accepts new ones.
type Inventory interface {
	Add(ctx context.Context, category model.Category, fields map[string]any) (int, error)
}

// ModelStore persists fitted snapshots across restarts.
type ModelStore interface {
	Save(ctx context.Context, snap *catalog.Snapshot) error
	Load(ctx context.Context) (*catalog.Snapshot, error)
}

// modelDescriber is implemented by model stores that can report on the
// stored file.
type modelDescriber interface {
	Path() string
	Metadata(ctx context.Context) (modelstore.Metadata, error)
}

// Service implements the API dependencies for the recommender.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader      catalog.Loader
	oracle      recommend.Oracle
	inventory   Inventory
	models      ModelStore
	scorer      scoring.Scorer
	snapshots   *repository.SnapshotStore
	recommender *recommend.Recommender
	queue       *eventqueue.InMemoryQueue
	worker      *workerpool.RebuildWorker

	// Configuration
	queueSize   int
	maxFeatures int

	// rebuildMu serializes the worker with inline rebuilds
	rebuildMu sync.Mutex

	// storedModel describes the last model file saved or loaded
	storedModel atomic.Pointer[modelstore.Metadata]

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOracle sets the inventory oracle used to label recommendations.
func WithOracle(o recommend.Oracle) Option {
	return func(s *Service) {
		s.oracle = o
	}
}

// WithInventory sets the store that accepts synced components.
func WithInventory(inv Inventory) Option {
	return func(s *Service) {
		s.inventory = inv
	}
}

// WithModelStore enables persisting and reusing fitted snapshots.
func WithModelStore(m ModelStore) Option {
	return func(s *Service) {
		s.models = m
	}
}

// WithScorer replaces the compatibility scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithQueueSize sets how many rebuild requests may wait.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxFeatures caps the similarity vocabulary.
func WithMaxFeatures(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFeatures = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service reading its catalog from loader.
func New(loader catalog.Loader, opts ...Option) *Service {
	s := &Service{
		loader:      loader,
		scorer:      scoring.NewRuleScorer(),
		queueSize:   defaultQueueSize,
		maxFeatures: similarity.DefaultMaxFeatures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start publishes the first snapshot and starts the rebuild worker. A
// stored model is reused when it was fitted on the current catalog. When
// no catalog can be produced the service still starts and queries report
// recommend.ErrNotTrained until a rebuild succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.loader == nil {
		return ErrNoLoader
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting recommender service...")

	s.snapshots = repository.NewSnapshotStore(repository.WithLogger(s.logger.Named("snapshots")))
	s.recommender = recommend.New(s.oracle,
		recommend.WithScorer(s.scorer),
		recommend.WithLogger(s.logger.Named("recommend")))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	if err := s.bootstrap(ctx); err != nil {
		s.logger.Error(ctx, "no catalog snapshot available, serving untrained", logger.Error(err))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.worker = workerpool.NewRebuildWorker(s.queue,
		workerpool.RebuilderFunc(func(ctx context.Context, r model.RebuildRequest) error {
			_, err := s.rebuild(ctx, r.Reason)
			return err
		}),
		workerpool.WithLogger(s.logger.Named("worker")))
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "recommender service started",
		logger.Int("components", s.snapshots.Count()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxFeatures", s.maxFeatures),
	)
	return nil
}

// bootstrap publishes the stored model when it matches the catalog and
// rebuilds otherwise.
func (s *Service) bootstrap(ctx context.Context) error {
	start := time.Now()
	comps, err := s.loader.Load(ctx)
	if err != nil {
		if snap, lerr := s.loadStored(ctx); lerr == nil {
			s.logger.Warn(ctx, "catalog unavailable, serving stored model",
				logger.Error(err), logger.String("version", snap.Version))
			return s.publish(ctx, snap)
		}
		metrics.RecordRebuild(ReasonStartup, rebuildOutcomeFailed, time.Since(start))
		return fmt.Errorf("load catalog: %w", err)
	}

	fp := catalog.Fingerprint(comps, catalog.Encode(comps))
	if snap, err := s.loadStored(ctx); err == nil {
		if snap.Fingerprint == fp {
			metrics.RecordRebuild(ReasonStartup, rebuildOutcomeReused, time.Since(start))
			return s.publish(ctx, snap)
		}
		s.logger.Info(ctx, "stored model is stale, rebuilding",
			logger.String("stored", snap.Fingerprint), logger.String("catalog", fp))
	}

	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	_, err = s.buildAndPublish(ctx, ReasonStartup, comps, start)
	return err
}

func (s *Service) loadStored(ctx context.Context) (*catalog.Snapshot, error) {
	if s.models == nil {
		return nil, ErrNoModelStore
	}
	snap, err := s.models.Load(ctx)
	if err != nil {
		s.logger.Debug(ctx, "no usable stored model", logger.Error(err))
		return nil, err
	}
	s.describeStoredModel(ctx)
	return snap, nil
}

// describeStoredModel refreshes the stored model details reported by GetStats.
func (s *Service) describeStoredModel(ctx context.Context) {
	d, ok := s.models.(modelDescriber)
	if !ok {
		return
	}
	meta, err := d.Metadata(ctx)
	if err != nil {
		s.logger.Debug(ctx, "stored model metadata unavailable", logger.Error(err))
		return
	}
	s.storedModel.Store(&meta)
}

// rebuild reloads the catalog, refits the index and publishes the result.
func (s *Service) rebuild(ctx context.Context, reason string) (*catalog.Snapshot, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	comps, err := s.loader.Load(ctx)
	if err != nil {
		metrics.RecordRebuild(reason, rebuildOutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return s.buildAndPublish(ctx, reason, comps, start)
}

// buildAndPublish must be called with rebuildMu held.
func (s *Service) buildAndPublish(ctx context.Context, reason string, comps []model.Component, start time.Time) (*catalog.Snapshot, error) {
	snap, err := catalog.Build(comps, s.snapshots.NextSeq(), similarity.WithMaxFeatures(s.maxFeatures))
	if err != nil {
		metrics.RecordRebuild(reason, rebuildOutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	if err := s.publish(ctx, snap); err != nil {
		metrics.RecordRebuild(reason, rebuildOutcomeFailed, time.Since(start))
		return nil, err
	}
	metrics.RecordRebuild(reason, rebuildOutcomeRebuilt, time.Since(start))
	s.logger.Info(ctx, "catalog rebuilt",
		logger.String("reason", reason),
		logger.String("version", snap.Version),
		logger.Int("components", snap.Len()),
		logger.Int("vocabulary", snap.Index.VocabularySize()),
		logger.Duration("took", time.Since(start)))

	if s.models != nil {
		if err := s.models.Save(ctx, snap); err != nil {
			metrics.RecordErrorByComponent("modelstore", "save")
			s.logger.Warn(ctx, "model not persisted", logger.Error(err))
		} else {
			s.describeStoredModel(ctx)
		}
	}
	return snap, nil
}

func (s *Service) publish(ctx context.Context, snap *catalog.Snapshot) error {
	if err := s.snapshots.Publish(ctx, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	for _, c := range model.Categories() {
		metrics.UpdateCatalogComponents(string(c), len(snap.InCategory(c)))
	}
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping recommender service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "rebuild worker did not stop in time", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "recommender service stopped")
}

// RequestRebuild schedules an asynchronous rebuild. Requests arriving while
// one is already pending are coalesced into it.
func (s *Service) RequestRebuild(ctx context.Context, reason string) (eventqueue.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return eventqueue.Result{}, ErrNotStarted
	}
	req := model.RebuildRequest{ID: uuid.NewString(), Reason: reason, RequestedAt: time.Now()}
	res, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		return eventqueue.Result{}, fmt.Errorf("enqueue rebuild: %w", err)
	}
	s.logger.Debug(ctx, "rebuild requested",
		logger.String("request_id", res.ID),
		logger.String("reason", reason),
		logger.Bool("coalesced", res.Coalesced))
	return res, nil
}

// RebuildNow rebuilds inline and returns the published snapshot identity.
func (s *Service) RebuildNow(ctx context.Context, reason string) (catalog.Meta, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return catalog.Meta{}, ErrNotStarted
	}
	snap, err := s.rebuild(ctx, reason)
	if err != nil {
		return catalog.Meta{}, err
	}
	return snap.Meta, nil
}

// AddInventoryComponent stores a component in the live inventory and
// schedules a rebuild so it becomes recommendable. It returns the stored id.
func (s *Service) AddInventoryComponent(ctx context.Context, category string, fields map[string]any) (int, error) {
	c, err := model.ParseCategory(category)
	if err != nil {
		return 0, err
	}
	if s.inventory == nil {
		return 0, ErrNoInventory
	}
	id, err := s.inventory.Add(ctx, c, fields)
	if err != nil {
		metrics.RecordErrorByComponent("inventory", "add")
		return 0, fmt.Errorf("add %s component: %w", c, err)
	}
	metrics.RecordInventoryAdd()

	if _, err := s.RequestRebuild(ctx, ReasonInventoryAdd); err != nil {
		s.logger.Warn(ctx, "component stored but rebuild not scheduled",
			logger.String("category", string(c)), logger.Int("id", id), logger.Error(err))
	}
	return id, nil
}

// Similar returns components similar to the anchor (anchorID, category).
func (s *Service) Similar(ctx context.Context, anchorID int, category string, count int, strict bool) (types.Result, error) {
	r, snap, err := s.query()
	if err != nil {
		return types.Result{}, err
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return unknownCategory(snap, types.ModeSimilar, category, strict)
	}
	return r.Similar(ctx, snap, anchorID, c, count, strict)
}

// Compatible returns target components ranked by compatibility with build.
// Build keys that are not categories are reported as unresolved.
func (s *Service) Compatible(ctx context.Context, build map[string]int, target string, count int, strict bool) (types.Result, error) {
	r, snap, err := s.query()
	if err != nil {
		return types.Result{}, err
	}
	c, err := model.ParseCategory(target)
	if err != nil {
		return unknownCategory(snap, types.ModeCompatible, target, strict)
	}
	parsed, invalid := model.ParseBuild(build)
	res, err := r.Compatible(ctx, snap, parsed, c, count, strict)
	if err != nil {
		return res, err
	}
	for _, k := range sortedKeys(invalid) {
		res.Unresolved = append(res.Unresolved, types.UnresolvedRef{Category: k, ID: build[k]})
	}
	return res, nil
}

// unknownCategory answers a query for a category the catalog cannot hold
// with an empty, labeled result.
func unknownCategory(snap *catalog.Snapshot, mode, category string, strict bool) (types.Result, error) {
	if snap == nil {
		return types.Result{}, recommend.ErrNotTrained
	}
	return types.Result{
		Items:           []types.Recommendation{},
		Mode:            mode,
		Strict:          strict,
		SnapshotVersion: snap.Version,
		Note:            fmt.Sprintf("no components in unknown category %q", category),
	}, nil
}

// query returns the recommender and the snapshot to answer one query with.
func (s *Service) query() (*recommend.Recommender, *catalog.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recommender == nil {
		return nil, nil, ErrNotStarted
	}
	return s.recommender, s.snapshots.Current(), nil
}

// Snapshot returns the current snapshot, or nil before the first build.
func (s *Service) Snapshot() *catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots.Current()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Started:       s.started,
		ByCategory:    map[string]int{},
		QueueCapacity: s.queueSize,
	}
	if st, ok := s.oracle.(interface{ State() string }); ok {
		stats.OracleState = st.State()
	}
	if s.queue != nil {
		stats.QueueLength = s.queue.Len(context.Background())
		stats.QueueCapacity = s.queue.Cap()
	}
	if d, ok := s.models.(modelDescriber); ok {
		stats.ModelFile = d.Path()
	}
	if meta := s.storedModel.Load(); meta != nil {
		stats.ModelVersion = meta.Version
		stats.ModelSavedAt = meta.SavedAt.Format(time.RFC3339)
		stats.ModelSizeBytes = meta.SizeBytes
	}
	if s.snapshots == nil {
		return stats
	}
	snap := s.snapshots.Current()
	if snap == nil {
		return stats
	}
	stats.ModelLoaded = true
	stats.SnapshotVersion = snap.Version
	stats.SnapshotSeq = snap.Seq
	stats.BuiltAt = snap.BuiltAt.Format(time.RFC3339)
	stats.Components = snap.Len()
	stats.Vocabulary = snap.Index.VocabularySize()
	for c, n := range snap.Counts() {
		stats.ByCategory[string(c)] = n
	}
	return stats
}

func sortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
