package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/rigmatch/internal/adapters/inventory"
	"github.com/okian/rigmatch/internal/adapters/modelstore"
	service "github.com/okian/rigmatch/internal/app"
	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/recommend"
	"github.com/okian/rigmatch/internal/domain/types"
	"github.com/okian/rigmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// memCatalog is a mutable in-memory catalog source.
type memCatalog struct {
	mu    sync.Mutex
	comps []model.Component
	err   error
	loads int
}

func (m *memCatalog) Load(context.Context) ([]model.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Component(nil), m.comps...), nil
}

func (m *memCatalog) Add(_ context.Context, c model.Category, fields map[string]any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := 100 + len(m.comps)
	socket, _ := fields["socket"].(string)
	m.comps = append(m.comps, model.Component{
		ID: id, Category: c, Brand: "New", Availability: model.AvailabilityPurchasable,
		Specs: model.CPUSpecs{Socket: socket, Cores: model.Float(4)},
	})
	return id, nil
}

func (m *memCatalog) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func fixture() []model.Component {
	return []model.Component{
		{ID: 1, Category: model.CategoryCPU, Brand: "AMD", Specs: model.CPUSpecs{Socket: "AM5", Cores: model.Float(8)}},
		{ID: 2, Category: model.CategoryCPU, Brand: "AMD", Specs: model.CPUSpecs{Socket: "AM5", Cores: model.Float(6)}},
		{ID: 3, Category: model.CategoryCPU, Brand: "Intel", Specs: model.CPUSpecs{Socket: "LGA1700", Cores: model.Float(14)}},
		{ID: 1, Category: model.CategoryMotherboard, Brand: "ASUS", Specs: model.MotherboardSpecs{Socket: "AM5"}},
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over an in-memory catalog", t, func() {
		src := &memCatalog{comps: fixture()}
		oracle := inventory.NewStaticOracle(model.Key{ID: 2, Category: model.CategoryCPU})
		svc := service.New(src, service.WithOracle(oracle), service.WithInventory(src))
		defer svc.Stop()

		Convey("When querying before start", func() {
			_, err := svc.Similar(context.Background(), 1, "cpu", 5, false)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.RequestRebuild(context.Background(), service.ReasonRetrain)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then a snapshot is published and reported", func() {
				stats := svc.GetStats()
				So(stats.Started, ShouldBeTrue)
				So(stats.ModelLoaded, ShouldBeTrue)
				So(stats.SnapshotSeq, ShouldEqual, 1)
				So(stats.Components, ShouldEqual, 4)
				So(stats.ByCategory, ShouldResemble, map[string]int{"cpu": 3, "motherboard": 1})
				So(stats.QueueCapacity, ShouldEqual, 1)
				So(stats.ModelFile, ShouldBeEmpty)
			})

			Convey("Then similar queries are answered", func() {
				res, err := svc.Similar(context.Background(), 1, " CPU ", 5, false)
				So(err, ShouldBeNil)
				So(len(res.Items), ShouldEqual, 2)
				So(res.Items[0].ID, ShouldEqual, 2)
				So(res.Items[0].AvailabilityStatus, ShouldEqual, types.StatusAvailable)
			})

			Convey("Then unknown categories yield an empty labeled result", func() {
				res, err := svc.Similar(context.Background(), 1, "monitor", 5, false)
				So(err, ShouldBeNil)
				So(res.Items, ShouldBeEmpty)
				So(res.Mode, ShouldEqual, types.ModeSimilar)
				So(res.Note, ShouldContainSubstring, "monitor")

				res, err = svc.Compatible(context.Background(), map[string]int{"cpu": 1}, "monitor", 5, true)
				So(err, ShouldBeNil)
				So(res.Items, ShouldBeEmpty)
				So(res.Strict, ShouldBeTrue)
				So(res.SnapshotVersion, ShouldEqual, svc.Snapshot().Version)
			})

			Convey("Then compatible queries report unknown build keys", func() {
				res, err := svc.Compatible(context.Background(),
					map[string]int{"motherboard": 1, "monitor": 3, "gpu": 9}, "cpu", 5, false)
				So(err, ShouldBeNil)
				So(res.Unresolved, ShouldResemble, []types.UnresolvedRef{
					{Category: "gpu", ID: 9},
					{Category: "monitor", ID: 3},
				})
				So(res.Items[0].Score, ShouldEqual, 0.5)
			})

			Convey("Then an inline rebuild publishes a newer snapshot", func() {
				before := svc.Snapshot()
				meta, err := svc.RebuildNow(context.Background(), service.ReasonRetrain)
				So(err, ShouldBeNil)
				So(meta.Seq, ShouldBeGreaterThan, before.Seq)
				So(svc.Snapshot().Version, ShouldEqual, meta.Version)
				So(svc.Snapshot().Version, ShouldNotEqual, before.Version)
			})

			Convey("Then a requested rebuild runs in the background", func() {
				res, err := svc.RequestRebuild(context.Background(), service.ReasonRetrain)
				So(err, ShouldBeNil)
				So(res.ID, ShouldNotBeEmpty)
				So(waitFor(func() bool { return svc.Snapshot().Seq >= 2 }), ShouldBeTrue)
			})

			Convey("Then an inventory addition becomes recommendable", func() {
				id, err := svc.AddInventoryComponent(context.Background(), "cpu", map[string]any{"socket": "AM5"})
				So(err, ShouldBeNil)
				So(id, ShouldEqual, 104)
				So(waitFor(func() bool {
					_, ok := svc.Snapshot().Lookup(model.Key{ID: id, Category: model.CategoryCPU})
					return ok
				}), ShouldBeTrue)
			})

			Convey("Then a failing rebuild keeps the current snapshot", func() {
				before := svc.Snapshot()
				src.mu.Lock()
				src.err = errors.New("dataset directory unreadable")
				src.mu.Unlock()

				_, err := svc.RebuildNow(context.Background(), service.ReasonRetrain)
				So(err, ShouldNotBeNil)
				So(svc.Snapshot(), ShouldEqual, before)
			})

			Convey("When stopped", func() {
				svc.Stop()
				So(svc.GetStats().Started, ShouldBeFalse)
				_, err := svc.RequestRebuild(context.Background(), service.ReasonRetrain)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a catalog that cannot be loaded", t, func() {
		src := &memCatalog{err: catalog.ErrEmptyCatalog}
		svc := service.New(src)
		defer svc.Stop()

		Convey("Then the service starts untrained", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats().ModelLoaded, ShouldBeFalse)
			_, err := svc.Similar(context.Background(), 1, "cpu", 5, false)
			So(errors.Is(err, recommend.ErrNotTrained), ShouldBeTrue)

			Convey("And recovers on a successful rebuild", func() {
				src.mu.Lock()
				src.err, src.comps = nil, fixture()
				src.mu.Unlock()
				_, err := svc.RebuildNow(context.Background(), service.ReasonRetrain)
				So(err, ShouldBeNil)
				_, err = svc.Similar(context.Background(), 1, "cpu", 5, false)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a service without inventory", t, func() {
		svc := service.New(&memCatalog{comps: fixture()})
		defer svc.Stop()
		So(svc.Start(context.Background()), ShouldBeNil)

		_, err := svc.AddInventoryComponent(context.Background(), "cpu", map[string]any{})
		So(errors.Is(err, service.ErrNoInventory), ShouldBeTrue)
		_, err = svc.AddInventoryComponent(context.Background(), "monitor", map[string]any{})
		So(errors.Is(err, model.ErrUnknownCategory), ShouldBeTrue)
	})

	Convey("Given no loader", t, func() {
		So(errors.Is(service.New(nil).Start(context.Background()), service.ErrNoLoader), ShouldBeTrue)
	})
}

func TestService_ModelStore(t *testing.T) {
	Convey("Given a service persisting its model", t, func() {
		path := filepath.Join(t.TempDir(), "model.gob.gz")
		src := &memCatalog{comps: fixture()}

		first := service.New(src, service.WithModelStore(modelstore.NewFileStore(path)))
		So(first.Start(context.Background()), ShouldBeNil)
		version := first.Snapshot().Version
		saved := first.GetStats()
		first.Stop()

		Convey("Then stats describe the saved model file", func() {
			So(saved.ModelFile, ShouldEqual, path)
			So(saved.ModelVersion, ShouldEqual, version)
			So(saved.ModelSizeBytes, ShouldBeGreaterThan, 0)
			So(saved.ModelSavedAt, ShouldNotBeEmpty)
		})

		Convey("When restarted on the same catalog", func() {
			second := service.New(src, service.WithModelStore(modelstore.NewFileStore(path)))
			defer second.Stop()
			So(second.Start(context.Background()), ShouldBeNil)

			Convey("Then the stored model is reused", func() {
				So(second.Snapshot().Version, ShouldEqual, version)
				So(second.GetStats().ModelVersion, ShouldEqual, version)
			})
		})

		Convey("When restarted on a changed catalog", func() {
			src.mu.Lock()
			src.comps = src.comps[:3]
			src.mu.Unlock()
			second := service.New(src, service.WithModelStore(modelstore.NewFileStore(path)))
			defer second.Stop()
			So(second.Start(context.Background()), ShouldBeNil)

			Convey("Then the model is rebuilt and saved", func() {
				So(second.Snapshot().Version, ShouldNotEqual, version)
				So(second.Snapshot().Len(), ShouldEqual, 3)
				meta, err := modelstore.NewFileStore(path).Metadata(context.Background())
				So(err, ShouldBeNil)
				So(meta.Version, ShouldEqual, second.Snapshot().Version)
			})
		})

		Convey("When restarted while the catalog is unavailable", func() {
			src.mu.Lock()
			src.err = errors.New("inventory locked")
			src.mu.Unlock()
			second := service.New(src, service.WithModelStore(modelstore.NewFileStore(path)))
			defer second.Stop()
			So(second.Start(context.Background()), ShouldBeNil)

			Convey("Then the stored model is served", func() {
				So(second.Snapshot(), ShouldNotBeNil)
				So(second.Snapshot().Version, ShouldEqual, version)
			})
		})
	})
}

func TestService_ConcurrentQueriesDuringRebuild(t *testing.T) {
	Convey("Given queries racing with rebuilds", t, func() {
		src := &memCatalog{comps: fixture()}
		svc := service.New(src)
		defer svc.Stop()
		So(svc.Start(context.Background()), ShouldBeNil)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					res, err := svc.Similar(context.Background(), 1, "cpu", 5, false)
					if err == nil && len(res.Items) != 2 {
						err = errors.New("partial snapshot observed")
					}
					if err != nil {
						mu.Lock()
						errs = append(errs, err)
						mu.Unlock()
					}
				}
			}()
		}
		for i := 0; i < 5; i++ {
			_, err := svc.RebuildNow(context.Background(), service.ReasonRetrain)
			So(err, ShouldBeNil)
		}
		wg.Wait()

		So(errs, ShouldBeEmpty)
		So(src.loadCount(), ShouldBeGreaterThanOrEqualTo, 6)
	})
}
