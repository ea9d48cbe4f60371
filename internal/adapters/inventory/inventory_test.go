package inventory_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rigmatch/internal/adapters/inventory"
	"github.com/okian/rigmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openInventory(t *testing.T) *inventory.SQLiteInventory {
	t.Helper()
	inv, err := inventory.Open(context.Background(), filepath.Join(t.TempDir(), "assemble.db"))
	if err != nil {
		t.Fatalf("open inventory: %v", err)
	}
	t.Cleanup(func() { _ = inv.Close() })
	return inv
}

func TestSQLiteInventoryBrokenTable(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CPU view over a source table", t, func() {
		path := filepath.Join(t.TempDir(), "assemble.db")
		raw, err := sql.Open("sqlite", path)
		So(err, ShouldBeNil)
		defer raw.Close()
		for _, stmt := range []string{
			`CREATE TABLE cpu_source (id INTEGER, brand TEXT, socket TEXT)`,
			`INSERT INTO cpu_source VALUES (7, 'AMD', 'AM5')`,
			`CREATE VIEW "CPUtable" AS SELECT * FROM cpu_source`,
		} {
			_, err := raw.ExecContext(ctx, stmt)
			So(err, ShouldBeNil)
		}
		inv, err := inventory.Open(ctx, path)
		So(err, ShouldBeNil)
		defer inv.Close()

		Convey("Then it is read like a table", func() {
			comps, err := inv.Load(ctx)
			So(err, ShouldBeNil)
			So(comps, ShouldHaveLength, 1)
			So(comps[0].ID, ShouldEqual, 7)
			ok, err := inv.Exists(ctx, 7, model.CategoryCPU)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("When the source table is dropped", func() {
			_, err := raw.ExecContext(ctx, `DROP TABLE cpu_source`)
			So(err, ShouldBeNil)

			Convey("Then reads fail instead of treating the category as empty", func() {
				_, err := inv.Load(ctx)
				So(err, ShouldNotBeNil)
				_, err = inv.Exists(ctx, 7, model.CategoryCPU)
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestSQLiteInventory(t *testing.T) {
	ctx := context.Background()

	Convey("Given an inventory without tables", t, func() {
		inv := openInventory(t)

		Convey("Then lookups report absence instead of failing", func() {
			ok, err := inv.Exists(ctx, 1, model.CategoryCPU)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then loading yields nothing", func() {
			comps, err := inv.Load(ctx)
			So(err, ShouldBeNil)
			So(comps, ShouldBeEmpty)
		})

		Convey("Then adding fails with ErrUnknownTable", func() {
			_, err := inv.Add(ctx, model.CategoryCPU, map[string]any{"socket": "AM5"})
			So(errors.Is(err, inventory.ErrUnknownTable), ShouldBeTrue)
		})
	})

	Convey("Given an inventory with its schema", t, func() {
		inv := openInventory(t)
		So(inv.EnsureSchema(ctx), ShouldBeNil)
		So(inv.EnsureSchema(ctx), ShouldBeNil)

		Convey("When adding a CPU with unknown and nested fields", func() {
			id, err := inv.Add(ctx, model.CategoryCPU, map[string]any{
				"model_name": "Ryzen 5 7600",
				"Brand":      "AMD",
				"price":      229.0,
				"socket":     "AM5",
				"cores":      6.0,
				"id":         nil,
				"warranty":   "3y",
				"extra":      map[string]any{"x": 1},
			})

			Convey("Then only table columns are stored and an id is assigned", func() {
				So(err, ShouldBeNil)
				So(id, ShouldBeGreaterThan, 0)

				ok, err := inv.Exists(ctx, id, model.CategoryCPU)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				ok, err = inv.Exists(ctx, id, model.CategoryGPU)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("Then loading returns it as purchasable", func() {
				comps, err := inv.Load(ctx)
				So(err, ShouldBeNil)
				So(len(comps), ShouldEqual, 1)
				c := comps[0]
				So(c.Key(), ShouldResemble, model.Key{ID: id, Category: model.CategoryCPU})
				So(c.Availability, ShouldEqual, model.AvailabilityPurchasable)
				So(c.Brand, ShouldEqual, "AMD")
				So(*c.Price, ShouldEqual, 229)
				spec := c.Specs.(model.CPUSpecs)
				So(spec.Socket, ShouldEqual, "AM5")
				So(*spec.Cores, ShouldEqual, 6)
				So(spec.TDP, ShouldBeNil)
			})
		})

		Convey("When adding a case with the dotted bay column and an explicit id", func() {
			id, err := inv.Add(ctx, model.CategoryCase, map[string]any{"id": 77.0, "drive_bays_3.5": 2.0})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 77)

			comps, err := inv.Load(ctx)
			So(err, ShouldBeNil)
			So(*comps[0].Specs.(model.CaseSpecs).DriveBays35, ShouldEqual, 2)
		})

		Convey("When no field matches a column", func() {
			_, err := inv.Add(ctx, model.CategoryRAM, map[string]any{"colour": "red"})
			So(errors.Is(err, inventory.ErrNoColumns), ShouldBeTrue)
		})

		Convey("When the category is unknown", func() {
			_, err := inv.Add(ctx, model.Category("monitor"), map[string]any{"brand": "x"})
			So(errors.Is(err, model.ErrUnknownCategory), ShouldBeTrue)
		})
	})
}

type flakyOracle struct {
	err   error
	calls int
}

func (f *flakyOracle) Exists(context.Context, int, model.Category) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func TestBreakerOracle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a breaker over a failing oracle", t, func() {
		next := &flakyOracle{err: errors.New("database is locked")}
		b := inventory.NewBreakerOracle(next,
			inventory.WithFailureThreshold(2),
			inventory.WithOpenTimeout(time.Hour))

		Convey("When failures reach the threshold", func() {
			_, err1 := b.Exists(ctx, 1, model.CategoryCPU)
			_, err2 := b.Exists(ctx, 2, model.CategoryCPU)

			Convey("Then the underlying errors pass through until the circuit opens", func() {
				So(err1, ShouldNotBeNil)
				So(errors.Is(err1, inventory.ErrOracleUnavailable), ShouldBeFalse)
				So(err2, ShouldNotBeNil)
				So(b.State(), ShouldEqual, "open")
			})

			Convey("Then further lookups fail fast without reaching the oracle", func() {
				ok, err := b.Exists(ctx, 3, model.CategoryCPU)
				So(ok, ShouldBeFalse)
				So(errors.Is(err, inventory.ErrOracleUnavailable), ShouldBeTrue)
				So(next.calls, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a breaker over a healthy oracle", t, func() {
		b := inventory.NewBreakerOracle(&flakyOracle{})
		ok, err := b.Exists(ctx, 1, model.CategoryGPU)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(b.State(), ShouldEqual, "closed")
	})

	Convey("Given cancelled requests", t, func() {
		next := &flakyOracle{err: context.Canceled}
		b := inventory.NewBreakerOracle(next, inventory.WithFailureThreshold(1))
		_, _ = b.Exists(ctx, 1, model.CategoryGPU)
		_, _ = b.Exists(ctx, 1, model.CategoryGPU)
		So(b.State(), ShouldEqual, "closed")
	})
}

func TestStaticOracle(t *testing.T) {
	Convey("Given a static key set", t, func() {
		o := inventory.NewStaticOracle(model.Key{ID: 1, Category: model.CategoryCPU})
		o.Add(model.Key{ID: 2, Category: model.CategoryRAM})

		ok, _ := o.Exists(context.Background(), 1, model.CategoryCPU)
		So(ok, ShouldBeTrue)
		ok, _ = o.Exists(context.Background(), 2, model.CategoryRAM)
		So(ok, ShouldBeTrue)
		ok, _ = o.Exists(context.Background(), 1, model.CategoryRAM)
		So(ok, ShouldBeFalse)
	})
}
