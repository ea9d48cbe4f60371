package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() []model.Component {
	return []model.Component{
		{ID: 1, Category: model.CategoryCPU, Brand: "AMD", Specs: model.CPUSpecs{Socket: "AM5", Cores: model.Float(8)}},
		{ID: 2, Category: model.CategoryCPU, Brand: "Intel", Specs: model.CPUSpecs{Socket: "LGA1700", Cores: model.Float(14)}},
		{ID: 1, Category: model.CategoryMotherboard, Brand: "ASUS", Specs: model.MotherboardSpecs{Socket: "AM5", MemoryType: "DDR5"}},
		{ID: 1, Category: model.CategoryCPU, Brand: "AMD", Availability: model.AvailabilityPurchasable, Specs: model.CPUSpecs{Socket: "AM5", Cores: model.Float(6)}},
	}
}

func TestBuild(t *testing.T) {
	Convey("Given a catalog with an id shared across categories and a duplicate key", t, func() {
		snap, err := catalog.Build(sample(), 3)
		So(err, ShouldBeNil)

		Convey("Then the snapshot carries metadata", func() {
			So(snap.Seq, ShouldEqual, 3)
			So(snap.Version, ShouldNotBeEmpty)
			So(snap.Fingerprint, ShouldHaveLength, 64)
			So(snap.Len(), ShouldEqual, 4)
			So(snap.Index.Len(), ShouldEqual, 4)
		})

		Convey("Then lookups are scoped by category", func() {
			c, ok := snap.Lookup(model.Key{ID: 1, Category: model.CategoryMotherboard})
			So(ok, ShouldBeTrue)
			So(c.Brand, ShouldEqual, "ASUS")
			_, ok = snap.Lookup(model.Key{ID: 2, Category: model.CategoryGPU})
			So(ok, ShouldBeFalse)
		})

		Convey("Then duplicate keys resolve to the first entry", func() {
			pos, ok := snap.Position(model.Key{ID: 1, Category: model.CategoryCPU})
			So(ok, ShouldBeTrue)
			So(pos, ShouldEqual, 0)
			So(snap.Len(), ShouldEqual, 4)
		})

		Convey("Then category positions keep catalog order", func() {
			So(snap.InCategory(model.CategoryCPU), ShouldResemble, []int{0, 1, 3})
			So(snap.Counts()[model.CategoryMotherboard], ShouldEqual, 1)
			So(snap.Counts(), ShouldResemble, map[model.Category]int{model.CategoryCPU: 3, model.CategoryMotherboard: 1})
		})

		Convey("Then rebuilding the same catalog keeps the fingerprint but not the version", func() {
			again, err := catalog.Build(sample(), 4)
			So(err, ShouldBeNil)
			So(again.Fingerprint, ShouldEqual, snap.Fingerprint)
			So(again.Version, ShouldNotEqual, snap.Version)
		})

		Convey("Then changing availability changes the fingerprint", func() {
			comps := sample()
			comps[1].Availability = model.AvailabilityPurchasable
			So(catalog.Fingerprint(comps, catalog.Encode(comps)), ShouldNotEqual, snap.Fingerprint)
		})
	})

	Convey("Given no components", t, func() {
		_, err := catalog.Build(nil, 1)
		So(errors.Is(err, catalog.ErrEmptyCatalog), ShouldBeTrue)
	})

	Convey("Given parts that disagree", t, func() {
		snap, _ := catalog.Build(sample(), 1)
		_, err := catalog.New(snap.Meta, sample()[:2], snap.Texts, snap.Index)
		So(errors.Is(err, catalog.ErrMismatch), ShouldBeTrue)
	})

	Convey("Given a nil snapshot", t, func() {
		var snap *catalog.Snapshot
		So(snap.Len(), ShouldEqual, 0)
		So(snap.InCategory(model.CategoryCPU), ShouldBeEmpty)
		_, ok := snap.Lookup(model.Key{ID: 1, Category: model.CategoryCPU})
		So(ok, ShouldBeFalse)
	})
}

func TestCombinedLoader(t *testing.T) {
	ctx := context.Background()
	one := catalog.LoaderFunc(func(context.Context) ([]model.Component, error) {
		return sample()[:1], nil
	})
	broken := catalog.LoaderFunc(func(context.Context) ([]model.Component, error) {
		return nil, errors.New("disk on fire")
	})
	empty := catalog.LoaderFunc(func(context.Context) ([]model.Component, error) {
		return nil, nil
	})

	Convey("Given a failing source between healthy ones", t, func() {
		l := catalog.NewCombinedLoader(nil,
			catalog.NamedLoader{Name: "dataset", Loader: one},
			catalog.NamedLoader{Name: "broken", Loader: broken},
			catalog.NamedLoader{Name: "inventory", Loader: one},
		)
		comps, err := l.Load(ctx)

		Convey("Then the failure is skipped and order is kept", func() {
			So(err, ShouldBeNil)
			So(len(comps), ShouldEqual, 2)
		})
	})

	Convey("Given sources that yield nothing", t, func() {
		l := catalog.NewCombinedLoader(nil,
			catalog.NamedLoader{Name: "broken", Loader: broken},
			catalog.NamedLoader{Name: "empty", Loader: empty},
		)
		_, err := l.Load(ctx)
		So(errors.Is(err, catalog.ErrEmptyCatalog), ShouldBeTrue)
	})
}
