package recommend_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/recommend"
	"github.com/okian/rigmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeOracle struct {
	stocked map[model.Key]bool
	err     error
	calls   int
}

func (f *fakeOracle) Exists(_ context.Context, id int, c model.Category) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.stocked[model.Key{ID: id, Category: c}], nil
}

func stock(keys ...model.Key) *fakeOracle {
	o := &fakeOracle{stocked: map[model.Key]bool{}}
	for _, k := range keys {
		o.stocked[k] = true
	}
	return o
}

func cpu(id int, brand, socket string, cores float64) model.Component {
	return model.Component{
		ID: id, Category: model.CategoryCPU, ModelName: brand + " cpu", Brand: brand,
		Specs: model.CPUSpecs{Socket: socket, Cores: model.Float(cores), TDP: model.Float(65)},
	}
}

func fixture() []model.Component {
	return []model.Component{
		cpu(1, "AMD", "AM5", 8),
		cpu(2, "AMD", "AM5", 6),
		cpu(3, "AMD", "AM4", 8),
		cpu(4, "Intel", "LGA1700", 14),
		cpu(5, "Intel", "LGA1700", 20),
		{ID: 1, Category: model.CategoryMotherboard, Brand: "ASUS", Specs: model.MotherboardSpecs{Socket: "AM5", MemoryType: "DDR5"}},
		{ID: 1, Category: model.CategoryPSU, Brand: "Corsair", Specs: model.PSUSpecs{Wattage: model.Float(750)}},
		{ID: 2, Category: model.CategoryPSU, Brand: "Seasonic", Specs: model.PSUSpecs{Wattage: model.Float(650)}},
		{ID: 3, Category: model.CategoryPSU, Brand: "EVGA", Specs: model.PSUSpecs{Wattage: model.Float(500)}},
	}
}

func snapshot(comps []model.Component) *catalog.Snapshot {
	snap, err := catalog.Build(comps, 1)
	So(err, ShouldBeNil)
	return snap
}

func key(id int, c model.Category) model.Key { return model.Key{ID: id, Category: c} }

func TestSimilar(t *testing.T) {
	ctx := context.Background()

	Convey("Given a catalog of processors", t, func() {
		snap := snapshot(fixture())
		oracle := stock(key(3, model.CategoryCPU), key(5, model.CategoryCPU))
		r := recommend.New(oracle)

		Convey("When asking for non-strict similar parts", func() {
			res, err := r.Similar(ctx, snap, 1, model.CategoryCPU, 3, false)
			So(err, ShouldBeNil)

			Convey("Then the anchor is excluded and every item shares its category", func() {
				So(len(res.Items), ShouldBeLessThanOrEqualTo, 3)
				So(len(res.Items), ShouldEqual, 3)
				for _, it := range res.Items {
					So(it.ID, ShouldNotEqual, 1)
					So(it.Category, ShouldEqual, "cpu")
				}
			})

			Convey("Then the closest sibling ranks first", func() {
				So(res.Items[0].ID, ShouldEqual, 2)
				for i := 1; i < len(res.Items); i++ {
					So(res.Items[i-1].Score, ShouldBeGreaterThanOrEqualTo, res.Items[i].Score)
				}
			})

			Convey("Then items are annotated by the oracle", func() {
				for _, it := range res.Items {
					So(it.Purchasable, ShouldEqual, oracle.stocked[key(it.ID, model.CategoryCPU)])
					So(it.AvailabilityStatus, ShouldEqual, types.StatusFor(it.Purchasable))
					So(it.Reason, ShouldContainSubstring, "cores")
				}
				So(res.Mode, ShouldEqual, types.ModeSimilar)
				So(res.SnapshotVersion, ShouldEqual, snap.Version)
			})

			Convey("Then repeating the query returns the same ordered result", func() {
				again, err := r.Similar(ctx, snap, 1, model.CategoryCPU, 3, false)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When asking for strict similar parts", func() {
			res, err := r.Similar(ctx, snap, 1, model.CategoryCPU, 5, true)
			So(err, ShouldBeNil)

			Convey("Then only purchasable components are returned", func() {
				So(len(res.Items), ShouldEqual, 2)
				for _, it := range res.Items {
					So(it.Purchasable, ShouldBeTrue)
					So(it.AvailabilityStatus, ShouldEqual, types.StatusAvailable)
				}
				So(res.Strict, ShouldBeTrue)
			})
		})

		Convey("When the anchor does not exist", func() {
			_, err := r.Similar(ctx, snap, 99, model.CategoryCPU, 5, false)
			So(errors.Is(err, recommend.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the anchor id exists only in another category", func() {
			_, err := r.Similar(ctx, snap, 2, model.CategoryMotherboard, 5, false)
			So(errors.Is(err, recommend.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the count is not positive", func() {
			_, err := r.Similar(ctx, snap, 1, model.CategoryCPU, 0, false)
			So(errors.Is(err, recommend.ErrInvalidCount), ShouldBeTrue)
		})

		Convey("When the anchor is alone in its category", func() {
			res, err := r.Similar(ctx, snap, 1, model.CategoryMotherboard, 5, false)

			Convey("Then the result is empty and labeled", func() {
				So(err, ShouldBeNil)
				So(res.Items, ShouldBeEmpty)
				So(res.Note, ShouldEqual, "no motherboard candidates in catalog")
			})
		})

		Convey("When the oracle is failing", func() {
			failing := &fakeOracle{err: errors.New("database is locked")}
			res, err := recommend.New(failing).Similar(ctx, snap, 1, model.CategoryCPU, 5, true)

			Convey("Then strict mode fails closed with no items", func() {
				So(err, ShouldBeNil)
				So(res.Items, ShouldBeEmpty)
				So(failing.calls, ShouldEqual, 4)
			})
		})
	})

	Convey("Given a catalog with a duplicated anchor key", t, func() {
		comps := append(fixture(), cpu(1, "AMD", "AM5", 8))
		snap := snapshot(comps)

		Convey("Then no entry carrying the anchor key is returned", func() {
			res, err := recommend.New(nil).Similar(ctx, snap, 1, model.CategoryCPU, 10, false)
			So(err, ShouldBeNil)
			So(len(res.Items), ShouldEqual, 4)
			for _, it := range res.Items {
				So(it.ID, ShouldNotEqual, 1)
				So(it.Purchasable, ShouldBeFalse)
			}
		})
	})

	Convey("Given no snapshot", t, func() {
		_, err := recommend.New(nil).Similar(ctx, nil, 1, model.CategoryCPU, 5, false)
		So(errors.Is(err, recommend.ErrNotTrained), ShouldBeTrue)
	})
}

func TestCompatible(t *testing.T) {
	ctx := context.Background()

	Convey("Given a catalog with stocked and reference processors", t, func() {
		comps := fixture()
		comps[1].Availability = model.AvailabilityPurchasable // cpu 2, AM5
		comps[3].Availability = model.AvailabilityReferenceOnly
		snap := snapshot(comps)
		oracle := stock(key(2, model.CategoryCPU), key(4, model.CategoryCPU))
		r := recommend.New(oracle)
		build := model.Build{model.CategoryMotherboard: 1}

		Convey("When asking non-strict", func() {
			res, err := r.Compatible(ctx, snap, build, model.CategoryCPU, 2, false)
			So(err, ShouldBeNil)

			Convey("Then purchasable items come first and each partition is ranked", func() {
				p := res.Purchasable()
				ref := res.ReferenceOnly()
				So(len(p)+len(ref), ShouldEqual, len(res.Items))
				So(len(res.Items), ShouldBeLessThanOrEqualTo, 4)
				for i, it := range res.Items {
					if i < len(p) {
						So(it.Purchasable, ShouldBeTrue)
					} else {
						So(it.Purchasable, ShouldBeFalse)
					}
				}
				for _, part := range [][]types.Recommendation{p, ref} {
					for i := 1; i < len(part); i++ {
						So(part[i-1].Score, ShouldBeGreaterThanOrEqualTo, part[i].Score)
					}
				}
			})

			Convey("Then the catalog flag overrides the oracle when known", func() {
				So(res.Items[0].ID, ShouldEqual, 2)
				So(res.Items[0].Score, ShouldEqual, 0.5)
				So(res.Items[0].Notes, ShouldResemble, []string{"Socket compatible with motherboard"})
				for _, it := range res.Items {
					if it.ID == 4 {
						So(it.Purchasable, ShouldBeFalse)
					}
				}
			})
		})

		Convey("When asking strict", func() {
			res, err := r.Compatible(ctx, snap, build, model.CategoryCPU, 5, true)
			So(err, ShouldBeNil)

			Convey("Then only oracle-confirmed items are returned", func() {
				So(len(res.Items), ShouldEqual, 2)
				for _, it := range res.Items {
					So(it.Purchasable, ShouldBeTrue)
				}
				So(res.Items[0].ID, ShouldEqual, 2)
			})
		})

		Convey("When the build references unknown components", func() {
			res, err := r.Compatible(ctx, snap, model.Build{model.CategoryMotherboard: 42, model.CategoryGPU: 7}, model.CategoryCPU, 5, false)

			Convey("Then they are reported and ignored by the rules", func() {
				So(err, ShouldBeNil)
				So(res.Unresolved, ShouldResemble, []types.UnresolvedRef{
					{Category: "gpu", ID: 7},
					{Category: "motherboard", ID: 42},
				})
				for _, it := range res.Items {
					So(it.Score, ShouldEqual, 0)
					So(it.Notes, ShouldBeEmpty)
				}
			})
		})

		Convey("When the target category has no components", func() {
			res, err := r.Compatible(ctx, snap, build, model.CategoryGPU, 5, false)
			So(err, ShouldBeNil)
			So(res.Items, ShouldBeEmpty)
			So(res.Note, ShouldEqual, "no gpu candidates in catalog")
		})

		Convey("When the count is invalid", func() {
			_, err := r.Compatible(ctx, snap, build, model.CategoryCPU, -1, false)
			So(errors.Is(err, recommend.ErrInvalidCount), ShouldBeTrue)
		})
	})

	Convey("Given an empty build and the psu category", t, func() {
		snap := snapshot(fixture())
		res, err := recommend.New(stock()).Compatible(ctx, snap, model.Build{}, model.CategoryPSU, 5, false)

		Convey("Then every score is zero in catalog order without notes", func() {
			So(err, ShouldBeNil)
			So(len(res.Items), ShouldEqual, 3)
			for i, it := range res.Items {
				So(it.ID, ShouldEqual, i+1)
				So(it.Score, ShouldEqual, 0)
				So(it.Notes, ShouldBeEmpty)
			}
		})
	})
}

func TestCountAboveCatalogSize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a catalog smaller than the requested count", t, func() {
		snap := snapshot(fixture())
		r := recommend.New(stock(key(3, model.CategoryCPU), key(5, model.CategoryCPU)))
		build := model.Build{model.CategoryMotherboard: 1}

		Convey("When similar parts are requested with the largest count", func() {
			loose, err := r.Similar(ctx, snap, 1, model.CategoryCPU, math.MaxInt, false)
			So(err, ShouldBeNil)
			strict, err := r.Similar(ctx, snap, 1, model.CategoryCPU, math.MaxInt, true)
			So(err, ShouldBeNil)

			Convey("Then every candidate is returned once", func() {
				So(len(loose.Items), ShouldEqual, 4)
				So(len(strict.Items), ShouldEqual, 2)
			})
		})

		Convey("When compatible parts are requested with the largest count", func() {
			loose, err := r.Compatible(ctx, snap, build, model.CategoryCPU, math.MaxInt, false)
			So(err, ShouldBeNil)
			strict, err := r.Compatible(ctx, snap, build, model.CategoryCPU, math.MaxInt, true)
			So(err, ShouldBeNil)

			Convey("Then the result is bounded by the catalog", func() {
				So(len(loose.Items), ShouldEqual, 5)
				So(len(strict.Items), ShouldEqual, 2)
			})
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given components of different kinds", t, func() {
		c := cpu(1, "AMD", "AM5", 8)
		gpu := model.Component{Category: model.CategoryGPU, Specs: model.GPUSpecs{VRAM: model.Float(16)}}
		ram := model.Component{Category: model.CategoryRAM, Specs: model.RAMSpecs{Capacity: model.Float(32)}}
		psu := model.Component{Category: model.CategoryPSU, Specs: model.PSUSpecs{}}

		So(recommend.Reason(&c, 0.9), ShouldEqual, "Highly similar features, 8 cores")
		So(recommend.Reason(&gpu, 0.6), ShouldEqual, "Good feature match, 16GB VRAM")
		So(recommend.Reason(&ram, 0.2), ShouldEqual, "Moderate similarity, 32GB")
		So(recommend.Reason(&psu, 0.2), ShouldEqual, "Moderate similarity")
	})
}
