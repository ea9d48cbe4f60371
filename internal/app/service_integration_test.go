package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rigmatch/internal/adapters/dataset"
	"github.com/okian/rigmatch/internal/adapters/inventory"
	"github.com/okian/rigmatch/internal/adapters/modelstore"
	service "github.com/okian/rigmatch/internal/app"
	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	cpuDataset = `id,model_name,brand,price,socket,cores,threads,tdp
1,Ryzen 7 7700X,AMD,299,AM5,8,16,105
2,Ryzen 5 7600,AMD,229,AM5,6,12,65
3,Core i7-13700K,Intel,409,LGA1700,16,24,125
`
	gpuDataset = `id,model_name,brand,price,vram,tdp,length_mm
1,RTX 4090,NVIDIA,1599,24,450,336
2,RX 7800 XT,AMD,499,16,263,267
`
	psuDataset = `id,model_name,brand,price,wattage
1,RM650,Corsair,89,650
2,SF450,Corsair,99,450
`
)

func writeDatasets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[model.Category]string{
		model.CategoryCPU: cpuDataset,
		model.CategoryGPU: gpuDataset,
		model.CategoryPSU: psuDataset,
	}
	for c, body := range files {
		if err := os.WriteFile(filepath.Join(dir, dataset.FileName(c)), []byte(body), 0o600); err != nil {
			t.Fatalf("write dataset: %v", err)
		}
	}
	return dir
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to datasets, a sqlite inventory and a model file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		dir := writeDatasets(t)
		inv, err := inventory.Open(ctx, filepath.Join(t.TempDir(), "assemble.db"))
		So(err, ShouldBeNil)
		defer func() { _ = inv.Close() }()
		So(inv.EnsureSchema(ctx), ShouldBeNil)

		// a stocked GPU with a length the datasets do not have
		stockedID, err := inv.Add(ctx, model.CategoryGPU, map[string]any{
			"id": 10.0, "model_name": "RTX 4070", "brand": "NVIDIA", "price": 599.0,
			"vram": 12.0, "tdp": 200.0, "length_mm": 240.0,
		})
		So(err, ShouldBeNil)

		loader := catalog.NewCombinedLoader(nil,
			catalog.NamedLoader{Name: "datasets", Loader: dataset.NewCSVLoader(dir)},
			catalog.NamedLoader{Name: "inventory", Loader: inv},
		)
		svc := service.New(loader,
			service.WithOracle(inventory.NewBreakerOracle(inv)),
			service.WithInventory(inv),
			service.WithModelStore(modelstore.NewFileStore(filepath.Join(t.TempDir(), "model.gob.gz"))),
		)
		defer svc.Stop()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When asking for GPUs compatible with a small PSU", func() {
			res, err := svc.Compatible(ctx, map[string]int{"psu": 2}, "gpu", 5, false)
			So(err, ShouldBeNil)

			Convey("Then the stocked card comes first and reference cards follow", func() {
				So(len(res.Items), ShouldEqual, 3)
				So(res.Items[0].ID, ShouldEqual, stockedID)
				So(res.Items[0].AvailabilityStatus, ShouldEqual, types.StatusAvailable)
				So(res.Items[0].Notes, ShouldContain, "Sufficient PSU power")
				for _, it := range res.ReferenceOnly() {
					So(it.AvailabilityStatus, ShouldEqual, types.StatusReference)
				}
			})
		})

		Convey("When asking strictly for similar GPUs", func() {
			res, err := svc.Similar(ctx, 1, "gpu", 5, true)
			So(err, ShouldBeNil)

			Convey("Then only the stocked card is returned", func() {
				So(len(res.Items), ShouldEqual, 1)
				So(res.Items[0].ID, ShouldEqual, stockedID)
			})
		})

		Convey("When a component is synced into the inventory", func() {
			id, err := svc.AddInventoryComponent(ctx, "cpu", map[string]any{
				"id": 50.0, "model_name": "Ryzen 9 7950X", "brand": "AMD", "socket": "AM5", "cores": 16.0,
			})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 50)

			Convey("Then it is stocked and appears after the rebuild", func() {
				ok, err := inv.Exists(ctx, id, model.CategoryCPU)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(waitFor(func() bool {
					c, ok := svc.Snapshot().Lookup(model.Key{ID: id, Category: model.CategoryCPU})
					return ok && c.Availability == model.AvailabilityPurchasable
				}), ShouldBeTrue)
			})
		})
	})
}
