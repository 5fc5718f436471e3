package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/kunstquiz/internal/domain/catalog"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/okian/kunstquiz/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func item(id, key, movement string) model.Item {
	attrs := map[string][]string{}
	if movement != "" {
		attrs["movement"] = []string{movement}
	}
	return model.Item{ID: id, Subject: "Painting " + id, GroupKey: key, Attributes: attrs}
}

func newCatalog(opts ...catalog.Option) *catalog.Catalog {
	reg, err := filter.NewRegistry(filter.Defaults()...)
	if err != nil {
		panic(err)
	}
	return catalog.New(reg, opts...)
}

func TestCatalogLoad(t *testing.T) {
	convey.Convey("Given a catalog", t, func() {
		ctx := context.Background()
		c := newCatalog(catalog.WithDimensions(model.DimensionGroup, "movement"))

		convey.Convey("When loading a mix of usable and broken items", func() {
			stats, err := c.Load(ctx, []model.Item{
				item("1", "Edvard Munch", "Expressionism"),
				item("2", "Edvard Munch", "Symbolism"),
				item("3", "J.C. Dahl", "Romanticism"),
				item("4", "", "Romanticism"),
				item("", "Anon", "Baroque"),
				item("1", "Edvard Munch", "Duplicate"),
			})

			convey.Convey("Then broken and duplicate items are dropped and counted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Usable, convey.ShouldEqual, 3)
				convey.So(stats.Rejected, convey.ShouldEqual, 3)
				convey.So(stats.Version, convey.ShouldEqual, 1)
				convey.So(c.Len(), convey.ShouldEqual, 3)
			})

			convey.Convey("Then distinct values are sorted per dimension", func() {
				convey.So(c.DistinctValues("movement"), convey.ShouldResemble, []string{"Expressionism", "Romanticism", "Symbolism"})
				convey.So(c.DistinctValues(model.DimensionGroup), convey.ShouldResemble, []string{"Edvard Munch", "J.C. Dahl"})
			})
		})

		convey.Convey("When IDs differ only by padding", func() {
			stats, err := c.Load(ctx, []model.Item{
				item("a", "Edvard Munch", "Expressionism"),
				item(" a", "J.C. Dahl", "Romanticism"),
				item("a ", "Hans Gude", "Romanticism"),
			})

			convey.Convey("Then they count as one item", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Usable, convey.ShouldEqual, 1)
				convey.So(stats.Rejected, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When values differ only in case", func() {
			_, err := c.Load(ctx, []model.Item{
				item("1", "Edvard Munch", "Expressionism"),
				item("2", "Harriet Backer", "realism"),
				item("3", "Christian Krohg", "Realism"),
				item("4", "Kitty Kielland", "REALISM"),
			})

			convey.Convey("Then one spelling is kept per value", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.DistinctValues("movement"), convey.ShouldResemble, []string{"Expressionism", "realism"})
			})
		})

		convey.Convey("When a load has no usable item", func() {
			_, _ = c.Load(ctx, []model.Item{item("1", "Edvard Munch", "Expressionism")})
			_, err := c.Load(ctx, []model.Item{item("9", "", "")})

			convey.Convey("Then ErrEmptyCatalog is returned and the previous set is kept", func() {
				convey.So(errors.Is(err, catalog.ErrEmptyCatalog), convey.ShouldBeTrue)
				convey.So(c.Len(), convey.ShouldEqual, 1)
				convey.So(c.Version(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When nothing has been loaded", func() {
			_, err := c.View(ctx, filter.AllID)

			convey.Convey("Then views report an empty catalog", func() {
				convey.So(errors.Is(err, catalog.ErrEmptyCatalog), convey.ShouldBeTrue)
			})
		})
	})
}

func TestCatalogView(t *testing.T) {
	convey.Convey("Given a loaded catalog", t, func() {
		ctx := context.Background()
		c := newCatalog(catalog.WithDimensions(model.DimensionGroup, "movement"))
		items := []model.Item{
			item("1", "Edvard Munch", "Expressionism"),
			item("2", "Edvard Munch", "Expressionism"),
			item("3", "Edvard Munch", "Symbolism"),
			item("4", "Harriet Backer", "Realism"),
			item("5", "Christian Krohg", "Realism"),
		}
		_, err := c.Load(ctx, items)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When requesting a filtered view", func() {
			v, err := c.View(ctx, "realism")

			convey.Convey("Then only matching items and their aggregates are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(v.Count(), convey.ShouldEqual, 2)
				convey.So(v.DistinctKeys, convey.ShouldEqual, 2)
				convey.So(v.MaxKeyCount, convey.ShouldEqual, 1)
				convey.So(v.Version, convey.ShouldEqual, c.Version())
			})

			convey.Convey("Then a second request returns the cached view", func() {
				again, err := c.View(ctx, "realism")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldPointTo, v)
			})
		})

		convey.Convey("When requesting the all view", func() {
			v, err := c.View(ctx, filter.AllID)

			convey.Convey("Then key counts cover the catalog", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(v.Count(), convey.ShouldEqual, 5)
				convey.So(v.KeyCounts["Edvard Munch"], convey.ShouldEqual, 3)
				convey.So(v.MaxKeyCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When requesting the top filter", func() {
			reg, _ := filter.NewRegistry(filter.Spec{ID: "top1", Mode: filter.ModeTop, Limit: 1})
			top := catalog.New(reg)
			_, _ = top.Load(ctx, items)
			v, err := top.View(ctx, "top1")

			convey.Convey("Then only the most frequent key remains", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(v.DistinctKeys, convey.ShouldEqual, 1)
				convey.So(v.Items[0].GroupKey, convey.ShouldEqual, "Edvard Munch")
			})
		})

		convey.Convey("When a filter matches nothing", func() {
			v, err := c.View(ctx, "technology")

			convey.Convey("Then an empty view is returned without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(v.Empty(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the filter is unknown", func() {
			_, err := c.View(ctx, "cubism")

			convey.Convey("Then ErrUnknownFilter is returned", func() {
				convey.So(errors.Is(err, catalog.ErrUnknownFilter), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the catalog is reloaded or invalidated", func() {
			before, _ := c.View(ctx, filter.AllID)
			c.Invalidate()
			afterInvalidate, _ := c.View(ctx, filter.AllID)
			_, _ = c.Load(ctx, items[:2])
			afterLoad, _ := c.View(ctx, filter.AllID)

			convey.Convey("Then views are rebuilt", func() {
				convey.So(afterInvalidate, convey.ShouldNotPointTo, before)
				convey.So(afterLoad.Count(), convey.ShouldEqual, 2)
				convey.So(afterLoad.Version, convey.ShouldEqual, before.Version+1)
			})
		})

		convey.Convey("When a lookup table is attached", func() {
			lc := newCatalog(catalog.WithLookup(filter.Lookup{"Harriet Backer": {"gender": {"female"}}}))
			_, _ = lc.Load(ctx, items)
			v, err := lc.View(ctx, "female_artists")

			convey.Convey("Then lookup filters resolve through it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(v.Count(), convey.ShouldEqual, 1)
				convey.So(v.Items[0].GroupKey, convey.ShouldEqual, "Harriet Backer")
			})
		})

		convey.Convey("When many readers request views concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 32)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := []string{filter.AllID, "realism", "expressionism", "popular"}[i%4]
					if _, err := c.View(ctx, id); err != nil {
						errs <- fmt.Errorf("%s: %w", id, err)
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every request succeeds", func() {
				convey.So(len(errs), convey.ShouldEqual, 0)
			})
		})
	})
}
