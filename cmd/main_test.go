package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/kunstquiz/internal/adapters/repository"
	app "github.com/okian/kunstquiz/internal/app"
	"github.com/okian/kunstquiz/internal/config"
	"github.com/okian/kunstquiz/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const catalogDoc = `[
  {"id": 1, "title": "Skrik", "artist": "Edvard Munch", "url": ""},
  {"id": 2, "title": "Madonna", "artist": "Edvard Munch"},
  {"id": 3, "title": "Sommernatt", "artist": "Harriet Backer"},
  {"id": 4, "title": "Blått interiør", "artist": "Harriet Backer"},
  {"id": 5, "title": "Stalheim", "artist": "J.C. Dahl"},
  {"id": 6, "title": "Priestesses", "artist": "Nikolai Astrup"}
]`

func TestOpenStore(t *testing.T) {
	convey.Convey("Given store configurations", t, func() {
		ctx := context.Background()

		convey.Convey("When the memory driver is selected", func() {
			cfg := config.New()
			store, err := openStore(ctx, cfg)

			convey.Convey("Then an in-memory store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sqlite driver is selected", func() {
			cfg := config.New()
			cfg.StoreDriver = config.StoreSQLite
			cfg.StoreDSN = filepath.Join(t.TempDir(), "ratings.db")
			store, err := openStore(ctx, cfg)

			convey.Convey("Then a sqlite store is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := store.(*repository.SQLiteStore)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})
	})
}

func TestLoadCatalog(t *testing.T) {
	convey.Convey("Given catalog settings", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When no catalog path is set", func() {
			items, lookup, err := loadCatalog(ctx, cfg, logger.Nop())

			convey.Convey("Then nothing is loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(items, convey.ShouldBeNil)
				convey.So(lookup, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the catalog file exists", func() {
			cfg.CatalogPath = filepath.Join(t.TempDir(), "paintings.json")
			convey.So(os.WriteFile(cfg.CatalogPath, []byte(catalogDoc), 0o600), convey.ShouldBeNil)
			items, _, err := loadCatalog(ctx, cfg, logger.Nop())

			convey.Convey("Then its items are decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(items, convey.ShouldHaveLength, 6)
			})
		})

		convey.Convey("When the catalog file is missing", func() {
			cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.json")
			_, _, err := loadCatalog(ctx, cfg, logger.Nop())

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "read catalog")
			})
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given configuration with a custom filter", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.PrefetchWorkers = 0
		cfg.RoundLength = 4
		cfg.Filters = []config.FilterSpec{{ID: "munch", Name: "Munch", Mode: "equals", Fields: []string{"group"}, Values: []string{"Edvard Munch"}}}

		svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), nil, logger.Nop())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		convey.Convey("Then the service carries the configured settings", func() {
			stats := svc.GetStats()
			convey.So(stats["roundLength"], convey.ShouldEqual, 4)
			convey.So(stats["prefetchWorkers"], convey.ShouldEqual, 0)

			ids := map[string]bool{}
			for _, f := range svc.Filters() {
				ids[f.ID] = true
			}
			convey.So(ids["munch"], convey.ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.PrefetchWorkers = 0
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("When run is called", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given an unreadable catalog", t, func() {
		cfg := config.New()
		cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.json")

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
