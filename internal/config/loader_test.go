package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/kunstquiz/internal/config"
	"github.com/okian/kunstquiz/internal/domain/filter"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigNew(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the quiz defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Dimensions, convey.ShouldResemble, []string{"group"})
			convey.So(cfg.RoundLength, convey.ShouldEqual, 10)
			convey.So(cfg.RecencySize, convey.ShouldEqual, 3)
			convey.So(cfg.WeightCap, convey.ShouldEqual, 3.0)
			convey.So(cfg.RareBonus, convey.ShouldEqual, 1.2)
			convey.So(cfg.InitialRating, convey.ShouldEqual, 800)
			convey.So(cfg.KCorrect, convey.ShouldEqual, 50)
			convey.So(cfg.KIncorrect, convey.ShouldEqual, 20)
			convey.So(cfg.Baseline, convey.ShouldEqual, 0.25)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RoundLength, convey.ShouldEqual, 10)
				convey.So(cfg.CatalogFormat, convey.ShouldEqual, config.FormatPaintings)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("QUIZ_ADDR", ":8080")
			_ = os.Setenv("QUIZ_ROUND_LENGTH", "5")
			_ = os.Setenv("QUIZ_DIMENSIONS", "group,genre")
			_ = os.Setenv("QUIZ_WEIGHT_CAP", "2.5")
			_ = os.Setenv("QUIZ_SEED", "42")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RoundLength, convey.ShouldEqual, 5)
				convey.So(cfg.Dimensions, convey.ShouldResemble, []string{"group", "genre"})
				convey.So(cfg.WeightCap, convey.ShouldEqual, 2.5)
				convey.So(cfg.Seed, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempFile("kunstquiz-config-*.yaml", `
addr: ":9090"
catalog_format: holdings
dimensions: [country, industry]
store_driver: sqlite
store_dsn: /tmp/quiz.db
filters:
  - id: nordics
    name: Nordics
    mode: equals
    fields: [country]
    values: [Norway, Sweden, Denmark]
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUIZ_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CatalogFormat, convey.ShouldEqual, config.FormatHoldings)
				convey.So(cfg.Dimensions, convey.ShouldResemble, []string{"country", "industry"})
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.Filters, convey.ShouldHaveLength, 1)
				convey.So(cfg.Filters[0].ID, convey.ShouldEqual, "nordics")
				convey.So(cfg.Filters[0].Values, convey.ShouldResemble, []string{"Norway", "Sweden", "Denmark"})
				convey.So(cfg.RoundLength, convey.ShouldEqual, 10) // from defaults

				specs := cfg.FilterSpecs()
				convey.So(specs, convey.ShouldHaveLength, 1)
				convey.So(specs[0].Mode, convey.ShouldEqual, filter.ModeEquals)
				convey.So(specs[0].Fields, convey.ShouldResemble, []string{"country"})
				convey.So(specs[0].Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempFile("kunstquiz-config-*.yaml", "addr: \":9090\"\nround_length: 7\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUIZ_CONFIG", tmpFile)
			_ = os.Setenv("QUIZ_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RoundLength, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When a .env file is provided", func() {
			dotEnv := createTempFile("kunstquiz-*.env", "QUIZ_RECENCY_SIZE=5\nQUIZ_ADDR=:7070\n")
			defer func() { _ = os.Remove(dotEnv) }()
			_ = os.Setenv("QUIZ_ENV_FILE", dotEnv)
			_ = os.Setenv("QUIZ_ADDR", ":6060")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills unset variables without overriding the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RecencySize, convey.ShouldEqual, 5)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the .env file named explicitly is missing", func() {
			_ = os.Setenv("QUIZ_ENV_FILE", "/non/existent/.env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("kunstquiz-config-*.yaml", `invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("QUIZ_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("QUIZ_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("QUIZ_ROUND_LENGTH", "ten")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("QUIZ_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			_ = os.Setenv("QUIZ_STORE_DRIVER", "redis")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "store_driver")
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := config.Load(cctx)

			convey.Convey("Then it should return the context error", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"round_length":        func(c *config.Config) { c.RoundLength = 0 },
			"dimensions":          func(c *config.Config) { c.Dimensions = nil },
			"weight_cap":          func(c *config.Config) { c.WeightCap = 0.5 },
			"baseline":            func(c *config.Config) { c.Baseline = 1.5 },
			"k_correct":           func(c *config.Config) { c.KCorrect, c.KIncorrect = 20, 50 },
			"k_incorrect (30)":    func(c *config.Config) { c.KCorrect, c.KIncorrect = 30, 30 },
			"catalog_format":      func(c *config.Config) { c.CatalogFormat = "csv" },
			"store_dsn":           func(c *config.Config) { c.StoreDriver, c.StoreDSN = config.StoreSQLite, "" },
			"prefetch_queue_size": func(c *config.Config) { c.PrefetchWorkers, c.PrefetchQueueSize = 2, 0 },
			"filters[0]":          func(c *config.Config) { c.Filters = []config.FilterSpec{{Mode: "all"}} },
		}

		for key, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, key)
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"QUIZ_CONFIG",
		"QUIZ_ENV_FILE",
		"QUIZ_ADDR",
		"QUIZ_ROUND_LENGTH",
		"QUIZ_DIMENSIONS",
		"QUIZ_WEIGHT_CAP",
		"QUIZ_SEED",
		"QUIZ_RECENCY_SIZE",
		"QUIZ_STORE_DRIVER",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
