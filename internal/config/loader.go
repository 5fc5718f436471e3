package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix   = "QUIZ_"
	envFile     = "QUIZ_CONFIG"
	envDotFile  = "QUIZ_ENV_FILE"
	defaultDotf = ".env"
)

// Load builds a Config by layering defaults, optional file, .env and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if QUIZ_CONFIG is set
//  3. .env file (QUIZ_ENV_FILE or ./.env); never overrides variables already set
//  4. env (prefix QUIZ_)
func Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// QUIZ_ROUND_LENGTH -> round_length; underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// Slices decode element-wise into existing values; start from empty when a layer sets them.
	for key, reset := range map[string]func(){
		"dimensions":   func() { cfg.Dimensions = nil },
		"cors_origins": func() { cfg.CORSOrigins = nil },
		"filters":      func() { cfg.Filters = nil },
	} {
		if k.Exists(key) {
			reset()
		}
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotf
	}
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: env file %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case len(c.Dimensions) == 0:
		return fmt.Errorf("%w: dimensions must not be empty", ErrInvalidConfig)
	case c.RoundLength <= 0:
		return fmt.Errorf("%w: round_length must be positive", ErrInvalidConfig)
	case c.RecencySize < 0:
		return fmt.Errorf("%w: recency_size must not be negative", ErrInvalidConfig)
	case c.WeightCap < 1:
		return fmt.Errorf("%w: weight_cap must be at least 1", ErrInvalidConfig)
	case c.RareBonus <= 0:
		return fmt.Errorf("%w: rare_bonus must be positive", ErrInvalidConfig)
	case c.MaxRebuilds <= 0:
		return fmt.Errorf("%w: max_rebuilds must be positive", ErrInvalidConfig)
	case c.KCorrect < 0 || c.KIncorrect < 0:
		return fmt.Errorf("%w: k factors must not be negative", ErrInvalidConfig)
	case c.KCorrect <= c.KIncorrect:
		return fmt.Errorf("%w: k_correct (%d) must exceed k_incorrect (%d)", ErrInvalidConfig, c.KCorrect, c.KIncorrect)
	case c.Baseline < 0 || c.Baseline > 1:
		return fmt.Errorf("%w: baseline must be within [0, 1]", ErrInvalidConfig)
	case c.CatalogFormat != FormatPaintings && c.CatalogFormat != FormatHoldings:
		return fmt.Errorf("%w: unknown catalog_format %q", ErrInvalidConfig, c.CatalogFormat)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.StoreDSN == "":
		return fmt.Errorf("%w: store_dsn is required for sqlite", ErrInvalidConfig)
	case c.PrefetchWorkers < 0:
		return fmt.Errorf("%w: prefetch_workers must not be negative", ErrInvalidConfig)
	case c.PrefetchWorkers > 0 && c.PrefetchQueueSize <= 0:
		return fmt.Errorf("%w: prefetch_queue_size must be positive", ErrInvalidConfig)
	}
	for i, f := range c.Filters {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("%w: filters[%d] has no id", ErrInvalidConfig, i)
		}
	}
	return nil
}
