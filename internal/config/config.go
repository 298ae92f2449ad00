// Package config loads the DeSynth configuration: built-in defaults, then an
// optional YAML file, then DESYNTH_* environment variables.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"DeSynth/internal/logging"
	"DeSynth/pkg/cache"
	"DeSynth/pkg/classifier"
	"DeSynth/pkg/filehandler"
	"DeSynth/pkg/models"
	"DeSynth/pkg/pipeline"
)

// Config is the complete application configuration
type Config struct {
	Log        logging.Config       `koanf:"log"`
	Pipeline   PipelineConfig       `koanf:"pipeline"`
	Classifier ClassifierConfig     `koanf:"classifier"`
	Cache      CacheConfig          `koanf:"cache"`
	S3         filehandler.S3Config `koanf:"s3"`
	Metrics    MetricsConfig        `koanf:"metrics"`
}

// PipelineConfig holds the run options and stage limits
type PipelineConfig struct {
	Disabled      []string `koanf:"disabled" validate:"dive,oneof=visual metadata physics frequency ml provenance"`
	Models        []string `koanf:"models" validate:"unique,dive,required"`
	Randomize     bool     `koanf:"randomize"`
	Seed          uint64   `koanf:"seed"`
	MLConcurrency int64    `koanf:"ml_concurrency" validate:"min=1,max=256"`
	MaxPixels     int      `koanf:"max_pixels" validate:"min=0"`
}

// ClassifierConfig describes the remote model server. An empty URL disables the ML module.
type ClassifierConfig struct {
	URL              string        `koanf:"url" validate:"omitempty,url"`
	Models           []string      `koanf:"models" validate:"required_with=URL,unique,dive,required"`
	Timeout          time.Duration `koanf:"timeout" validate:"min=0"`
	Rate             float64       `koanf:"rate" validate:"min=0"`
	Burst            int           `koanf:"burst" validate:"min=0"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"min=0"`
}

// Cache backends
const (
	CacheBackendBadger = "badger"
	CacheBackendRedis  = "redis"
)

// CacheConfig controls the result cache. The badger backend is embedded; the
// redis backend lets several workers share results.
type CacheConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Backend       string        `koanf:"backend" validate:"oneof=badger redis"`
	Path          string        `koanf:"path" validate:"required_if=Enabled true InMemory false Backend badger"`
	InMemory      bool          `koanf:"in_memory"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=Enabled true Backend redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
	TTL           time.Duration `koanf:"ttl" validate:"min=0"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	remote := classifier.DefaultRemoteConfig("", "")
	return &Config{
		Log: logging.DefaultConfig(),
		Pipeline: PipelineConfig{
			MLConcurrency: 4,
			MaxPixels:     0, // standardizer default
		},
		Classifier: ClassifierConfig{
			Timeout:          remote.Timeout,
			Rate:             remote.Rate,
			Burst:            remote.Burst,
			FailureThreshold: remote.FailureThreshold,
			OpenTimeout:      remote.OpenTimeout,
		},
		Cache: CacheConfig{
			Backend:   CacheBackendBadger,
			Path:      ".desynth-cache",
			RedisAddr: "localhost:6379",
			TTL:       7 * 24 * time.Hour,
		},
		S3: filehandler.DefaultS3Config(),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	return c.Options().Validate()
}

// Options converts the pipeline section into per-run options
func (c *Config) Options() pipeline.Options {
	opts := pipeline.Options{
		Models:    c.Pipeline.Models,
		Randomize: c.Pipeline.Randomize,
		Seed:      c.Pipeline.Seed,
	}
	for _, m := range c.Pipeline.Disabled {
		opts.Disabled = append(opts.Disabled, models.Module(m))
	}
	return opts
}

// PipelineConfig returns the stage configuration with the configured limits applied
func (c *Config) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Ensemble.Concurrency = c.Pipeline.MLConcurrency
	cfg.MaxPixels = c.Pipeline.MaxPixels
	return cfg
}

// Classifier builds the remote classifier registry, or nil when no URL is configured
func (c *Config) Classifier() classifier.Classifier {
	if c.Classifier.URL == "" {
		return nil
	}
	reg := classifier.NewRegistry()
	for _, model := range c.Classifier.Models {
		reg.Register(classifier.NewRemote(classifier.RemoteConfig{
			Model:            model,
			URL:              c.Classifier.URL,
			Timeout:          c.Classifier.Timeout,
			Rate:             c.Classifier.Rate,
			Burst:            c.Classifier.Burst,
			FailureThreshold: c.Classifier.FailureThreshold,
			OpenTimeout:      c.Classifier.OpenTimeout,
		}, nil))
	}
	return reg
}

// OpenCache opens the result cache, or returns nil when caching is disabled
func (c *Config) OpenCache() (cache.Cache, error) {
	if !c.Cache.Enabled {
		return nil, nil
	}

	if c.Cache.Backend == CacheBackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := cache.OpenRedis(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			TTL:      c.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("open result cache: %w", err)
		}
		return store, nil
	}

	store, err := cache.Open(cache.Config{Path: c.Cache.Path, InMemory: c.Cache.InMemory, TTL: c.Cache.TTL})
	if err != nil {
		return nil, fmt.Errorf("open result cache: %w", err)
	}
	return store, nil
}
