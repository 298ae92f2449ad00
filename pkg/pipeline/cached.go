package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"

	"github.com/goccy/go-json"

	"DeSynth/internal/logging"
	"DeSynth/internal/metrics"
	"DeSynth/pkg/cache"
	"DeSynth/pkg/models"
)

// ModelLister is implemented by analyzers that can resolve an empty model
// selection to the models actually queried.
type ModelLister interface {
	Models() []string
}

// CachedAnalyzer serves repeated inputs from a result cache. Randomized runs
// always go to the wrapped analyzer and are never stored, and neither are
// results degraded by a failed model call.
type CachedAnalyzer struct {
	next  Analyzer
	store cache.Cache
}

// NewCachedAnalyzer fronts next with store
func NewCachedAnalyzer(next Analyzer, store cache.Cache) *CachedAnalyzer {
	return &CachedAnalyzer{next: next, store: store}
}

// Analyze returns the cached result for (data, opts) or computes and stores it
func (c *CachedAnalyzer) Analyze(ctx context.Context, data []byte, opts Options) (*models.PipelineResult, error) {
	if opts.Randomize {
		return c.next.Analyze(ctx, data, opts)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key := CacheKey(data, c.keyOptions(opts))
	r, err := c.store.Get(ctx, key)
	if err == nil {
		metrics.CacheHits.Inc()
		logging.Ctx(ctx).Debug().Str("key", key).Msg("result served from cache")
		return r, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache lookup failed")
	}
	metrics.CacheMisses.Inc()

	r, err = c.next.Analyze(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	if transient(r) {
		logging.Ctx(ctx).Debug().Str("key", key).Msg("degraded result not cached")
		return r, nil
	}
	if err := c.store.Put(ctx, key, r); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache store failed")
	}
	return r, nil
}

// keyOptions pins an empty model selection to the models the wrapped analyzer
// would query, so a changed classifier set misses the cache.
func (c *CachedAnalyzer) keyOptions(opts Options) Options {
	if len(opts.Models) > 0 {
		return opts
	}
	if l, ok := c.next.(ModelLister); ok {
		opts.Models = l.Models()
	}
	return opts
}

// transient reports whether r depends on something other than the input bytes
// and options, such as a model server being down.
func transient(r *models.PipelineResult) bool {
	for _, m := range r.Modules() {
		if m.HasFlag(models.FlagModelCallFailed) {
			return true
		}
	}
	return false
}

// CacheKey identifies a deterministic run: the SHA-256 of the bytes plus a
// digest of the options that change its outcome.
func CacheKey(data []byte, opts Options) string {
	sum := sha256.Sum256(data)

	disabled := slices.Clone(opts.Disabled)
	slices.Sort(disabled)
	disabled = slices.Compact(disabled)
	// Model order decides vote order, so it is kept
	digest, _ := json.Marshal(struct {
		Disabled []models.Module `json:"disabled"`
		Models   []string        `json:"models"`
	}{disabled, opts.Models})
	optSum := sha256.Sum256(digest)

	return hex.EncodeToString(sum[:]) + ":" + hex.EncodeToString(optSum[:8])
}
