// Package pipeline runs the standardizer, the evidence modules, fusion and the
// verdict builder over one image.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"DeSynth/internal/logging"
	"DeSynth/internal/metrics"
	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/frequency"
	"DeSynth/pkg/analyzer/metadata"
	"DeSynth/pkg/analyzer/physics"
	"DeSynth/pkg/analyzer/provenance"
	"DeSynth/pkg/analyzer/visual"
	"DeSynth/pkg/classifier"
	"DeSynth/pkg/ensemble"
	"DeSynth/pkg/fusion"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
	"DeSynth/pkg/verdict"
)

// Analyzer is anything that turns image bytes into a PipelineResult
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, opts Options) (*models.PipelineResult, error)
}

// Config holds the tuning of every stage. It is fixed for the life of a Pipeline.
type Config struct {
	Visual     visual.Config
	Metadata   metadata.Config
	Physics    physics.Config
	Frequency  frequency.Config
	Provenance provenance.Config
	Ensemble   ensemble.Config
	Fusion     fusion.Constants
	Thresholds verdict.Thresholds
	// MaxPixels bounds the decoded area of an input; zero means the standardizer default
	MaxPixels int
}

// DefaultConfig returns the default configuration of every stage
func DefaultConfig() Config {
	return Config{
		Visual:     visual.DefaultConfig(),
		Metadata:   metadata.DefaultConfig(),
		Physics:    physics.DefaultConfig(),
		Frequency:  frequency.DefaultConfig(),
		Provenance: provenance.DefaultConfig(),
		Ensemble:   ensemble.DefaultConfig(),
		Fusion:     fusion.DefaultConstants(),
		Thresholds: verdict.DefaultThresholds(),
	}
}

// Pipeline is safe for concurrent use. Runs share nothing but the ensemble's
// classifier concurrency bound.
type Pipeline struct {
	cfg        Config
	registry   *analyzer.Registry
	classifier classifier.Classifier
}

// New builds a pipeline. cls may be nil, in which case the ML module is always disabled.
func New(cfg Config, cls classifier.Classifier) *Pipeline {
	registry := analyzer.NewRegistry()
	for _, a := range []analyzer.Analyzer{
		visual.New(cfg.Visual),
		metadata.New(cfg.Metadata),
		physics.New(cfg.Physics),
		frequency.New(cfg.Frequency),
		ensemble.New(cls, cfg.Ensemble),
		provenance.New(cfg.Provenance),
	} {
		// Every built-in analyzer reports a valid module
		_ = registry.Register(a)
	}
	return &Pipeline{cfg: cfg, registry: registry, classifier: cls}
}

// Registry exposes the analyzers of the pipeline
func (p *Pipeline) Registry() *analyzer.Registry {
	return p.registry
}

// Models lists the models a run with no explicit selection would query
func (p *Pipeline) Models() []string {
	if p.classifier == nil {
		return nil
	}
	return p.classifier.Models()
}

// Analyze runs one complete analysis. The only errors are invalid options, a
// standardize.ValidationError for unusable input, and cancellation of ctx.
func (p *Pipeline) Analyze(ctx context.Context, data []byte, opts Options) (*models.PipelineResult, error) {
	if err := opts.Validate(); err != nil {
		metrics.AnalysisFailures.WithLabelValues("options").Inc()
		return nil, err
	}
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRunID(ctx, logging.NewRunID())
	}
	log := logging.Ctx(ctx)
	runStart := time.Now()

	start := time.Now()
	img, err := standardize.Standardize(ctx, data, standardize.Options{
		Randomize: opts.Randomize,
		Seed:      opts.Seed,
		MaxPixels: p.cfg.MaxPixels,
	})
	if err != nil {
		return nil, p.fail(ctx, "standardize", err)
	}
	metrics.RecordStage("standardize", start)
	log.Debug().
		Str("sha256", img.Hashes.SHA256).
		Str("format", img.Metadata.Format).
		Int("width", img.SourceWidth).
		Int("height", img.SourceHeight).
		Msg("image standardized")

	result := &models.PipelineResult{
		SchemaVersion: models.SchemaVersion,
		Hashes:        img.Hashes,
		Image:         img.Info(),
	}
	in := &analyzer.Input{Image: img, Raw: data, Models: opts.Models}

	// Each producer writes only its own slot of result, so no locking is needed
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range models.AllModules {
		slot := result.Module(m)
		a, ok := p.registry.Get(m)
		if !ok || !opts.Enabled(m) {
			*slot = models.DisabledResult(m)
			continue
		}
		g.Go(func() error {
			start := time.Now()
			r, err := a.Analyze(gctx, in)
			if err != nil {
				return fmt.Errorf("%s analyzer: %w", m, err)
			}
			metrics.RecordStage(string(m), start)
			logModule(ctx, r, time.Since(start))
			*slot = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, p.fail(ctx, "analyze", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, "fusion", err)
	}

	start = time.Now()
	result.Fusion = fusion.Fuse(fusion.InputFrom(result), p.cfg.Fusion)
	result.Verdict = verdict.Build(result.Fusion, result.Modules(), p.cfg.Thresholds)
	metrics.RecordStage("fusion", start)

	metrics.AnalysesTotal.WithLabelValues(string(result.Verdict.Verdict)).Inc()
	log.Info().
		Str("sha256", result.Hashes.SHA256).
		Str("verdict", string(result.Verdict.Verdict)).
		Float64("confidence", result.Verdict.Confidence).
		Float64("uncertainty", result.Verdict.Uncertainty).
		Dur("took", time.Since(runStart)).
		Msg("analysis complete")
	return result, nil
}

func (p *Pipeline) fail(ctx context.Context, stage string, err error) error {
	reason := "internal"
	var verr *standardize.ValidationError
	switch {
	case errors.As(err, &verr):
		reason = "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "canceled"
	}
	metrics.AnalysisFailures.WithLabelValues(reason).Inc()
	logging.Ctx(ctx).Warn().Err(err).Str("stage", stage).Str("reason", reason).Msg("analysis aborted")
	return fmt.Errorf("%s: %w", stage, err)
}

// degradedFlags mark a module that could not do its full job
var degradedFlags = []models.Flag{models.FlagDisabled, models.FlagExifParseError, models.FlagModelCallFailed}

func logModule(ctx context.Context, r models.ModuleResult, took time.Duration) {
	log := logging.Ctx(ctx)
	for _, f := range degradedFlags {
		if r.HasFlag(f) {
			log.Warn().Str("module", string(r.Module)).Str("flag", string(f)).Msg("module degraded")
		}
	}
	log.Debug().
		Str("module", string(r.Module)).
		Float64("score", r.Score).
		Int("flags", len(r.Flags)).
		Dur("took", took).
		Msg("module done")
}
