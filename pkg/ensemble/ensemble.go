// Package ensemble turns the votes of several classifier models into one module result.
package ensemble

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"DeSynth/internal/logging"
	"DeSynth/internal/metrics"
	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/classifier"
	"DeSynth/pkg/models"
)

// Config contains the ensemble settings
type Config struct {
	// Concurrency bounds in-flight classifier calls across every run sharing the adapter.
	Concurrency int64
	// DisagreementSpread is the vote σ above which models are said to disagree.
	DisagreementSpread float64
}

// DefaultConfig returns the default ensemble configuration
func DefaultConfig() Config {
	return Config{
		Concurrency:        4,
		DisagreementSpread: 0.25,
	}
}

// Adapter is the ML module. One Adapter should be shared by all runs so its
// semaphore bounds classifier load globally.
type Adapter struct {
	analyzer.BaseAnalyzer
	classifier classifier.Classifier
	sem        *semaphore.Weighted
	cfg        Config
}

// New creates an adapter over cls. A nil classifier yields a permanently disabled module.
func New(cls classifier.Classifier, cfg Config) *Adapter {
	return &Adapter{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModuleML,
			"Ensemble of opaque image classifiers"),
		classifier: cls,
		sem:        semaphore.NewWeighted(max(1, cfg.Concurrency)),
		cfg:        cfg,
	}
}

// Analyze asks the selected models about the original bytes
func (a *Adapter) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	return a.Run(ctx, in.Raw, in.Models)
}

// Run queries every model in ids concurrently (all available models when ids is
// empty). Failed calls and out-of-range votes are dropped and flagged; only
// cancellation is an error.
func (a *Adapter) Run(ctx context.Context, data []byte, ids []string) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	if a.classifier == nil {
		return models.DisabledResult(models.ModuleML), nil
	}
	if len(ids) == 0 {
		ids = a.classifier.Models()
	}

	votes := make([]*models.Vote, len(ids))
	var (
		failedMu sync.Mutex
		failed   []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			if err := a.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer a.sem.Release(1)

			vote, err := a.classifier.Classify(gctx, id, data)
			if err == nil {
				vote.Model = id
				err = classifier.ValidateVote(vote)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.Ctx(ctx).Warn().Err(err).Str("model", id).Msg("model call failed")
				metrics.ModelCallFailures.WithLabelValues(id).Inc()
				failedMu.Lock()
				failed = append(failed, id)
				failedMu.Unlock()
				return nil
			}
			votes[i] = &vote
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ModuleResult{}, err
	}

	collected := make([]models.Vote, 0, len(votes))
	for _, v := range votes {
		if v != nil {
			collected = append(collected, *v)
		}
	}
	return a.summarize(collected, len(failed)), nil
}

func (a *Adapter) summarize(votes []models.Vote, failed int) models.ModuleResult {
	result := models.NewModuleResult(models.ModuleML)
	if failed > 0 {
		result.AddFlag(models.FlagModelCallFailed)
		result.Details["failed_models"] = float64(failed)
	}
	if len(votes) == 0 {
		result.AddFlag(models.FlagDisabled)
		return result
	}

	confidences := make([]float64, len(votes))
	for i, v := range votes {
		confidences[i] = v.Confidence
	}
	mean := stats.Mean(confidences)
	spread := stats.StdDev(confidences)

	result.Score = stats.Clamp01(mean)
	result.Votes = votes
	result.Details["votes"] = float64(len(votes))
	result.Details["mean_confidence"] = mean
	result.Details["spread"] = spread

	if len(votes) == 1 {
		result.AddFlag(models.FlagSingleModel)
	}
	if spread > a.cfg.DisagreementSpread {
		result.AddFlag(models.FlagModelDisagreement)
	}
	return result
}
