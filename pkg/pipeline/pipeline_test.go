package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeSynth/pkg/cache"
	"DeSynth/pkg/classifier"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
	"DeSynth/pkg/wire"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func flatGray(t *testing.T) []byte {
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return encodePNG(t, img)
}

func noise(t *testing.T, w, h int) []byte {
	rng := rand.New(rand.NewPCG(7, 11))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255})
		}
	}
	return encodePNG(t, img)
}

// withTextChunk inserts a tEXt chunk right before IEND
func withTextChunk(data []byte, keyword, text string) []byte {
	body := append([]byte(keyword+"\x00"), text...)
	chunk := make([]byte, 0, len(body)+12)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(body)))
	typed := append([]byte("tEXt"), body...)
	chunk = append(chunk, typed...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(typed))

	iend := len(data) - 12
	out := append([]byte{}, data[:iend]...)
	out = append(out, chunk...)
	return append(out, data[iend:]...)
}

func newPipeline(cls classifier.Classifier) *Pipeline {
	return New(DefaultConfig(), cls)
}

func singleModel() classifier.Classifier {
	return classifier.NewRegistry(classifier.Constant("m1", 0.9))
}

func TestFlatGrayScenario(t *testing.T) {
	r, err := newPipeline(singleModel()).Analyze(context.Background(), flatGray(t), DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, []models.Verdict{models.VerdictLikelyAI, models.VerdictAIGenerated}, r.Verdict.Verdict)
	assert.GreaterOrEqual(t, r.Verdict.Confidence, 0.7)
	assert.Contains(t, r.Verdict.Explanations, "ml:single_model")
	assert.Contains(t, r.Verdict.Explanations, "metadata:exif_missing")
	assert.Contains(t, r.Verdict.Explanations, "final:strong_ai_signals")

	assert.Equal(t, models.SchemaVersion, r.SchemaVersion)
	assert.Equal(t, "png", r.Image.Format)
	assert.Equal(t, 256, r.Image.SourceWidth)
	assert.Len(t, r.Hashes.SHA256, 64)
	assert.Len(t, r.Hashes.PHash, 16)
	require.Len(t, r.ML.Votes, 1)
	assert.Equal(t, "m1", r.ML.Votes[0].Model)
}

func TestProvenanceMarkerLowersConfidence(t *testing.T) {
	p := newPipeline(singleModel())
	plain := flatGray(t)
	marked := withTextChunk(plain, "c2pa", "manifest")

	a, err := p.Analyze(context.Background(), plain, DefaultOptions())
	require.NoError(t, err)
	b, err := p.Analyze(context.Background(), marked, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Hashes.PHash, b.Hashes.PHash)
	assert.NotEqual(t, a.Hashes.SHA256, b.Hashes.SHA256)
	assert.True(t, b.Provenance.HasFlag(models.FlagC2PAMarkerPresent))
	assert.Less(t, b.Verdict.Confidence, a.Verdict.Confidence)
}

func TestDeterministic(t *testing.T) {
	p := newPipeline(singleModel())
	data := noise(t, 300, 200)

	a, err := p.Analyze(context.Background(), data, DefaultOptions())
	require.NoError(t, err)
	b, err := p.Analyze(context.Background(), data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScoresInRangeAndSchemaValid(t *testing.T) {
	r, err := newPipeline(singleModel()).Analyze(context.Background(), noise(t, 300, 200), DefaultOptions())
	require.NoError(t, err)

	for _, m := range r.Modules() {
		assert.GreaterOrEqual(t, m.Score, 0.0, m.Module)
		assert.LessOrEqual(t, m.Score, 1.0, m.Module)
	}
	assert.GreaterOrEqual(t, r.Verdict.Confidence, 0.0)
	assert.LessOrEqual(t, r.Verdict.Confidence, 1.0)

	data, err := wire.Marshal(r)
	require.NoError(t, err)
	assert.NoError(t, wire.Validate(data))
}

func TestAllOptionalModulesDisabled(t *testing.T) {
	opts := Options{Disabled: []models.Module{
		models.ModuleVisual, models.ModuleMetadata, models.ModulePhysics,
		models.ModuleFrequency, models.ModuleProvenance,
	}}
	r, err := newPipeline(singleModel()).Analyze(context.Background(), flatGray(t), opts)
	require.NoError(t, err)

	for _, m := range []models.Module{models.ModuleVisual, models.ModuleMetadata, models.ModulePhysics, models.ModuleFrequency, models.ModuleProvenance} {
		res := r.Module(m)
		assert.True(t, res.HasFlag(models.FlagDisabled), m)
		assert.Zero(t, res.Score, m)
		assert.Contains(t, r.Verdict.Explanations, models.Namespaced(m, models.FlagDisabled))
	}

	w := r.Fusion.Weights
	for _, m := range models.ScoredModules {
		if m != models.ModuleML {
			assert.Greater(t, w[models.ModuleML], w[m])
			assert.Zero(t, r.Fusion.WeightedScores[m])
		}
	}
	assert.Greater(t, r.Fusion.WeightedScores[models.ModuleML], 0.0)
	assert.NotEmpty(t, r.Verdict.Verdict)
}

func TestNoClassifier(t *testing.T) {
	r, err := newPipeline(nil).Analyze(context.Background(), flatGray(t), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.ML.HasFlag(models.FlagDisabled))
	assert.Zero(t, r.ML.Score)
}

func TestFailedModelDegrades(t *testing.T) {
	cls := classifier.NewRegistry(classifier.Func{
		Model: "flaky",
		Score: func(context.Context, []byte) (float64, error) { return 0, errors.New("unavailable") },
	})
	r, err := newPipeline(cls).Analyze(context.Background(), flatGray(t), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.ML.HasFlag(models.FlagModelCallFailed))
	assert.True(t, r.ML.HasFlag(models.FlagDisabled))
	assert.Contains(t, r.Verdict.Explanations, "ml:model_call_failed")
}

func TestValidationError(t *testing.T) {
	_, err := newPipeline(nil).Analyze(context.Background(), []byte("definitely not an image"), DefaultOptions())
	require.Error(t, err)

	var verr *standardize.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, standardize.ErrValidation)
}

func TestOptionsError(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown module", Options{Disabled: []models.Module{"colour"}}},
		{"final is not a module", Options{Disabled: []models.Module{models.ModuleFinal}}},
		{"empty model id", Options{Models: []string{""}}},
		{"duplicate model", Options{Models: []string{"a", "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPipeline(nil).Analyze(context.Background(), flatGray(t), tt.opts)
			var oerr *OptionsError
			assert.True(t, errors.As(err, &oerr))
		})
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := newPipeline(singleModel()).Analyze(ctx, flatGray(t), DefaultOptions())
	assert.Nil(t, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelSelection(t *testing.T) {
	cls := classifier.NewRegistry(classifier.Constant("a", 0.2), classifier.Constant("b", 0.8))
	r, err := newPipeline(cls).Analyze(context.Background(), flatGray(t), Options{Models: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, r.ML.Votes, 1)
	assert.Equal(t, "b", r.ML.Votes[0].Model)
}

type countingAnalyzer struct {
	next  *Pipeline
	calls atomic.Int32
}

func (c *countingAnalyzer) Analyze(ctx context.Context, data []byte, opts Options) (*models.PipelineResult, error) {
	c.calls.Add(1)
	return c.next.Analyze(ctx, data, opts)
}

func (c *countingAnalyzer) Models() []string { return c.next.Models() }

func memoryStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(cache.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCachedAnalyzer(t *testing.T) {
	store := memoryStore(t)

	counter := &countingAnalyzer{next: newPipeline(singleModel())}
	cached := NewCachedAnalyzer(counter, store)
	data := flatGray(t)
	ctx := context.Background()

	first, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	second, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(1), counter.calls.Load())
	assert.Equal(t, first, second)

	_, err = cached.Analyze(ctx, data, Options{Disabled: []models.Module{models.ModuleVisual}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())

	_, err = cached.Analyze(ctx, data, Options{Randomize: true, Seed: 3})
	require.NoError(t, err)
	_, err = cached.Analyze(ctx, data, Options{Randomize: true, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(4), counter.calls.Load())
}

func TestCacheKey(t *testing.T) {
	data := []byte("img")
	assert.Equal(t,
		CacheKey(data, Options{Disabled: []models.Module{models.ModuleML, models.ModuleVisual}}),
		CacheKey(data, Options{Disabled: []models.Module{models.ModuleVisual, models.ModuleML, models.ModuleML}}))
	assert.NotEqual(t, CacheKey(data, DefaultOptions()), CacheKey([]byte("other"), DefaultOptions()))
	assert.NotEqual(t,
		CacheKey(data, Options{Models: []string{"a", "b"}}),
		CacheKey(data, Options{Models: []string{"b", "a"}}))
	assert.Equal(t, CacheKey(data, DefaultOptions()), CacheKey(data, Options{Seed: 9}))
}

func TestCachedAnalyzerSkipsFailedModelCalls(t *testing.T) {
	reg := classifier.NewRegistry(classifier.Func{
		Model: "m1",
		Score: func(context.Context, []byte) (float64, error) { return 0, errors.New("unavailable") },
	})
	counter := &countingAnalyzer{next: newPipeline(reg)}
	cached := NewCachedAnalyzer(counter, memoryStore(t))
	data := flatGray(t)
	ctx := context.Background()

	degraded, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	require.True(t, degraded.ML.HasFlag(models.FlagModelCallFailed))

	// The model server recovers under the same id
	reg.Register(classifier.Constant("m1", 0.9))

	healthy, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())
	assert.False(t, healthy.ML.HasFlag(models.FlagModelCallFailed))
	require.Len(t, healthy.ML.Votes, 1)

	_, err = cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())
}

func TestCachedAnalyzerKeysOnServedModels(t *testing.T) {
	reg := classifier.NewRegistry(classifier.Constant("a", 0.2))
	counter := &countingAnalyzer{next: newPipeline(reg)}
	cached := NewCachedAnalyzer(counter, memoryStore(t))
	data := flatGray(t)
	ctx := context.Background()

	first, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, first.ML.Votes, 1)

	reg.Register(classifier.Constant("b", 0.8))

	second, err := cached.Analyze(ctx, data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())
	assert.Len(t, second.ML.Votes, 2)

	// An explicit selection of the same models shares the entry
	_, err = cached.Analyze(ctx, data, Options{Models: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())
}
