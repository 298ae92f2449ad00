package visual

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

func frameOf(w, h int, px func(x, y int) (uint8, uint8, uint8)) standardize.Frame {
	f := standardize.Frame{Width: w, Height: h, RGB: make([]uint8, w*h*3), Luma: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := px(x, y)
			i := y*w + x
			f.RGB[i*3], f.RGB[i*3+1], f.RGB[i*3+2] = r, g, b
			f.Luma[i] = standardize.Luma(r, g, b)
		}
	}
	return f
}

func TestFlatGrayIsSmoothMeltedAndSymmetric(t *testing.T) {
	f := frameOf(256, 256, func(int, int) (uint8, uint8, uint8) { return 128, 128, 128 })

	res := AnalyzeFrame(&f, DefaultConfig())

	assert.Equal(t, models.ModuleVisual, res.Module)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
	assert.ElementsMatch(t, []models.Flag{models.FlagSkinSmoothing, models.FlagTextureMelting, models.FlagHighSymmetry}, res.Flags)
	assert.Zero(t, res.Details["skin_coverage"])
	assert.Zero(t, res.Details["color_noise_score"])

	require.NotNil(t, res.Map)
	assert.Equal(t, 32, res.Map.Width)
	assert.Equal(t, 32, res.Map.Height)
	for _, v := range res.Map.Values {
		assert.Equal(t, 1.0, v)
	}
}

func TestNoisyImageScoresLow(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	f := frameOf(128, 128, func(int, int) (uint8, uint8, uint8) {
		return uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))
	})

	res := AnalyzeFrame(&f, DefaultConfig())

	assert.Less(t, res.Score, 0.3)
	assert.NotContains(t, res.Flags, models.FlagSkinSmoothing)
	assert.NotContains(t, res.Flags, models.FlagTextureMelting)
	assert.NotContains(t, res.Flags, models.FlagHighSymmetry)
	for _, v := range res.Map.Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestFlatSkinHasNoChromaNoise(t *testing.T) {
	f := frameOf(64, 64, func(int, int) (uint8, uint8, uint8) { return 224, 172, 140 })

	res := AnalyzeFrame(&f, DefaultConfig())

	assert.InDelta(t, 1.0, res.Details["skin_coverage"], 1e-12)
	assert.Contains(t, res.Flags, models.FlagSkinSmoothing)
	assert.Contains(t, res.Flags, models.FlagSkinColorNoise)
	assert.InDelta(t, 1.0, res.Details["color_noise_score"], 1e-9)
}

func TestSmallSkinPatchIgnoresChromaNoise(t *testing.T) {
	f := frameOf(64, 64, func(x, y int) (uint8, uint8, uint8) {
		if x < 4 && y < 4 {
			return 224, 172, 140
		}
		return 20, 60, 200
	})

	res := AnalyzeFrame(&f, DefaultConfig())
	assert.Zero(t, res.Details["color_noise_score"])
	assert.NotContains(t, res.Flags, models.FlagSkinColorNoise)
}

func TestThresholdsAreOverridable(t *testing.T) {
	f := frameOf(64, 64, func(int, int) (uint8, uint8, uint8) { return 128, 128, 128 })
	cfg := DefaultConfig()
	cfg.SymmetryFlagThreshold = 1.01

	res := AnalyzeFrame(&f, cfg)
	assert.NotContains(t, res.Flags, models.FlagHighSymmetry)
}

func TestAnalyzerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig()).Analyze(ctx, &analyzer.Input{Image: &standardize.Image{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzerScoresAnalysisFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1024, 512))
	for y := 0; y < 512; y++ {
		for x := 0; x < 1024; x++ {
			src.Set(x, y, color.RGBA{uint8(x / 4), uint8(y / 2), uint8((x + y) / 6), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	std, err := standardize.Standardize(context.Background(), buf.Bytes(), standardize.Options{})
	require.NoError(t, err)
	require.Equal(t, 256, std.Analysis.Width)
	require.Equal(t, 256, std.Analysis.Height)
	require.NotEqual(t, std.Analysis.Width, std.Full.Width)

	cfg := DefaultConfig()
	got, err := New(cfg).Analyze(context.Background(), &analyzer.Input{Image: std, Raw: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, AnalyzeFrame(&std.Analysis, cfg), got)
}
