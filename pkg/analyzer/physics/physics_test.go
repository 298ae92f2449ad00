package physics

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

func grayFrame(w, h int, v func(x, y int) uint8) standardize.Frame {
	f := standardize.Frame{Width: w, Height: h, RGB: make([]uint8, w*h*3), Luma: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := v(x, y)
			i := y*w + x
			f.RGB[i*3], f.RGB[i*3+1], f.RGB[i*3+2] = g, g, g
			f.Luma[i] = standardize.Luma(g, g, g)
		}
	}
	return f
}

func TestFlatFrameHasNoLightOrShadow(t *testing.T) {
	f := grayFrame(256, 256, func(int, int) uint8 { return 128 })

	res, err := AnalyzeFrame(context.Background(), &f, DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 0.7, res.Score, 1e-9)
	assert.ElementsMatch(t, []models.Flag{models.FlagLightDirectionInconsistent, models.FlagShadowMisalignment}, res.Flags)
	assert.Zero(t, res.Details["gradient_coherence"])
	assert.Zero(t, res.Details["shadow_candidates"])
	require.NotNil(t, res.Map)
	assert.Len(t, res.Map.Values, 64*64)
}

func TestSingleEdgeIsConsistent(t *testing.T) {
	f := grayFrame(256, 256, func(x, _ int) uint8 {
		if x < 128 {
			return 20
		}
		return 230
	})

	res, err := AnalyzeFrame(context.Background(), &f, DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 0, res.Score, 1e-9)
	assert.Empty(t, res.Flags)
	assert.InDelta(t, 1.0, res.Details["gradient_coherence"], 1e-12)
	assert.Positive(t, res.Details["shadow_candidates"])
}

func TestNoiseIsIncoherent(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	f := grayFrame(128, 128, func(int, int) uint8 { return uint8(rng.IntN(256)) })

	res, err := AnalyzeFrame(context.Background(), &f, DefaultConfig())
	require.NoError(t, err)

	assert.Contains(t, res.Flags, models.FlagLightDirectionInconsistent)
	assert.Contains(t, res.Flags, models.FlagPerspectiveIncoherent)
	assert.Greater(t, res.Details["orientation_entropy"], 0.9)
	for _, v := range res.Map.Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestAnalyzeFrameHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := grayFrame(8, 8, func(int, int) uint8 { return 0 })

	_, err := AnalyzeFrame(ctx, &f, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}
