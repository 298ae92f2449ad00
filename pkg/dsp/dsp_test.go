package dsp

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naiveDFT(re, im []float64) ([]float64, []float64) {
	n := len(re)
	outRe := make([]float64, n)
	outIm := make([]float64, n)
	for k := 0; k < n; k++ {
		for t := 0; t < n; t++ {
			angle := -2 * math.Pi * float64(k*t) / float64(n)
			outRe[k] += re[t]*math.Cos(angle) - im[t]*math.Sin(angle)
			outIm[k] += re[t]*math.Sin(angle) + im[t]*math.Cos(angle)
		}
	}
	return outRe, outIm
}

func TestFFTMatchesNaiveDFT(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{1, 2, 8, 64} {
		re := make([]float64, n)
		im := make([]float64, n)
		for i := range re {
			re[i] = rng.Float64()
			im[i] = rng.Float64() - 0.5
		}
		wantRe, wantIm := naiveDFT(re, im)

		require.NoError(t, FFT(re, im))
		for k := 0; k < n; k++ {
			assert.InDelta(t, wantRe[k], re[k], 1e-9, "n=%d k=%d", n, k)
			assert.InDelta(t, wantIm[k], im[k], 1e-9, "n=%d k=%d", n, k)
		}
	}
}

func TestFFTRejectsBadLengths(t *testing.T) {
	assert.Error(t, FFT(make([]float64, 6), make([]float64, 6)))
	assert.Error(t, FFT(make([]float64, 4), make([]float64, 8)))
	assert.Error(t, FFT(nil, nil))
}

func TestFFT2DImpulseIsFlat(t *testing.T) {
	const w, h = 16, 8
	re := make([]float64, w*h)
	im := make([]float64, w*h)
	re[0] = 1

	require.NoError(t, FFT2D(context.Background(), re, im, w, h))
	for _, m := range Magnitude(re, im) {
		assert.InDelta(t, 1.0, m, 1e-12)
	}
}

func TestFFT2DHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FFT2D(ctx, make([]float64, 64), make([]float64, 64), 8, 8)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDCT8x8ConstantBlockIsDCOnly(t *testing.T) {
	var block [64]float64
	for i := range block {
		block[i] = 0.5
	}
	coeffs := DCT8x8(&block)

	assert.InDelta(t, 4.0, coeffs[0], 1e-12)
	for i := 1; i < 64; i++ {
		assert.InDelta(t, 0, coeffs[i], 1e-12, "coefficient %d", i)
	}
}

func TestDCTLowBandAgreesWithBlockDCT(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	var block [64]float64
	for i := range block {
		block[i] = rng.Float64()
	}

	full := DCT8x8(&block)
	low := DCTLowBand(block[:], 8, 8)
	for i := range low {
		assert.InDelta(t, full[i], low[i], 1e-12)
	}
}

func TestSobelHorizontalRamp(t *testing.T) {
	const w, h = 6, 5
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray[y*w+x] = float64(x) * 0.1
		}
	}
	gx, gy := Sobel(gray, w, h)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			assert.InDelta(t, 0.8, gx[y*w+x], 1e-12)
			assert.InDelta(t, 0, gy[y*w+x], 1e-12)
		}
	}
	assert.Zero(t, gx[0])
}

func TestLaplacianOfPlaneIsZero(t *testing.T) {
	const w, h = 5, 5
	gray := make([]float64, w*h)
	for i := range gray {
		gray[i] = float64(i%w)*0.2 + float64(i/w)*0.1
	}
	for i, v := range Laplacian(gray, w, h) {
		assert.InDelta(t, 0, v, 1e-12, "pixel %d", i)
	}
}
