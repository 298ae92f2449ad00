// Package frequency inspects the Fourier and block-DCT spectrum of an image and the
// correlation of its noise residual.
package frequency

import (
	"context"
	"fmt"
	"math"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/dsp"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

// Analyzer is the frequency forensics module
type Analyzer struct {
	analyzer.BaseAnalyzer
	cfg Config
}

// New creates a frequency analyzer
func New(cfg Config) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModuleFrequency,
			"Spectral energy distribution, periodic peaks, residual correlation and block DCT energy"),
		cfg: cfg,
	}
}

// Analyze runs the frequency checks on the analysis frame
func (a *Analyzer) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	return AnalyzeFrame(ctx, &in.Image.Analysis, a.cfg)
}

// spectrumStats summarizes the 2D magnitude spectrum
type spectrumStats struct {
	highRatio float64
	lowRatio  float64
	peakScore float64
	peaks     int
}

// AnalyzeFrame scores one luma frame. Both frame edges must be powers of two.
func AnalyzeFrame(ctx context.Context, f *standardize.Frame, cfg Config) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	result := models.NewModuleResult(models.ModuleFrequency)

	spectral, err := spectrum(ctx, f, cfg)
	if err != nil {
		return models.ModuleResult{}, fmt.Errorf("frequency spectrum: %w", err)
	}
	if spectral.peakScore > cfg.PeakFlagThreshold {
		result.AddFlag(models.FlagSpectralPeaks)
	}
	highScore := stats.Clamp01((spectral.highRatio - cfg.HighRatioOffset) / cfg.HighRatioRange)

	noiseCorr := residualCorrelation(f, cfg)
	noiseScore := stats.Clamp01((noiseCorr - cfg.NoiseOffset) / cfg.NoiseRange)
	if noiseScore > cfg.NoiseFlagThreshold {
		result.AddFlag(models.FlagStructuredNoise)
	}

	dctRatio, err := blockDCTRatio(ctx, f, cfg)
	if err != nil {
		return models.ModuleResult{}, err
	}
	dctScore := stats.Clamp01((cfg.DCTReference - dctRatio) / cfg.DCTReference)
	if dctScore > cfg.DCTFlagThreshold {
		result.AddFlag(models.FlagLowDCTHighFreqEnergy)
	}

	result.Score = stats.Clamp01(cfg.HighWeight*highScore +
		cfg.PeakWeight*spectral.peakScore +
		cfg.NoiseWeight*noiseScore +
		cfg.DCTWeight*dctScore)
	result.Details["high_ratio"] = spectral.highRatio
	result.Details["low_ratio"] = spectral.lowRatio
	result.Details["peak_score"] = spectral.peakScore
	result.Details["peak_count"] = float64(spectral.peaks)
	result.Details["noise_correlation"] = noiseCorr
	result.Details["dct_energy_ratio"] = dctRatio
	return result, nil
}

func spectrum(ctx context.Context, f *standardize.Frame, cfg Config) (spectrumStats, error) {
	w, h := f.Width, f.Height
	mean := stats.Mean(f.Luma)
	re := make([]float64, w*h)
	im := make([]float64, w*h)
	for i, v := range f.Luma {
		re[i] = v - mean
	}
	if err := dsp.FFT2D(ctx, re, im, w, h); err != nil {
		return spectrumStats{}, err
	}
	mags := dsp.Magnitude(re, im)

	highRadius := float64(w) * cfg.HighRadiusFraction
	var total, low, high float64
	var values []float64
	for y := 0; y < h; y++ {
		fy := y
		if fy > h/2 {
			fy = h - y
		}
		for x := 0; x < w; x++ {
			fx := x
			if fx > w/2 {
				fx = w - x
			}
			r := math.Hypot(float64(fx), float64(fy))
			mag := mags[y*w+x]
			switch {
			case r < cfg.LowRadius:
				low += mag
			case r > highRadius:
				high += mag
			}
			total += mag
			if r > cfg.LowRadius {
				values = append(values, mag)
			}
		}
	}

	if total < cfg.EnergyFloor {
		return spectrumStats{}, nil
	}

	s := spectrumStats{highRatio: high / total, lowRatio: low / total}
	threshold := stats.Mean(values) + cfg.PeakSigma*stats.StdDev(values)
	for _, v := range values {
		if v > threshold {
			s.peaks++
		}
	}
	s.peakScore = stats.Clamp01(float64(s.peaks) / math.Max(1, float64(len(values))/cfg.PeakDensity))
	return s, nil
}

// residualCorrelation is the 1-pixel horizontal autocorrelation of the Laplacian residual
func residualCorrelation(f *standardize.Frame, cfg Config) float64 {
	w, h := f.Width, f.Height
	residual := dsp.Laplacian(f.Luma, w, h)

	var spread stats.Running
	var a, b []float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-2; x++ {
			i := y*w + x
			a = append(a, residual[i])
			b = append(b, residual[i+1])
			spread.Add(residual[i])
		}
	}
	if len(a) == 0 {
		return 0
	}
	if spread.Variance() < cfg.ResidualVarianceFloor {
		return 1
	}
	corr, ok := stats.Pearson(a, b)
	if !ok {
		return 0
	}
	return corr
}

// blockDCTRatio averages the high-frequency share of 8×8 DCT blocks sampled on a sparse grid
func blockDCTRatio(ctx context.Context, f *standardize.Frame, cfg Config) (float64, error) {
	w, h := f.Width, f.Height
	step := max(1, w/4)
	sum, count := 0.0, 0
	for by := 0; by+dsp.BlockSize < h; by += step {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for bx := 0; bx+dsp.BlockSize < w; bx += step {
			var block [dsp.BlockSize * dsp.BlockSize]float64
			for y := 0; y < dsp.BlockSize; y++ {
				copy(block[y*dsp.BlockSize:(y+1)*dsp.BlockSize], f.Luma[(by+y)*w+bx:])
			}
			coeffs := dsp.DCT8x8(&block)

			var high, total float64
			for i := 1; i < len(coeffs); i++ {
				v := math.Abs(coeffs[i])
				total += v
				if i > cfg.DCTHighIndex {
					high += v
				}
			}
			if total < cfg.EnergyFloor {
				continue
			}
			sum += high / total
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}
