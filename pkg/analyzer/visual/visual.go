// Package visual looks for the surface artifacts diffusion models leave behind:
// airbrushed skin, implausible skin chroma noise, melted texture and mirror symmetry.
package visual

import (
	"context"
	"math"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/dsp"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

// Analyzer is the visual artifact module
type Analyzer struct {
	analyzer.BaseAnalyzer
	cfg Config
}

// New creates a visual analyzer
func New(cfg Config) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModuleVisual,
			"Skin smoothing, skin chroma noise, texture melting and bilateral symmetry"),
		cfg: cfg,
	}
}

// Analyze runs the visual checks on the analysis frame, the same centred crop
// the other pixel modules see
func (a *Analyzer) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	return AnalyzeFrame(&in.Image.Analysis, a.cfg), nil
}

// ycbcr converts 8-bit RGB with the BT.601 full-range matrix
func ycbcr(r, g, b uint8) (y, cb, cr float64) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	y = 0.299*fr + 0.587*fg + 0.114*fb
	cb = 128 - 0.168736*fr - 0.331264*fg + 0.5*fb
	cr = 128 + 0.5*fr - 0.418688*fg - 0.081312*fb
	return y, cb, cr
}

func isSkin(y, cb, cr float64) bool {
	return y > 40 && cb >= 77 && cb <= 127 && cr >= 133 && cr <= 173
}

// AnalyzeFrame scores one RGB frame
func AnalyzeFrame(f *standardize.Frame, cfg Config) models.ModuleResult {
	result := models.NewModuleResult(models.ModuleVisual)
	w, h := f.Width, f.Height
	lap := dsp.Laplacian(f.Luma, w, h)

	var skinLap, globalLap, skinCb, skinCr stats.Running
	skinCount := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			interior := x > 0 && y > 0 && x < w-1 && y < h-1
			if interior {
				globalLap.Add(lap[i])
			}

			luma, cb, cr := ycbcr(f.At(x, y))
			if !isSkin(luma, cb, cr) {
				continue
			}
			skinCount++
			skinCb.Add(cb)
			skinCr.Add(cr)
			if interior {
				skinLap.Add(lap[i])
			}
		}
	}

	// Smoothing
	var smoothing float64
	if skinCount > 0 {
		smoothing = stats.Clamp01((cfg.SkinVarianceThreshold - skinLap.Variance()) / cfg.SkinVarianceThreshold)
	} else {
		smoothing = stats.Clamp01((cfg.GlobalVarianceThreshold - globalLap.Variance()) / cfg.GlobalVarianceThreshold)
	}
	if smoothing > cfg.SmoothingFlagThreshold {
		result.AddFlag(models.FlagSkinSmoothing)
	}

	// Chroma noise inside the skin mask
	chromaVariance := (skinCb.Variance() + skinCr.Variance()) / 2
	var colorNoise float64
	if skinCount >= cfg.MinSkinPixels {
		switch {
		case chromaVariance < cfg.ChromaNoiseLow:
			colorNoise = stats.Clamp01((cfg.ChromaNoiseLow - chromaVariance) / cfg.ChromaNoiseLow)
		case chromaVariance > cfg.ChromaNoiseHigh:
			colorNoise = stats.Clamp01((chromaVariance - cfg.ChromaNoiseHigh) / cfg.ChromaNoiseHigh)
		}
	}
	if colorNoise > cfg.ColorNoiseFlagThreshold {
		result.AddFlag(models.FlagSkinColorNoise)
	}

	// Texture melting
	melting, meltMap := textureMelting(f, cfg)
	if melting > cfg.MeltingFlagThreshold {
		result.AddFlag(models.FlagTextureMelting)
	}

	// Bilateral symmetry
	symmetry := symmetryScore(f, cfg.SymmetryThreshold)
	if symmetry > cfg.SymmetryFlagThreshold {
		result.AddFlag(models.FlagHighSymmetry)
	}

	result.Score = stats.Clamp01(cfg.SmoothingWeight*smoothing +
		cfg.MeltingWeight*melting +
		cfg.SymmetryWeight*symmetry +
		cfg.ColorNoiseWeight*colorNoise)
	result.Map = meltMap
	result.Details["smoothing_score"] = smoothing
	result.Details["color_noise_score"] = colorNoise
	result.Details["texture_melt_score"] = melting
	result.Details["symmetry_score"] = symmetry
	result.Details["skin_coverage"] = float64(skinCount) / float64(max(1, w*h))
	result.Details["skin_chroma_variance"] = chromaVariance
	result.Details["global_laplacian_variance"] = globalLap.Variance()
	return result
}

// textureMelting returns the fraction of low-variance blocks and a coarse map of where they are
func textureMelting(f *standardize.Frame, cfg Config) (float64, *models.SpatialMap) {
	w, h, bs := f.Width, f.Height, cfg.BlockSize
	size := cfg.MapSize
	melted := make([]float64, size*size)
	counts := make([]float64, size*size)

	total, low := 0, 0
	for by := 0; by+bs <= h; by += bs {
		for bx := 0; bx+bs <= w; bx += bs {
			var block stats.Running
			for y := by; y < by+bs; y++ {
				for x := bx; x < bx+bs; x++ {
					block.Add(f.Luma[y*w+x])
				}
			}

			cell := ((by+bs/2)*size/h)*size + (bx+bs/2)*size/w
			counts[cell]++
			total++
			if block.Variance() < cfg.MeltVarianceThreshold {
				low++
				melted[cell]++
			}
		}
	}

	m := models.NewSpatialMap(size, size)
	for i := range m.Values {
		if counts[i] > 0 {
			m.Values[i] = melted[i] / counts[i]
		}
	}
	return stats.Clamp01(float64(low) / math.Max(1, float64(total))), m
}

// symmetryScore compares each row with its mirror image
func symmetryScore(f *standardize.Frame, threshold float64) float64 {
	w, h := f.Width, f.Height
	diff, count := 0.0, 0
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < (w+1)/2; x++ {
			diff += math.Abs(f.Luma[row+x] - f.Luma[row+w-1-x])
			count++
		}
	}
	avg := 1.0
	if count > 0 {
		avg = diff / float64(count)
	}
	return stats.Clamp01((threshold - avg) / threshold)
}
