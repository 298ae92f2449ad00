// Package physics checks whether lighting, shadows and edge structure of an image
// behave like a single physical scene.
package physics

import (
	"context"
	"math"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/dsp"
	"DeSynth/pkg/models"
	"DeSynth/pkg/standardize"
)

// Analyzer is the physics consistency module
type Analyzer struct {
	analyzer.BaseAnalyzer
	cfg Config
}

// New creates a physics analyzer
func New(cfg Config) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModulePhysics,
			"Light direction coherence, shadow alignment and perspective entropy"),
		cfg: cfg,
	}
}

// Analyze runs the physics checks on the analysis frame
func (a *Analyzer) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	return AnalyzeFrame(ctx, &in.Image.Analysis, a.cfg)
}

// direction accumulates magnitude-weighted gradient vectors
type direction struct {
	sumX, sumY, total float64
}

func (d *direction) add(gx, gy, mag float64) {
	d.sumX += gx
	d.sumY += gy
	d.total += mag
}

// coherence is the length of the resultant over the total magnitude, 0 without mass
func (d *direction) coherence() float64 {
	if d.total <= 0 {
		return 0
	}
	return math.Hypot(d.sumX, d.sumY) / d.total
}

func (d *direction) angle() float64 {
	return math.Atan2(d.sumY, d.sumX)
}

// AnalyzeFrame scores one luma frame
func AnalyzeFrame(ctx context.Context, f *standardize.Frame, cfg Config) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	result := models.NewModuleResult(models.ModulePhysics)
	w, h := f.Width, f.Height
	gx, gy := dsp.Sobel(f.Luma, w, h)

	hist := make([]float64, cfg.OrientationBins)
	var global direction
	for i := range gx {
		mag := math.Hypot(gx[i], gy[i])
		if mag < cfg.MinMagnitude {
			continue
		}
		angle := math.Atan2(gy[i], gx[i])
		bin := min(cfg.OrientationBins-1, int((angle+math.Pi)/(2*math.Pi)*float64(cfg.OrientationBins)))
		hist[bin] += mag
		global.add(gx[i], gy[i], mag)
	}
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}

	coherence := global.coherence()
	dominant := global.angle()
	entropy := stats.NormalizedEntropy(hist)

	lightInconsistency := stats.Clamp01(1 - coherence)
	if lightInconsistency > cfg.LightFlagThreshold {
		result.AddFlag(models.FlagLightDirectionInconsistent)
	}

	perspectiveChaos := stats.Clamp01(entropy)
	if perspectiveChaos > cfg.PerspectiveFlagThreshold {
		result.AddFlag(models.FlagPerspectiveIncoherent)
	}

	// Per-cell accumulators for the map
	size := cfg.MapSize
	cells := make([]direction, size*size)
	cellAlign := make([]float64, size*size)
	cellShadows := make([]int, size*size)

	alignment, shadows := 0.0, 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			mag := math.Hypot(gx[i], gy[i])
			cell := (y*size/h)*size + x*size/w
			if mag >= cfg.MinMagnitude {
				cells[cell].add(gx[i], gy[i], mag)
			}
			if f.Luma[i] >= cfg.ShadowLuma || mag < cfg.ShadowMinMagnitude {
				continue
			}
			a := math.Abs(math.Cos(math.Atan2(gy[i], gx[i]) - dominant))
			alignment += a
			shadows++
			cellAlign[cell] += a
			cellShadows[cell]++
		}
	}

	shadowMisalignment := 1.0
	if shadows > 0 {
		shadowMisalignment = stats.Clamp01(1 - alignment/float64(shadows))
	}
	if shadowMisalignment > cfg.ShadowFlagThreshold {
		result.AddFlag(models.FlagShadowMisalignment)
	}

	m := models.NewSpatialMap(size, size)
	for i := range m.Values {
		local := 0.0
		if cellShadows[i] > 0 {
			local = 1 - cellAlign[i]/float64(cellShadows[i])
		}
		m.Values[i] = stats.Clamp01(0.5*math.Abs(cells[i].coherence()-coherence) + 0.5*local)
	}

	result.Score = stats.Clamp01(cfg.LightWeight*lightInconsistency +
		cfg.ShadowWeight*shadowMisalignment +
		cfg.PerspectiveWeight*perspectiveChaos)
	result.Map = m
	result.Details["light_inconsistency"] = lightInconsistency
	result.Details["shadow_misalignment"] = shadowMisalignment
	result.Details["perspective_chaos"] = perspectiveChaos
	result.Details["gradient_coherence"] = coherence
	result.Details["orientation_entropy"] = entropy
	result.Details["shadow_candidates"] = float64(shadows)
	return result, nil
}
