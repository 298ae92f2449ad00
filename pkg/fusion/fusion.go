// Package fusion combines the five scored module results into one calibrated confidence.
package fusion

import (
	"math"

	"DeSynth/pkg/analyzer/stats"
	"DeSynth/pkg/models"
)

// Constants holds every fusion tuning value. The penalty scales and discounts are
// calibration targets rather than derived quantities.
type Constants struct {
	BaseWeights map[models.Module]float64

	ExifMissingDiscount  float64
	SingleModelDiscount  float64
	SmallImageDiscount   float64
	SmallImageEdge       int
	AgreementDistance    float64
	AgreeingPenaltyScale float64
	DisagreePenaltyScale float64
	ProvenancePenalty    float64
	UncertaintyScale     float64
	MaxUncertainty       float64
}

// DefaultConstants returns the default fusion constants
func DefaultConstants() Constants {
	return Constants{
		BaseWeights: map[models.Module]float64{
			models.ModuleVisual:    0.12,
			models.ModuleMetadata:  0.08,
			models.ModulePhysics:   0.15,
			models.ModuleFrequency: 0.20,
			models.ModuleML:        0.45,
		},
		ExifMissingDiscount:  0.5,
		SingleModelDiscount:  0.95,
		SmallImageDiscount:   0.7,
		SmallImageEdge:       256,
		AgreementDistance:    0.2,
		AgreeingPenaltyScale: 0.4,
		DisagreePenaltyScale: 0.5,
		ProvenancePenalty:    0.2,
		UncertaintyScale:     0.5,
		MaxUncertainty:       0.15,
	}
}

// Input is everything fusion looks at
type Input struct {
	Scores           map[models.Module]float64
	ExifMissing      bool
	SingleModel      bool
	SourceWidth      int
	SourceHeight     int
	ProvenanceMarker bool
}

// InputFrom extracts the fusion input from a pipeline result
func InputFrom(r *models.PipelineResult) Input {
	in := Input{
		Scores:           make(map[models.Module]float64, len(models.ScoredModules)),
		ExifMissing:      r.Metadata.HasFlag(models.FlagExifMissing),
		SingleModel:      len(r.ML.Votes) == 1,
		SourceWidth:      r.Image.SourceWidth,
		SourceHeight:     r.Image.SourceHeight,
		ProvenanceMarker: r.Provenance.HasFlag(models.FlagC2PAMarkerPresent),
	}
	for _, m := range models.ScoredModules {
		in.Scores[m] = r.Module(m).Score
	}
	return in
}

// Fuse computes the fused confidence. It is a pure function of its arguments.
func Fuse(in Input, c Constants) models.FusionResult {
	res := models.FusionResult{
		Weights:        make(map[models.Module]float64, len(models.ScoredModules)),
		RawWeights:     make(map[models.Module]float64, len(models.ScoredModules)),
		ModuleScores:   make(map[models.Module]float64, len(models.ScoredModules)),
		WeightedScores: make(map[models.Module]float64, len(models.ScoredModules)),
	}

	small := in.SourceWidth < c.SmallImageEdge || in.SourceHeight < c.SmallImageEdge
	var total float64
	for _, m := range models.ScoredModules {
		w := c.BaseWeights[m]
		switch m {
		case models.ModuleMetadata:
			if in.ExifMissing {
				w *= c.ExifMissingDiscount
			}
		case models.ModuleML:
			if in.SingleModel {
				w *= c.SingleModelDiscount
			}
		default:
			if small {
				w *= c.SmallImageDiscount
			}
		}
		res.RawWeights[m] = w
		total += w
	}

	scores := make([]float64, 0, len(models.ScoredModules))
	for _, m := range models.ScoredModules {
		s := stats.Clamp01(in.Scores[m])
		res.ModuleScores[m] = s
		scores = append(scores, s)

		w := 0.0
		if total > 0 {
			w = res.RawWeights[m] / total
		}
		res.Weights[m] = w
		res.WeightedScores[m] = w * s
		res.RawScore += w * s
	}

	mean := stats.Mean(scores)
	res.Spread = stats.StdDev(scores)

	scale := c.DisagreePenaltyScale
	if math.Abs(res.ModuleScores[models.ModuleML]-mean) < c.AgreementDistance {
		scale = c.AgreeingPenaltyScale
	}
	res.ContradictionPenalty = stats.Clamp01(res.Spread * scale)

	confidence := 0.5 + (res.RawScore-0.5)*(1-res.ContradictionPenalty)
	if in.ProvenanceMarker {
		adjusted := max(0, confidence-c.ProvenancePenalty)
		res.ProvenanceAdjustment = adjusted - confidence
		confidence = adjusted
	}
	res.Confidence = stats.Clamp01(confidence)
	res.Uncertainty = min(res.Spread*c.UncertaintyScale, c.MaxUncertainty)
	return res
}
