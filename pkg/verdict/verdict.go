// Package verdict labels a fused confidence and gathers the explanation tags of a run.
package verdict

import (
	"sort"

	"DeSynth/pkg/models"
)

// Thresholds is the confidence ladder
type Thresholds struct {
	AIGenerated float64
	LikelyAI    float64
	Real        float64
	LikelyReal  float64
}

// DefaultThresholds returns the default verdict ladder
func DefaultThresholds() Thresholds {
	return Thresholds{
		AIGenerated: 0.85,
		LikelyAI:    0.70,
		Real:        0.15,
		LikelyReal:  0.30,
	}
}

// Label maps a confidence onto the ladder
func (t Thresholds) Label(confidence float64) models.Verdict {
	switch {
	case confidence >= t.AIGenerated:
		return models.VerdictAIGenerated
	case confidence >= t.LikelyAI:
		return models.VerdictLikelyAI
	case confidence <= t.Real:
		return models.VerdictReal
	case confidence <= t.LikelyReal:
		return models.VerdictLikelyReal
	}
	return models.VerdictUncertain
}

// Build labels the fused result and collects every module flag as a namespaced,
// deduplicated and sorted explanation list. It has no side effects.
func Build(fused models.FusionResult, results []models.ModuleResult, t Thresholds) models.VerdictResult {
	seen := make(map[string]struct{})
	for _, r := range results {
		for _, f := range r.Flags {
			seen[models.Namespaced(r.Module, f)] = struct{}{}
		}
	}

	final := models.FlagConflictingSignals
	switch {
	case fused.Confidence >= t.LikelyAI:
		final = models.FlagStrongAISignals
	case fused.Confidence <= t.LikelyReal:
		final = models.FlagStrongRealSignals
	}
	seen[models.Namespaced(models.ModuleFinal, final)] = struct{}{}

	explanations := make([]string, 0, len(seen))
	for tag := range seen {
		explanations = append(explanations, tag)
	}
	sort.Strings(explanations)

	return models.VerdictResult{
		Verdict:      t.Label(fused.Confidence),
		Confidence:   fused.Confidence,
		Uncertainty:  fused.Uncertainty,
		Explanations: explanations,
	}
}
