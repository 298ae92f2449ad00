// Package provenance looks for content-credential (C2PA) manifests in the raw bytes.
// Manifests are detected, never verified.
package provenance

import (
	"bytes"
	"context"

	"DeSynth/pkg/analyzer"
	"DeSynth/pkg/models"
)

// Config contains the provenance settings
type Config struct {
	Markers     []string // Byte strings whose presence signals a manifest
	MarkerScore float64  // Module score when a marker is present
}

// DefaultMarkers are the byte strings C2PA writers leave in a file
var DefaultMarkers = []string{"c2pa", "contentcredentials", "contentcredentials.org", "urn:c2pa"}

// DefaultConfig returns the default provenance configuration
func DefaultConfig() Config {
	return Config{
		Markers:     DefaultMarkers,
		MarkerScore: 0.1,
	}
}

// jumbfWindow bounds the distance between a jumb superbox type and its c2pa label
const jumbfWindow = 64

// Analyzer is the provenance module
type Analyzer struct {
	analyzer.BaseAnalyzer
	cfg Config
}

// New creates a provenance checker
func New(cfg Config) *Analyzer {
	return &Analyzer{
		BaseAnalyzer: analyzer.NewBaseAnalyzer(models.ModuleProvenance,
			"Content-credential (C2PA) manifest markers"),
		cfg: cfg,
	}
}

// Analyze searches the original bytes
func (a *Analyzer) Analyze(ctx context.Context, in *analyzer.Input) (models.ModuleResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ModuleResult{}, err
	}
	return Check(in.Raw, a.cfg), nil
}

// Check scores raw file bytes
func Check(data []byte, cfg Config) models.ModuleResult {
	result := models.NewModuleResult(models.ModuleProvenance)

	present := false
	for _, marker := range cfg.Markers {
		if bytes.Contains(data, []byte(marker)) {
			present = true
			break
		}
	}
	jumbf := hasJUMBFManifest(data)

	result.Details["c2pa_present"] = 0
	result.Details["signature_valid"] = 0
	result.Details["jumbf_manifest"] = 0
	if jumbf {
		result.Details["jumbf_manifest"] = 1
	}
	if present || jumbf {
		result.Score = cfg.MarkerScore
		result.Details["c2pa_present"] = 1
		result.AddFlag(models.FlagC2PAMarkerPresent)
	}
	return result
}

// hasJUMBFManifest reports a jumb superbox whose description box is labelled c2pa
func hasJUMBFManifest(data []byte) bool {
	rest := data
	for {
		i := bytes.Index(rest, []byte("jumb"))
		if i < 0 {
			return false
		}
		window := rest[i:min(len(rest), i+jumbfWindow)]
		if d := bytes.Index(window, []byte("jumd")); d >= 0 && bytes.Contains(window[d:], []byte("c2pa")) {
			return true
		}
		rest = rest[i+4:]
	}
}
