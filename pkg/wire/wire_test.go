package wire

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"DeSynth/pkg/models"
)

func sampleResult() *models.PipelineResult {
	r := &models.PipelineResult{
		SchemaVersion: models.SchemaVersion,
		Hashes: models.Hashes{
			SHA256: strings.Repeat("ab", 32),
			PHash:  "8000000000000000",
		},
		Image: models.ImageInfo{Format: "png", SourceWidth: 256, SourceHeight: 256, Width: 256, Height: 256},
	}
	for _, m := range models.AllModules {
		*r.Module(m) = models.NewModuleResult(m)
	}
	r.Visual.Score = 0.8
	r.Visual.Map = models.NewSpatialMap(2, 2)
	r.Metadata.Score = 0.3
	r.Metadata.AddFlag(models.FlagExifMissing)
	r.ML.Score = 0.9
	r.ML.Votes = []models.Vote{{Model: "m1", Confidence: 0.9, Prediction: models.PredictionAI}}
	r.ML.AddFlag(models.FlagSingleModel)
	r.Fusion = models.FusionResult{
		Confidence:     0.72,
		RawScore:       0.74,
		Weights:        map[models.Module]float64{models.ModuleML: 1},
		RawWeights:     map[models.Module]float64{models.ModuleML: 0.45},
		ModuleScores:   map[models.Module]float64{models.ModuleML: 0.9},
		WeightedScores: map[models.Module]float64{models.ModuleML: 0.9},
		Spread:         0.2,
		Uncertainty:    0.1,
	}
	r.Verdict = models.VerdictResult{
		Verdict:      models.VerdictLikelyAI,
		Confidence:   0.72,
		Uncertainty:  0.1,
		Explanations: []string{"final:strong_ai_signals", "metadata:exif_missing", "ml:single_model"},
	}
	return r
}

func TestSchemaCompiles(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.True(t, json.Valid(SchemaJSON()))
}

func TestRoundTrip(t *testing.T) {
	in := sampleResult()
	data, err := Marshal(in)
	require.NoError(t, err)
	require.NoError(t, Validate(data))

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFieldNamesAreStable(t *testing.T) {
	data, err := MarshalIndent(sampleResult())
	require.NoError(t, err)

	for _, key := range []string{
		`"schema_version"`, `"sha256"`, `"phash"`, `"spatial_map"`, `"model_votes"`,
		`"contradiction_penalty"`, `"uncertainty"`, `"explanations"`, `"exif_missing"`,
	} {
		assert.Contains(t, string(data), key)
	}
	assert.NotContains(t, string(data), `"Visual"`)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.PipelineResult)
	}{
		{"score above one", func(r *models.PipelineResult) { r.Physics.Score = 1.5 }},
		{"bad verdict", func(r *models.PipelineResult) { r.Verdict.Verdict = "MAYBE" }},
		{"no explanations", func(r *models.PipelineResult) { r.Verdict.Explanations = []string{} }},
		{"bad hash", func(r *models.PipelineResult) { r.Hashes.PHash = "xyz" }},
		{"wrong module slot", func(r *models.PipelineResult) { r.Frequency.Module = models.ModuleVisual }},
		{"bad prediction", func(r *models.PipelineResult) { r.ML.Votes[0].Prediction = "MAYBE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleResult()
			tt.mutate(r)
			data, err := Marshal(r)
			require.NoError(t, err)
			assert.Error(t, Validate(data))
		})
	}
}

func TestUnmarshalChecksVersion(t *testing.T) {
	r := sampleResult()
	r.SchemaVersion = "desynth.pipeline.v0"
	data, err := Marshal(r)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.ErrorIs(t, err, ErrSchemaVersion)
}

func TestMarshalYAML(t *testing.T) {
	data, err := MarshalYAML(sampleResult())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, models.SchemaVersion, doc["schema_version"])
	verdict, ok := doc["verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "LIKELY_AI", verdict["verdict"])
}
