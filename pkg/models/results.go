package models

// SchemaVersion identifies the wire layout of PipelineResult
const SchemaVersion = "desynth.pipeline.v1"

// SpatialMap is a coarse row-major map of per-region suspicion, values in [0,1]
type SpatialMap struct {
	Width  int       `json:"width" yaml:"width"`
	Height int       `json:"height" yaml:"height"`
	Values []float64 `json:"values" yaml:"values"`
}

// NewSpatialMap allocates a zeroed map of the given size
func NewSpatialMap(width, height int) *SpatialMap {
	return &SpatialMap{Width: width, Height: height, Values: make([]float64, width*height)}
}

// At returns the value of cell (x, y)
func (m *SpatialMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Set stores the value of cell (x, y)
func (m *SpatialMap) Set(x, y int, v float64) {
	m.Values[y*m.Width+x] = v
}

// Prediction is the label a classifier assigns to an image
type Prediction string

const (
	PredictionAI   Prediction = "AI"
	PredictionReal Prediction = "REAL"
)

// Vote is a single classifier's opinion. Confidence is the probability of synthesis.
type Vote struct {
	Model      string     `json:"model" yaml:"model"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	Prediction Prediction `json:"prediction" yaml:"prediction"`
}

// ModuleResult is the evidence produced by one module
type ModuleResult struct {
	Module  Module             `json:"module" yaml:"module"`
	Score   float64            `json:"score" yaml:"score"` // 0.0-1.0 where 1.0 means strongly synthetic
	Flags   []Flag             `json:"flags" yaml:"flags"`
	Details map[string]float64 `json:"details" yaml:"details"`
	Map     *SpatialMap        `json:"spatial_map,omitempty" yaml:"spatial_map,omitempty"`
	Votes   []Vote             `json:"model_votes,omitempty" yaml:"model_votes,omitempty"`
}

// NewModuleResult creates an empty result for a module
func NewModuleResult(m Module) ModuleResult {
	return ModuleResult{
		Module:  m,
		Flags:   []Flag{},
		Details: map[string]float64{},
	}
}

// DisabledResult is what a switched-off module reports
func DisabledResult(m Module) ModuleResult {
	r := NewModuleResult(m)
	r.AddFlag(FlagDisabled)
	return r
}

// AddFlag records a flag once
func (r *ModuleResult) AddFlag(f Flag) {
	if r.HasFlag(f) {
		return
	}
	r.Flags = append(r.Flags, f)
}

// HasFlag reports whether the result carries f
func (r *ModuleResult) HasFlag(f Flag) bool {
	for _, existing := range r.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// FusionResult is the outcome of combining the module scores
type FusionResult struct {
	Confidence           float64            `json:"confidence" yaml:"confidence"`
	RawScore             float64            `json:"raw_score" yaml:"raw_score"`
	Weights              map[Module]float64 `json:"weights" yaml:"weights"`
	RawWeights           map[Module]float64 `json:"raw_weights" yaml:"raw_weights"`
	ModuleScores         map[Module]float64 `json:"module_scores" yaml:"module_scores"`
	WeightedScores       map[Module]float64 `json:"weighted_scores" yaml:"weighted_scores"`
	Spread               float64            `json:"spread" yaml:"spread"`
	ContradictionPenalty float64            `json:"contradiction_penalty" yaml:"contradiction_penalty"`
	ProvenanceAdjustment float64            `json:"provenance_adjustment" yaml:"provenance_adjustment"`
	Uncertainty          float64            `json:"uncertainty" yaml:"uncertainty"`
}

// Verdict is the final label
type Verdict string

const (
	VerdictAIGenerated Verdict = "AI_GENERATED"
	VerdictLikelyAI    Verdict = "LIKELY_AI"
	VerdictUncertain   Verdict = "UNCERTAIN"
	VerdictLikelyReal  Verdict = "LIKELY_REAL"
	VerdictReal        Verdict = "REAL"
)

// Rank orders verdicts from most real (0) to most synthetic (4). Unknown verdicts rank -1.
func (v Verdict) Rank() int {
	switch v {
	case VerdictReal:
		return 0
	case VerdictLikelyReal:
		return 1
	case VerdictUncertain:
		return 2
	case VerdictLikelyAI:
		return 3
	case VerdictAIGenerated:
		return 4
	}
	return -1
}

// VerdictResult is the labelled, explained outcome of one analysis
type VerdictResult struct {
	Verdict      Verdict  `json:"verdict" yaml:"verdict"`
	Confidence   float64  `json:"confidence" yaml:"confidence"`
	Uncertainty  float64  `json:"uncertainty" yaml:"uncertainty"`
	Explanations []string `json:"explanations" yaml:"explanations"`
}

// Hashes identify the analyzed input
type Hashes struct {
	SHA256 string `json:"sha256" yaml:"sha256"`
	PHash  string `json:"phash" yaml:"phash"`
}

// ImageInfo describes the decoded input and the standardized frame
type ImageInfo struct {
	Format       string `json:"format" yaml:"format"`
	SourceWidth  int    `json:"source_width" yaml:"source_width"`
	SourceHeight int    `json:"source_height" yaml:"source_height"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
}

// PipelineResult contains the complete outcome of one analysis
type PipelineResult struct {
	SchemaVersion string        `json:"schema_version" yaml:"schema_version"`
	Hashes        Hashes        `json:"hashes" yaml:"hashes"`
	Image         ImageInfo     `json:"image" yaml:"image"`
	Visual        ModuleResult  `json:"visual" yaml:"visual"`
	Metadata      ModuleResult  `json:"metadata" yaml:"metadata"`
	Physics       ModuleResult  `json:"physics" yaml:"physics"`
	Frequency     ModuleResult  `json:"frequency" yaml:"frequency"`
	ML            ModuleResult  `json:"ml" yaml:"ml"`
	Provenance    ModuleResult  `json:"provenance" yaml:"provenance"`
	Fusion        FusionResult  `json:"fusion" yaml:"fusion"`
	Verdict       VerdictResult `json:"verdict" yaml:"verdict"`
}

// Module returns the result slot of m, or nil for final and unknown modules
func (r *PipelineResult) Module(m Module) *ModuleResult {
	switch m {
	case ModuleVisual:
		return &r.Visual
	case ModuleMetadata:
		return &r.Metadata
	case ModulePhysics:
		return &r.Physics
	case ModuleFrequency:
		return &r.Frequency
	case ModuleML:
		return &r.ML
	case ModuleProvenance:
		return &r.Provenance
	}
	return nil
}

// Modules returns the six module results in pipeline order
func (r *PipelineResult) Modules() []ModuleResult {
	out := make([]ModuleResult, 0, len(AllModules))
	for _, m := range AllModules {
		out = append(out, *r.Module(m))
	}
	return out
}
