package models

import (
	"fmt"
	"strings"
)

// Module identifies one evidence producer of the detection pipeline
type Module string

const (
	ModuleVisual     Module = "visual"
	ModuleMetadata   Module = "metadata"
	ModulePhysics    Module = "physics"
	ModuleFrequency  Module = "frequency"
	ModuleML         Module = "ml"
	ModuleProvenance Module = "provenance"

	// ModuleFinal namespaces the overall-verdict explanation tags. It never produces a result.
	ModuleFinal Module = "final"
)

// ScoredModules are the modules whose scores are fused, in fusion order
var ScoredModules = []Module{ModuleVisual, ModuleMetadata, ModulePhysics, ModuleFrequency, ModuleML}

// AllModules lists every module that produces a ModuleResult
var AllModules = []Module{ModuleVisual, ModuleMetadata, ModulePhysics, ModuleFrequency, ModuleML, ModuleProvenance}

// Flag is a module-local detection flag name
type Flag string

// Shared by every module when it was switched off for a run.
const FlagDisabled Flag = "disabled"

// Visual flags
const (
	FlagSkinSmoothing  Flag = "skin_smoothing"
	FlagSkinColorNoise Flag = "skin_color_noise"
	FlagTextureMelting Flag = "texture_melting"
	FlagHighSymmetry   Flag = "high_symmetry"
)

// Metadata flags
const (
	FlagExifMissing              Flag = "exif_missing"
	FlagSoftwareGeneratorTag     Flag = "software_generator_tag"
	FlagGeneratorInMakeModel     Flag = "generator_in_make_model"
	FlagUnknownCameraMake        Flag = "unknown_camera_make"
	FlagCameraMakeModelMissing   Flag = "camera_make_model_missing"
	FlagSpoofedMetadata          Flag = "spoofed_metadata_detected"
	FlagIncompleteCameraMetadata Flag = "incomplete_camera_metadata"
	FlagTimestampOutOfRange      Flag = "timestamp_out_of_range"
	FlagTimestampFuture          Flag = "timestamp_future"
	FlagTimestampUnparsable      Flag = "timestamp_unparsable"
	FlagExifParseError           Flag = "exif_parse_error"
)

// Physics flags
const (
	FlagLightDirectionInconsistent Flag = "light_direction_inconsistent"
	FlagShadowMisalignment         Flag = "shadow_misalignment"
	FlagPerspectiveIncoherent      Flag = "perspective_incoherent"
)

// Frequency flags
const (
	FlagSpectralPeaks        Flag = "spectral_peaks"
	FlagStructuredNoise      Flag = "structured_noise"
	FlagLowDCTHighFreqEnergy Flag = "low_dct_highfreq_energy"
)

// ML flags
const (
	FlagSingleModel       Flag = "single_model"
	FlagModelDisagreement Flag = "model_disagreement"
	FlagModelCallFailed   Flag = "model_call_failed"
)

// Provenance flags
const FlagC2PAMarkerPresent Flag = "c2pa_marker_present"

// Final (verdict-level) tags
const (
	FlagStrongAISignals    Flag = "strong_ai_signals"
	FlagStrongRealSignals  Flag = "strong_real_signals"
	FlagConflictingSignals Flag = "conflicting_signals"
)

var moduleFlags = map[Module][]Flag{
	ModuleVisual: {FlagSkinSmoothing, FlagSkinColorNoise, FlagTextureMelting, FlagHighSymmetry, FlagDisabled},
	ModuleMetadata: {
		FlagExifMissing, FlagSoftwareGeneratorTag, FlagGeneratorInMakeModel, FlagUnknownCameraMake,
		FlagCameraMakeModelMissing, FlagSpoofedMetadata, FlagIncompleteCameraMetadata,
		FlagTimestampOutOfRange, FlagTimestampFuture, FlagTimestampUnparsable, FlagExifParseError,
		FlagDisabled,
	},
	ModulePhysics:    {FlagLightDirectionInconsistent, FlagShadowMisalignment, FlagPerspectiveIncoherent, FlagDisabled},
	ModuleFrequency:  {FlagSpectralPeaks, FlagStructuredNoise, FlagLowDCTHighFreqEnergy, FlagDisabled},
	ModuleML:         {FlagSingleModel, FlagModelDisagreement, FlagModelCallFailed, FlagDisabled},
	ModuleProvenance: {FlagC2PAMarkerPresent, FlagDisabled},
	ModuleFinal:      {FlagStrongAISignals, FlagStrongRealSignals, FlagConflictingSignals},
}

// Valid reports whether m is a known module name (including final)
func (m Module) Valid() bool {
	_, ok := moduleFlags[m]
	return ok
}

// Owns reports whether f belongs to the closed flag set of m
func (m Module) Owns(f Flag) bool {
	for _, known := range moduleFlags[m] {
		if known == f {
			return true
		}
	}
	return false
}

// FlagsFor returns the closed flag set of a module
func FlagsFor(m Module) []Flag {
	flags := moduleFlags[m]
	out := make([]Flag, len(flags))
	copy(out, flags)
	return out
}

// Namespaced joins a module and flag into the "module:flag" explanation form
func Namespaced(m Module, f Flag) string {
	return string(m) + ":" + string(f)
}

// ParseNamespaced splits a "module:flag" tag and checks it against the known flag sets
func ParseNamespaced(tag string) (Module, Flag, error) {
	mod, flag, ok := strings.Cut(tag, ":")
	if !ok {
		return "", "", fmt.Errorf("explanation tag %q is not of the form module:flag", tag)
	}
	m, f := Module(mod), Flag(flag)
	if !m.Valid() {
		return "", "", fmt.Errorf("unknown module %q", mod)
	}
	if !m.Owns(f) {
		return "", "", fmt.Errorf("module %s has no flag %q", mod, flag)
	}
	return m, f, nil
}
