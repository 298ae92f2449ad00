package metadata

import "time"

// Config contains the scoring constants of the metadata analyzer
type Config struct {
	Baseline float64 // Score of any image before evidence is added

	MissingPenalty            float64 // No EXIF block at all
	SoftwareGeneratorPenalty  float64 // Software tag names a generator
	GeneratorMakeModelPenalty float64 // Make or Model names a generator
	UnknownMakePenalty        float64 // Make is not a known camera vendor
	MakeModelMissingPenalty   float64 // EXIF without Make and Model
	SpoofedPenalty            float64 // Known make with almost no capture details
	IncompletePenalty         float64 // Known make with few capture details
	OutOfRangePenalty         float64 // Timestamp further than MaxAge from now
	FuturePenalty             float64 // Timestamp beyond FutureTolerance
	UnparsablePenalty         float64 // Timestamp present but not a valid EXIF date
	ParseErrorPenalty         float64 // EXIF block could not be decoded

	SpoofedBelow    int // Capture-detail tags needed to avoid the spoofed flag
	IncompleteBelow int // Capture-detail tags needed to avoid the incomplete flag

	MaxAge          time.Duration
	FutureTolerance time.Duration

	Generators  []string // Lower-case generator tokens matched as substrings
	CameraMakes []string // Lower-case camera vendor tokens matched as substrings

	// Now is the reference clock for timestamp checks. Nil means time.Now.
	Now func() time.Time
}

// KnownGenerators are tokens that identify image generators and their front ends
var KnownGenerators = []string{
	"midjourney", "stable diffusion", "dall-e", "openai", "firefly", "comfyui",
	"automatic1111", "sdxl", "diffusion", "novelai", "flux", "black forest labs",
	"mj v6", "midjourney v6", "imagen", "playground", "leonardo.ai", "civitai",
	"artbreeder", "craiyon", "bluewillow", "starryai", "dreamstudio", "runway",
	"pika", "gen-2", "gen-3",
}

// KnownCameraMakes are camera and phone vendors as they appear in the Make tag
var KnownCameraMakes = []string{
	"canon", "nikon", "sony", "fujifilm", "panasonic", "olympus", "leica",
	"pentax", "apple", "samsung", "google", "huawei", "xiaomi", "oneplus",
}

// DefaultConfig returns the default metadata configuration
func DefaultConfig() Config {
	return Config{
		Baseline: 0.1,

		MissingPenalty:            0.2,
		SoftwareGeneratorPenalty:  0.6,
		GeneratorMakeModelPenalty: 0.5,
		UnknownMakePenalty:        0.25,
		MakeModelMissingPenalty:   0.15,
		SpoofedPenalty:            0.35,
		IncompletePenalty:         0.15,
		OutOfRangePenalty:         0.1,
		FuturePenalty:             0.2,
		UnparsablePenalty:         0.1,
		ParseErrorPenalty:         0.15,

		SpoofedBelow:    2,
		IncompleteBelow: 3,

		MaxAge:          20 * 365 * 24 * time.Hour,
		FutureTolerance: 48 * time.Hour,

		Generators:  KnownGenerators,
		CameraMakes: KnownCameraMakes,
	}
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
