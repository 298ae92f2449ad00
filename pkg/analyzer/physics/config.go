package physics

// Config contains the calibration constants of the physics consistency analyzer
type Config struct {
	MinMagnitude       float64 // Gradients weaker than this are ignored
	OrientationBins    int     // Bins of the orientation histogram
	ShadowLuma         float64 // Luma below which a pixel can be shadow
	ShadowMinMagnitude float64 // Gradient a shadow pixel needs to count as a shadow edge

	LightFlagThreshold       float64
	ShadowFlagThreshold      float64
	PerspectiveFlagThreshold float64

	LightWeight       float64
	ShadowWeight      float64
	PerspectiveWeight float64

	MapSize int // Edge of the inconsistency map
}

// DefaultConfig returns the default physics configuration
func DefaultConfig() Config {
	return Config{
		MinMagnitude:       0.05,
		OrientationBins:    18,
		ShadowLuma:         0.22,
		ShadowMinMagnitude: 0.1,

		LightFlagThreshold:       0.7,
		ShadowFlagThreshold:      0.6,
		PerspectiveFlagThreshold: 0.7,

		LightWeight:       0.35,
		ShadowWeight:      0.35,
		PerspectiveWeight: 0.30,

		MapSize: 64,
	}
}
