package visual

// Config contains the calibration constants of the visual artifact analyzer
type Config struct {
	SkinVarianceThreshold   float64 // Skin Laplacian variance below which skin reads as airbrushed
	GlobalVarianceThreshold float64 // Same, for the whole frame when no skin is found

	ChromaNoiseLow  float64 // Skin chroma variance below this is unnaturally clean
	ChromaNoiseHigh float64 // Skin chroma variance above this is unnaturally noisy
	MinSkinPixels   int     // Skin area needed before chroma noise is judged

	BlockSize             int     // Edge of the texture blocks
	MeltVarianceThreshold float64 // Block luma variance below which a block is "melted"

	SymmetryThreshold float64 // Mirror mean absolute error at which symmetry scores 0

	SmoothingFlagThreshold  float64
	ColorNoiseFlagThreshold float64
	MeltingFlagThreshold    float64
	SymmetryFlagThreshold   float64

	SmoothingWeight  float64
	MeltingWeight    float64
	SymmetryWeight   float64
	ColorNoiseWeight float64

	MapSize int // Edge of the melted-block map
}

// DefaultConfig returns the default visual configuration
func DefaultConfig() Config {
	return Config{
		SkinVarianceThreshold:   0.015,
		GlobalVarianceThreshold: 0.01,

		ChromaNoiseLow:  4,
		ChromaNoiseHigh: 180,
		MinSkinPixels:   64,

		BlockSize:             8,
		MeltVarianceThreshold: 0.002,

		SymmetryThreshold: 0.15,

		SmoothingFlagThreshold:  0.6,
		ColorNoiseFlagThreshold: 0.5,
		MeltingFlagThreshold:    0.5,
		SymmetryFlagThreshold:   0.7,

		SmoothingWeight:  0.35,
		MeltingWeight:    0.30,
		SymmetryWeight:   0.15,
		ColorNoiseWeight: 0.20,

		MapSize: 32,
	}
}
