package frequency

// Config contains the calibration constants of the frequency forensics analyzer
type Config struct {
	LowRadius          float64 // Radial frequency below which energy counts as low
	HighRadiusFraction float64 // Fraction of the width above which energy counts as high
	HighRatioOffset    float64 // High-frequency share that scores 0
	HighRatioRange     float64 // Share above the offset that scores 1

	PeakSigma   float64 // Peaks are magnitudes above mean + PeakSigma·σ
	PeakDensity float64 // One peak per PeakDensity coefficients scores 1

	NoiseOffset float64 // Residual autocorrelation that scores 0
	NoiseRange  float64 // Correlation above the offset that scores 1

	DCTHighIndex int     // Row-major DCT coefficients past this index count as high
	DCTReference float64 // High share at which the DCT score reaches 0

	EnergyFloor           float64 // Spectra and blocks with less total magnitude are empty
	ResidualVarianceFloor float64 // Residuals flatter than this carry no sensor noise

	PeakFlagThreshold  float64
	NoiseFlagThreshold float64
	DCTFlagThreshold   float64

	HighWeight  float64
	PeakWeight  float64
	NoiseWeight float64
	DCTWeight   float64
}

// DefaultConfig returns the default frequency configuration
func DefaultConfig() Config {
	return Config{
		LowRadius:          4,
		HighRadiusFraction: 0.25,
		HighRatioOffset:    0.12,
		HighRatioRange:     0.32,

		PeakSigma:   2.5,
		PeakDensity: 45,

		NoiseOffset: 0.08,
		NoiseRange:  0.35,

		DCTHighIndex: 10,
		DCTReference: 0.42,

		EnergyFloor:           1e-9,
		ResidualVarianceFloor: 1e-12,

		PeakFlagThreshold:  0.5,
		NoiseFlagThreshold: 0.55,
		DCTFlagThreshold:   0.55,

		HighWeight:  0.3,
		PeakWeight:  0.2,
		NoiseWeight: 0.2,
		DCTWeight:   0.3,
	}
}
