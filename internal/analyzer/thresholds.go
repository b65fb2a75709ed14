package analyzer

// Thresholds configures the quality flags derived from raw measurements
type Thresholds struct {
	// DarkBrightness flags an image as dark when raw brightness is below it.
	DarkBrightness float64
	// LowContrast flags an image as low contrast when raw contrast is below it.
	LowContrast float64
	// Sharpness flags an image for sharpening when Laplacian variance is below it.
	Sharpness float64
	// Noise flags an image for noise reduction when average tile deviation exceeds it.
	Noise float64

	// MinNoiseTile is the smallest tile edge used for noise estimation.
	MinNoiseTile int
	// NoiseTileDivisor splits the shorter side into this many tiles when that yields larger tiles.
	NoiseTileDivisor int

	MaxSharpnessScore float64
	MaxNoiseLevel     float64
}

// DefaultThresholds returns the standard quality thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		DarkBrightness:    100,
		LowContrast:       40,
		Sharpness:         100,
		Noise:             25,
		MinNoiseTile:      20,
		NoiseTileDivisor:  10,
		MaxSharpnessScore: 1000,
		MaxNoiseLevel:     100,
	}
}

// Validate reports whether the thresholds can be used for analysis
func (t Thresholds) Validate() bool {
	return t.MinNoiseTile > 0 && t.NoiseTileDivisor > 0 &&
		t.MaxSharpnessScore > 0 && t.MaxNoiseLevel > 0
}
