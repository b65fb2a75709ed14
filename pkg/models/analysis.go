package models

import "time"

// QualityMetrics is the measurement record produced by the quality analyzer.
// Values are immutable once produced.
type QualityMetrics struct {
	Brightness    float64 `json:"brightness"`
	Contrast      float64 `json:"contrast"`
	BrightnessRaw float64 `json:"brightness_raw"`
	ContrastRaw   float64 `json:"contrast_raw"`
	IsDark        bool    `json:"is_dark"`
	IsLowContrast bool    `json:"is_low_contrast"`

	SharpnessScore  float64 `json:"sharpness_score"`
	NeedsSharpening bool    `json:"needs_sharpening"`

	NoiseLevel          float64 `json:"noise_level"`
	NeedsNoiseReduction bool    `json:"needs_noise_reduction"`
}

// DefaultMetrics returns the record used when analysis cannot measure an image.
func DefaultMetrics() QualityMetrics {
	return QualityMetrics{
		Brightness:      0.5,
		Contrast:        0.5,
		BrightnessRaw:   128,
		ContrastRaw:     50,
		SharpnessScore:  50,
		NeedsSharpening: true,
		NoiseLevel:      10,
	}
}

// QualityIssue is a human-readable finding derived from QualityMetrics
type QualityIssue struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Severity string  `json:"severity"`
	Value    float64 `json:"value"`
}

// JobRecord is a persisted enhancement job
type JobRecord struct {
	ID              string         `json:"id"`
	ImageURL        string         `json:"image_url"`
	Filename        string         `json:"filename"`
	Format          string         `json:"format"`
	Quality         int            `json:"quality"`
	SizeBytes       int            `json:"size_bytes"`
	Labels          []string       `json:"enhancements"`
	Metrics         QualityMetrics `json:"analysis"`
	StorageLocation string         `json:"storage_location"`
	ProcessingTime  time.Duration  `json:"processing_time_ns"`
	CreatedAt       time.Time      `json:"created_at"`
}
