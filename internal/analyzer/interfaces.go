package analyzer

import (
	"image"

	"go-image-enhancer/internal/raster"
	"go-image-enhancer/pkg/models"
)

// QualityAnalyzer measures the deficiencies of a raster image
type QualityAnalyzer interface {
	Analyze(buf *raster.PixelBuffer) models.QualityMetrics
}

// MetricsCalculator computes the individual sub-metrics. Each returns an error
// when the value is undefined for the given input.
type MetricsCalculator interface {
	ChannelStatistics(buf *raster.PixelBuffer) (mean, stdDev float64, err error)
	LaplacianVariance(gray *image.Gray) (float64, error)
	NoiseLevel(gray *image.Gray) (float64, error)
}
