package analyzer

import (
	"errors"
	"fmt"

	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/raster"
	"go-image-enhancer/pkg/models"

	"github.com/sirupsen/logrus"
)

// Fallback raw statistics used when channel statistics are undefined.
const (
	fallbackBrightnessRaw = 128.0
	fallbackContrastRaw   = 50.0
)

// Analyzer measures exposure, contrast, sharpness and noise. It holds no
// per-call state and is safe for concurrent use.
type Analyzer struct {
	calculator MetricsCalculator
	thresholds Thresholds
}

var defaultAnalyzer = New()

// New creates an analyzer with the default thresholds
func New() *Analyzer {
	return NewWithThresholds(DefaultThresholds())
}

// NewWithThresholds creates an analyzer with custom thresholds. Invalid
// thresholds are replaced by the defaults.
func NewWithThresholds(thresholds Thresholds) *Analyzer {
	if !thresholds.Validate() {
		thresholds = DefaultThresholds()
	}
	return &Analyzer{
		calculator: NewMetricsCalculator(thresholds),
		thresholds: thresholds,
	}
}

// Analyze measures buf with the default analyzer.
func Analyze(buf *raster.PixelBuffer) models.QualityMetrics {
	return defaultAnalyzer.Analyze(buf)
}

// Analyze never fails: measurement faults degrade to documented defaults.
func (a *Analyzer) Analyze(buf *raster.PixelBuffer) (result models.QualityMetrics) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Warn("Quality analysis failed, using default metrics")
			result = models.DefaultMetrics()
		}
	}()

	if err := buf.Validate(); err != nil {
		logger.WithError(err).Warn("Quality analysis failed, using default metrics")
		return models.DefaultMetrics()
	}

	brightnessRaw, contrastRaw, err := a.calculator.ChannelStatistics(buf)
	if err != nil {
		logger.WithError(err).Warn("Channel statistics unavailable, using fallback values")
		brightnessRaw, contrastRaw = fallbackBrightnessRaw, fallbackContrastRaw
	}

	result = models.QualityMetrics{
		Brightness:    clamp(brightnessRaw/255, 0, 1),
		Contrast:      clamp(contrastRaw/255, 0, 1),
		BrightnessRaw: clamp(brightnessRaw, 0, 255),
		ContrastRaw:   clamp(contrastRaw, 0, 255),
		IsDark:        brightnessRaw < a.thresholds.DarkBrightness,
		IsLowContrast: contrastRaw < a.thresholds.LowContrast,
	}

	if err := a.measureStructure(buf, &result); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"width":    buf.Width,
			"height":   buf.Height,
			"channels": buf.Channels,
		}).Warn("Structural analysis failed, using safe defaults")
		result.NeedsSharpening = true
		result.NeedsNoiseReduction = false
		result.SharpnessScore = 50
		result.NoiseLevel = 10
	}

	logger.WithFields(logrus.Fields{
		"brightness_raw":  result.BrightnessRaw,
		"contrast_raw":    result.ContrastRaw,
		"sharpness_score": result.SharpnessScore,
		"noise_level":     result.NoiseLevel,
	}).Debug("Quality analysis completed")
	return result
}

// measureStructure fills the sharpness and noise fields from the luminance plane.
func (a *Analyzer) measureStructure(buf *raster.PixelBuffer, m *models.QualityMetrics) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errMeasurement, r)
		}
	}()

	gray := buf.Luminance()

	variance, err := a.calculator.LaplacianVariance(gray)
	if err != nil {
		return err
	}

	noiseLevel, needsNoiseReduction := 10.0, false
	noise, err := a.calculator.NoiseLevel(gray)
	switch {
	case errors.Is(err, errNoTiles):
		// Too small to tile: keep the default noise level.
	case err != nil:
		return err
	default:
		noiseLevel = clamp(noise, 0, a.thresholds.MaxNoiseLevel)
		needsNoiseReduction = noise > a.thresholds.Noise
	}

	m.SharpnessScore = clamp(variance, 0, a.thresholds.MaxSharpnessScore)
	m.NeedsSharpening = variance < a.thresholds.Sharpness
	m.NoiseLevel = noiseLevel
	m.NeedsNoiseReduction = needsNoiseReduction
	return nil
}
