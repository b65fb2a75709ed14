package enhancer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/codec"
	"go-image-enhancer/internal/logger"
	"go-image-enhancer/internal/raster"
	"go-image-enhancer/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrProcessingFailed is returned when no usable image can be produced,
	// not even the original.
	ErrProcessingFailed = errors.New("image processing failed")
	// ErrImageTooLarge is returned by Process when the decoded dimensions exceed the pixel limit.
	ErrImageTooLarge = errors.New("image exceeds pixel limit")

	errStepSkipped = errors.New("enhancement step skipped")
)

// EnhancementResult is the output of a single enhancement run.
type EnhancementResult struct {
	Image   *raster.PixelBuffer
	Labels  []string
	Metrics models.QualityMetrics
}

// Summary joins the applied labels for display.
func (r *EnhancementResult) Summary() string {
	if len(r.Labels) == 0 {
		return NoEnhancements
	}
	return strings.Join(r.Labels, ", ")
}

// Failed reports whether the result is the unmodified original returned after a fault.
func (r *EnhancementResult) Failed() bool {
	return len(r.Labels) == 1 && r.Labels[0] == LabelFailed
}

// Enhancer plans and applies corrective transforms.
type Enhancer struct {
	analyzer  analyzer.QualityAnalyzer
	bilateral BilateralParams
	maxPixels int
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithAnalyzer replaces the quality analyzer used by Process.
func WithAnalyzer(a analyzer.QualityAnalyzer) Option {
	return func(e *Enhancer) { e.analyzer = a }
}

// WithMaxPixels rejects images larger than n pixels in Process. Zero disables the check.
func WithMaxPixels(n int) Option {
	return func(e *Enhancer) { e.maxPixels = n }
}

// WithBilateral overrides the noise-reduction filter parameters.
func WithBilateral(p BilateralParams) Option {
	return func(e *Enhancer) { e.bilateral = p }
}

// New creates an enhancer.
func New(opts ...Option) *Enhancer {
	e := &Enhancer{
		analyzer:  analyzer.New(),
		bilateral: DefaultBilateral(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEnhancer = New()

// Enhance applies the transforms selected by metrics using the default enhancer.
func Enhance(buf *raster.PixelBuffer, metrics models.QualityMetrics) (*EnhancementResult, error) {
	return defaultEnhancer.Enhance(buf, metrics)
}

// Enhance applies the planned steps to buf in order. buf is never modified.
// Metrics are not recomputed between steps. Optional steps that fail are
// skipped; any other failure yields the original image labelled as failed.
// An error is returned only when buf itself is unusable.
func (e *Enhancer) Enhance(buf *raster.PixelBuffer, metrics models.QualityMetrics) (result *EnhancementResult, err error) {
	if verr := buf.Validate(); verr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, verr)
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = failedResult(buf, fmt.Errorf("panic: %v", r)), nil
		}
	}()

	current := buf
	labels := make([]string, 0, 5)
	for _, step := range Plan(metrics) {
		next, stepErr := e.apply(current, step)
		if stepErr != nil {
			if step.Optional {
				logger.WithError(stepErr).WithField("step", step.Kind.String()).Warn("Enhancement step skipped")
				continue
			}
			return failedResult(buf, stepErr), nil
		}
		current = next
		labels = append(labels, step.Label)
	}

	if len(labels) == 0 {
		boost := defaultBoost()
		next, stepErr := e.apply(current, boost)
		if stepErr != nil {
			return failedResult(buf, stepErr), nil
		}
		current = next
		labels = append(labels, boost.Label)
	}

	return &EnhancementResult{Image: current, Labels: labels, Metrics: metrics}, nil
}

type operation func(e *Enhancer, buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer

var operations = map[Kind]operation{
	KindBrightness: scaled(brighten),
	KindContrast:   scaled(stretchContrast),
	KindSharpen:    scaled(sharpen),
	KindSaturation: scaled(saturate),
	KindDenoise:    denoise,
}

// scaled adapts a factor-driven operation to the operation signature.
func scaled(op func(*raster.PixelBuffer, float64) *raster.PixelBuffer) operation {
	return func(_ *Enhancer, buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer {
		return op(buf, factor)
	}
}

func denoise(e *Enhancer, buf *raster.PixelBuffer, _ float64) *raster.PixelBuffer {
	return bilateral(buf, e.bilateral)
}

// apply runs one step, converting panics into errStepSkipped.
func (e *Enhancer) apply(buf *raster.PixelBuffer, step Step) (out *raster.PixelBuffer, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %s: %v", errStepSkipped, step.Kind, r)
		}
	}()

	op, ok := operations[step.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown step %d", errStepSkipped, step.Kind)
	}
	out = op(e, buf, step.Factor)

	if verr := out.Validate(); verr != nil {
		return nil, fmt.Errorf("%w: %s: %v", errStepSkipped, step.Kind, verr)
	}

	logger.WithFields(logrus.Fields{
		"step":        step.Kind.String(),
		"factor":      step.Factor,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Enhancement step applied")
	return out, nil
}

func failedResult(original *raster.PixelBuffer, cause error) *EnhancementResult {
	logger.WithError(cause).Error("Enhancement failed, returning original image")
	return &EnhancementResult{
		Image:   original,
		Labels:  []string{LabelFailed},
		Metrics: models.DefaultMetrics(),
	}
}

// Process decodes data, analyzes it and enhances it. If enhancement cannot
// proceed, the original bytes are decoded again for the fallback result.
func (e *Enhancer) Process(data []byte) (*EnhancementResult, error) {
	if e.maxPixels > 0 {
		cfg, _, err := codec.DecodeConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
		}
		if cfg.Width*cfg.Height > e.maxPixels {
			return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, e.maxPixels)
		}
	}

	buf, format, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	logger.WithFields(logrus.Fields{
		"format":   format,
		"width":    buf.Width,
		"height":   buf.Height,
		"channels": buf.Channels,
	}).Debug("Image decoded")

	metrics := e.analyzer.Analyze(buf)
	result, err := e.Enhance(buf, metrics)
	if err == nil {
		return result, nil
	}

	original, _, decodeErr := codec.Decode(data)
	if decodeErr != nil || original.Validate() != nil {
		return nil, err
	}
	return failedResult(original, err), nil
}
