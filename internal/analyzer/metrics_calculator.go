package analyzer

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"go-image-enhancer/internal/raster"

	"gonum.org/v1/gonum/stat"
)

var (
	// errMeasurement marks a sub-metric that could not be computed.
	errMeasurement = errors.New("measurement unavailable")
	errNoTiles     = fmt.Errorf("%w: image too small for noise tiles", errMeasurement)
)

// metricsCalculator implements MetricsCalculator on top of gonum/stat
type metricsCalculator struct {
	thresholds Thresholds
	slicePool  sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator(thresholds Thresholds) MetricsCalculator {
	return &metricsCalculator{
		thresholds: thresholds,
		slicePool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0, 1024)
				return &s
			},
		},
	}
}

func (mc *metricsCalculator) borrow(n int) *[]float64 {
	p := mc.slicePool.Get().(*[]float64)
	if cap(*p) < n {
		*p = make([]float64, 0, n)
	}
	*p = (*p)[:0]
	return p
}

// ChannelStatistics returns the mean of per-channel means and the mean of
// per-channel population standard deviations. Alpha counts as a channel.
func (mc *metricsCalculator) ChannelStatistics(buf *raster.PixelBuffer) (float64, float64, error) {
	if err := buf.Validate(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errMeasurement, err)
	}

	pixels := buf.Width * buf.Height
	samples := mc.borrow(pixels)
	defer mc.slicePool.Put(samples)

	var sumMean, sumStd float64
	for ch := 0; ch < buf.Channels; ch++ {
		data := (*samples)[:0]
		for i := ch; i < len(buf.Pix); i += buf.Channels {
			data = append(data, float64(buf.Pix[i]))
		}
		mean, std := stat.PopMeanStdDev(data, nil)
		sumMean += mean
		sumStd += std
		*samples = data
	}

	n := float64(buf.Channels)
	mean, std := sumMean/n, sumStd/n
	if !isFinite(mean) || !isFinite(std) {
		return 0, 0, fmt.Errorf("%w: non-numeric channel statistics", errMeasurement)
	}
	return mean, std, nil
}

// LaplacianVariance computes the population variance of the 4-neighbour
// Laplacian response. Borders reflect without repeating the edge pixel.
func (mc *metricsCalculator) LaplacianVariance(gray *image.Gray) (float64, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0, fmt.Errorf("%w: empty luminance plane", errMeasurement)
	}

	data := mc.borrow(width * height)
	defer mc.slicePool.Put(data)

	at := func(x, y int) float64 {
		return float64(gray.Pix[gray.PixOffset(bounds.Min.X+raster.Reflect101(x, width), bounds.Min.Y+raster.Reflect101(y, height))])
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	values := (*data)[:0]
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			laplacian := at(x, y-1) + at(x, y+1) + at(x-1, y) + at(x+1, y) - 4*at(x, y)
			values = append(values, laplacian)
		}
	}
	*data = values

	_, variance := stat.PopMeanVariance(values, nil)
	if !isFinite(variance) {
		return 0, fmt.Errorf("%w: non-numeric laplacian variance", errMeasurement)
	}
	return variance, nil
}

// NoiseLevel averages the population standard deviation of square tiles laid out
// on a regular grid. Only tiles whose origin leaves a full step to the far edge
// are sampled.
func (mc *metricsCalculator) NoiseLevel(gray *image.Gray) (float64, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	step := min(height/mc.thresholds.NoiseTileDivisor, width/mc.thresholds.NoiseTileDivisor)
	step = max(mc.thresholds.MinNoiseTile, step)

	tile := mc.borrow(step * step)
	defer mc.slicePool.Put(tile)

	var deviations []float64
	for i := 0; i < height-step; i += step {
		for j := 0; j < width-step; j += step {
			data := (*tile)[:0]
			for y := i; y < i+step; y++ {
				off := gray.PixOffset(bounds.Min.X+j, bounds.Min.Y+y)
				row := gray.Pix[off : off+step]
				for _, v := range row {
					data = append(data, float64(v))
				}
			}
			*tile = data
			deviations = append(deviations, stat.PopStdDev(data, nil))
		}
	}

	if len(deviations) == 0 {
		return 0, errNoTiles
	}
	return stat.Mean(deviations, nil), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
