package enhancer

import (
	"math"

	"go-image-enhancer/internal/raster"
)

// BilateralParams configures the edge-preserving smoothing filter.
type BilateralParams struct {
	Diameter   int
	SigmaColor float64
	SigmaSpace float64
}

// DefaultBilateral matches a 9-pixel neighbourhood with sigma 75 in both domains.
func DefaultBilateral() BilateralParams {
	return BilateralParams{Diameter: 9, SigmaColor: 75, SigmaSpace: 75}
}

type spatialTap struct {
	dx, dy int
	weight float64
}

// bilateral smooths colour channels while preserving edges. Colour distance is
// the L1 distance over the colour channels; alpha is copied unchanged. Samples
// outside the image are mirrored about the edge pixel, which is not repeated.
func bilateral(buf *raster.PixelBuffer, p BilateralParams) *raster.PixelBuffer {
	radius := p.Diameter / 2
	if radius < 1 {
		return buf.Clone()
	}

	colorChannels := buf.Channels
	if buf.HasAlpha() {
		colorChannels = 3
	}

	spaceCoeff := -0.5 / (p.SigmaSpace * p.SigmaSpace)
	var taps []spatialTap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if r2 > float64(radius*radius) {
				continue
			}
			taps = append(taps, spatialTap{dx: dx, dy: dy, weight: math.Exp(r2 * spaceCoeff)})
		}
	}

	colorCoeff := -0.5 / (p.SigmaColor * p.SigmaColor)
	colorLUT := make([]float64, 255*colorChannels+1)
	for d := range colorLUT {
		colorLUT[d] = math.Exp(float64(d*d) * colorCoeff)
	}

	out := buf.Clone()
	w, h, ch := buf.Width, buf.Height, buf.Channels
	sums := make([]float64, colorChannels)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := (y*w + x) * ch
			for c := range sums {
				sums[c] = 0
			}
			var wsum float64

			for _, tap := range taps {
				nx := raster.Reflect101(x+tap.dx, w)
				ny := raster.Reflect101(y+tap.dy, h)
				n := (ny*w + nx) * ch

				dist := 0
				for c := 0; c < colorChannels; c++ {
					d := int(buf.Pix[n+c]) - int(buf.Pix[center+c])
					if d < 0 {
						d = -d
					}
					dist += d
				}

				weight := tap.weight * colorLUT[dist]
				for c := 0; c < colorChannels; c++ {
					sums[c] += weight * float64(buf.Pix[n+c])
				}
				wsum += weight
			}

			for c := 0; c < colorChannels; c++ {
				out.Pix[center+c] = uint8(math.Round(sums[c] / wsum))
			}
		}
	}
	return out
}
