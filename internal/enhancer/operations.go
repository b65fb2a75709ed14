package enhancer

import (
	"image"
	"image/color"

	"go-image-enhancer/internal/raster"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
)

// smoothKernel is a 3x3 low-pass kernel with a heavy centre weight.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// brighten scales every colour sample by factor. Alpha is left unchanged.
func brighten(buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer {
	out := adjust.Brightness(opaque(buf), factor-1)
	return rebuild(buf, out)
}

// stretchContrast pushes samples away from the mean luminance of buf.
func stretchContrast(buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer {
	mean := meanLuminance(buf)
	out := imaging.AdjustFunc(opaque(buf), func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(mean, c.R, factor),
			G: blend(mean, c.G, factor),
			B: blend(mean, c.B, factor),
			A: c.A,
		}
	})
	return rebuild(buf, out)
}

// sharpen extrapolates from a smoothed copy towards and past the original.
// The outer 1px frame has no full neighbourhood and is copied unchanged.
func sharpen(buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer {
	src := opaque(buf)
	smooth := imaging.Convolve3x3(src, smoothKernel, &imaging.ConvolveOptions{Normalize: true})

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewNRGBA(src.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				copy(out.Pix[i:i+4], src.Pix[i:i+4])
				continue
			}
			out.Pix[i] = blend(smooth.Pix[i], src.Pix[i], factor)
			out.Pix[i+1] = blend(smooth.Pix[i+1], src.Pix[i+1], factor)
			out.Pix[i+2] = blend(smooth.Pix[i+2], src.Pix[i+2], factor)
			out.Pix[i+3] = 0xff
		}
	}
	return rebuild(buf, out)
}

// saturate pushes each colour sample away from the pixel's own luma.
// Single-channel buffers have no chroma and are returned as a copy.
func saturate(buf *raster.PixelBuffer, factor float64) *raster.PixelBuffer {
	if buf.Channels == raster.Gray {
		return buf.Clone()
	}
	out := imaging.AdjustFunc(opaque(buf), func(c color.NRGBA) color.NRGBA {
		l := raster.Luma(c.R, c.G, c.B)
		return color.NRGBA{
			R: blend(l, c.R, factor),
			G: blend(l, c.G, factor),
			B: blend(l, c.B, factor),
			A: c.A,
		}
	})
	return rebuild(buf, out)
}

// blend returns base + factor*(value-base), clamped and truncated to 8 bits.
func blend(base, value uint8, factor float64) uint8 {
	v := float64(base) + factor*(float64(value)-float64(base))
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func meanLuminance(buf *raster.PixelBuffer) uint8 {
	gray := buf.Luminance()
	var sum uint64
	for _, v := range gray.Pix {
		sum += uint64(v)
	}
	return uint8(float64(sum)/float64(len(gray.Pix)) + 0.5)
}

// opaque returns an NRGBA view of buf with alpha forced to 255 so colour
// operations never see premultiplied samples.
func opaque(buf *raster.PixelBuffer) *image.NRGBA {
	img := buf.NRGBA()
	if buf.HasAlpha() {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// rebuild converts an operation result back to the layout of src, carrying
// src's alpha and palette flag through.
func rebuild(src *raster.PixelBuffer, img image.Image) *raster.PixelBuffer {
	out := raster.FromImageAs(img, src.Channels)
	out.Paletted = src.Paletted
	if src.HasAlpha() {
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = src.Pix[i]
		}
	}
	return out
}
