package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Supported channel layouts.
const (
	Gray = 1
	RGB  = 3
	RGBA = 4
)

// ErrInvalidBuffer is returned when a buffer's dimensions and samples disagree.
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// PixelBuffer is a decoded raster with 8-bit interleaved samples. RGBA buffers
// carry straight (non-premultiplied) alpha.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
	// Paletted records that the source image was palette-indexed before decoding.
	Paletted bool
}

// New allocates a zeroed buffer.
func New(width, height, channels int) *PixelBuffer {
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Validate reports whether the buffer is usable for pixel work.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	switch b.Channels {
	case Gray, RGB, RGBA:
	default:
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidBuffer, b.Channels)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: have %d samples, want %d", ErrInvalidBuffer, len(b.Pix), want)
	}
	return nil
}

// HasAlpha reports whether the buffer carries an alpha channel.
func (b *PixelBuffer) HasAlpha() bool {
	return b.Channels == RGBA
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{
		Width:    b.Width,
		Height:   b.Height,
		Channels: b.Channels,
		Pix:      pix,
		Paletted: b.Paletted,
	}
}

// FromImage converts a decoded image, detecting its channel layout.
func FromImage(img image.Image) *PixelBuffer {
	channels, paletted := detectChannels(img)
	buf := FromImageAs(img, channels)
	buf.Paletted = paletted
	return buf
}

// FromImageAs converts img into a buffer with the requested channel count.
func FromImageAs(img image.Image, channels int) *PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf := New(w, h, channels)
	if w == 0 || h == 0 {
		return buf
	}

	if channels == Gray {
		gray, ok := img.(*image.Gray)
		if !ok {
			gray = image.NewGray(image.Rect(0, 0, w, h))
			draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
		}
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
			copy(buf.Pix[y*w:(y+1)*w], row)
		}
		return buf
	}

	nrgba := toNRGBA(img)
	i := 0
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			buf.Pix[i] = row[x]
			buf.Pix[i+1] = row[x+1]
			buf.Pix[i+2] = row[x+2]
			if channels == RGBA {
				buf.Pix[i+3] = row[x+3]
			}
			i += channels
		}
	}
	return buf
}

func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// detectChannels picks the buffer layout for img. Straight-alpha types are
// what decoders produce for images carrying an alpha channel, so they keep
// four channels even when every pixel is opaque.
func detectChannels(img image.Image) (channels int, paletted bool) {
	switch src := img.(type) {
	case *image.Gray, *image.Gray16:
		return Gray, false
	case *image.Paletted:
		for _, c := range src.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return RGBA, true
			}
		}
		return RGB, true
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return RGBA, false
	case *image.YCbCr, *image.CMYK:
		return RGB, false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return RGB, false
	}
	if img.ColorModel() == color.GrayModel || img.ColorModel() == color.Gray16Model {
		return Gray, false
	}
	return RGBA, false
}

// Image returns a standard library view of the buffer: *image.Gray for
// single-channel buffers, *image.NRGBA otherwise.
func (b *PixelBuffer) Image() image.Image {
	if b.Channels == Gray {
		gray := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
		copy(gray.Pix, b.Pix)
		return gray
	}
	return b.NRGBA()
}

// NRGBA expands the buffer to 4 channels. Buffers without alpha are opaque.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	n := b.Width * b.Height
	for p := 0; p < n; p++ {
		s := p * b.Channels
		d := p * 4
		switch b.Channels {
		case Gray:
			v := b.Pix[s]
			dst.Pix[d], dst.Pix[d+1], dst.Pix[d+2], dst.Pix[d+3] = v, v, v, 0xff
		case RGB:
			dst.Pix[d], dst.Pix[d+1], dst.Pix[d+2], dst.Pix[d+3] = b.Pix[s], b.Pix[s+1], b.Pix[s+2], 0xff
		default:
			copy(dst.Pix[d:d+4], b.Pix[s:s+4])
		}
	}
	return dst
}

// Luminance returns the single-channel luminance plane. Multi-channel buffers use
// BT.601 weights on straight RGB, ignoring alpha.
func (b *PixelBuffer) Luminance() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	if b.Channels == Gray {
		copy(gray.Pix, b.Pix)
		return gray
	}
	n := b.Width * b.Height
	for p := 0; p < n; p++ {
		s := p * b.Channels
		gray.Pix[p] = Luma(b.Pix[s], b.Pix[s+1], b.Pix[s+2])
	}
	return gray
}

// Luma weights an 8-bit RGB triple the way color.GrayModel does.
func Luma(r, g, b uint8) uint8 {
	r16, g16, b16 := uint32(r)*0x101, uint32(g)*0x101, uint32(b)*0x101
	y := (19595*r16 + 38470*g16 + 7471*b16 + 1<<15) >> 24
	return uint8(y)
}

// Reflect101 maps an out-of-range index back into [0, n) as gfedcb|abcdefgh|gfedcba.
func Reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
