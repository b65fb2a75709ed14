package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"sync"

	"go-image-enhancer/internal/raster"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
)

var bufPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Encode serializes buf in the given format. Quality is clamped to 1-100 and
// only affects lossy formats. On failure no bytes are returned.
func Encode(buf *raster.PixelBuffer, format Format, quality int) ([]byte, error) {
	info, ok := formats[format]
	if !ok {
		return nil, &EncodingError{Format: format, Err: ErrUnsupportedFormat}
	}
	if err := buf.Validate(); err != nil {
		return nil, &EncodingError{Format: format, Err: err}
	}
	quality = clampQuality(quality)

	var img image.Image
	if info.requiresFlatten && (buf.HasAlpha() || buf.Paletted) {
		img = Flatten(buf)
	} else {
		img = buf.Image()
	}

	out := bufPool.Get().(*bytes.Buffer)
	out.Reset()
	defer bufPool.Put(out)

	if err := encodeTo(out, img, format, quality); err != nil {
		return nil, &EncodingError{Format: format, Err: err}
	}

	data := make([]byte, out.Len())
	copy(data, out.Bytes())
	return data, nil
}

func encodeTo(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case PNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case WEBP:
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
	case BMP:
		return bmp.Encode(w, img)
	}
	return ErrUnsupportedFormat
}

// Flatten composites buf over an opaque white background.
func Flatten(buf *raster.PixelBuffer) *image.RGBA {
	src := buf.NRGBA()
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)
	return dst
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
