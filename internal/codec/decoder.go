package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go-image-enhancer/internal/raster"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decode decodes any registered format into a pixel buffer and reports the
// detected format name.
func Decode(data []byte) (*raster.PixelBuffer, string, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return raster.FromImage(img), name, nil
}

// DecodeConfig reads only the image header.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg, name, nil
}
