package service

import (
	"encoding/base64"

	"go-image-enhancer/internal/codec"
	"go-image-enhancer/internal/raster"

	"github.com/disintegration/imaging"
)

const previewQuality = 80

// Preview is the inline base64 rendition returned with a conversion
type Preview struct {
	Data     string
	MIMEType string
}

// BuildPreview returns encoded as-is when it fits in maxBytes. Larger outputs
// are replaced by a JPEG thumbnail fitted to size x size.
func BuildPreview(encoded []byte, format codec.Format, img *raster.PixelBuffer, maxBytes, size int) (*Preview, error) {
	if maxBytes <= 0 || len(encoded) <= maxBytes {
		return &Preview{
			Data:     base64.StdEncoding.EncodeToString(encoded),
			MIMEType: codec.MIMEType(format),
		}, nil
	}

	thumb := imaging.Fit(img.Image(), size, size, imaging.Lanczos)
	data, err := codec.Encode(raster.FromImage(thumb), codec.JPEG, previewQuality)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: codec.MIMEType(codec.JPEG),
	}, nil
}
