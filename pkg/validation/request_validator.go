package validation

import (
	"fmt"
	"strings"

	"go-image-enhancer/internal/codec"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/pkg/models"
)

// ConvertOptions are the normalized output settings of a conversion request
type ConvertOptions struct {
	Format  codec.Format
	Quality int
}

// RequestValidator validates inbound conversion requests
type RequestValidator struct {
	urls           *URLValidator
	defaultFormat  string
	defaultQuality int
}

// NewRequestValidator uses defaultFormat and defaultQuality when a request omits them
func NewRequestValidator(urls *URLValidator, defaultFormat string, defaultQuality int) *RequestValidator {
	if urls == nil {
		urls = NewURLValidator()
	}
	return &RequestValidator{
		urls:           urls,
		defaultFormat:  defaultFormat,
		defaultQuality: defaultQuality,
	}
}

// ValidateURL checks the source image URL
func (v *RequestValidator) ValidateURL(imageURL string) error {
	return v.urls.ValidateImageURL(imageURL)
}

// ValidateConvert checks req and resolves its output options. A zero quality
// selects the default; any other value must lie in 1-100.
func (v *RequestValidator) ValidateConvert(req models.ConvertRequest) (ConvertOptions, error) {
	if err := v.urls.ValidateImageURL(req.ImageURL); err != nil {
		return ConvertOptions{}, err
	}

	name := strings.TrimSpace(req.Format)
	if name == "" {
		name = v.defaultFormat
	}
	format, err := codec.ParseFormat(name)
	if err != nil {
		return ConvertOptions{}, apperrors.NewValidationError(
			fmt.Sprintf("Unsupported format. Use one of: %s", strings.Join(codec.SupportedFormats(), ", ")), err)
	}

	quality := req.Quality
	if quality == 0 {
		quality = v.defaultQuality
	}
	if quality < 1 || quality > 100 {
		return ConvertOptions{}, apperrors.NewValidationError("Quality must be between 1 and 100", nil)
	}

	return ConvertOptions{Format: format, Quality: quality}, nil
}
