package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "go-image-enhancer/internal/errors"
)

// URLValidator checks source image URLs before they are fetched
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator accepts any http or https host
func NewURLValidator() *URLValidator {
	return NewURLValidatorWithOptions([]string{"http", "https"}, nil)
}

// NewURLValidatorWithOptions restricts schemes and, when hosts is non-empty, hosts
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL returns a validation AppError when imageURL cannot be fetched
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsed, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !v.isSchemeAllowed(parsed.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsed.Hostname() == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if !v.isHostAllowed(parsed.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed is true for every host when no restriction is configured
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	return slices.Contains(v.allowedHosts, strings.ToLower(host))
}
