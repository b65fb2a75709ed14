package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies an output codec.
type Format string

const (
	PNG  Format = "PNG"
	JPEG Format = "JPEG"
	WEBP Format = "WEBP"
	BMP  Format = "BMP"
)

// ErrUnsupportedFormat is wrapped by errors for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported format")

// EncodingError reports a failure to produce bytes for a format.
type EncodingError struct {
	Format Format
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

type formatInfo struct {
	usesQuality     bool
	requiresFlatten bool
	mimeType        string
	extension       string
}

var formats = map[Format]formatInfo{
	PNG:  {usesQuality: false, requiresFlatten: false, mimeType: "image/png", extension: "png"},
	JPEG: {usesQuality: true, requiresFlatten: true, mimeType: "image/jpeg", extension: "jpg"},
	WEBP: {usesQuality: true, requiresFlatten: false, mimeType: "image/webp", extension: "webp"},
	BMP:  {usesQuality: false, requiresFlatten: false, mimeType: "image/bmp", extension: "bmp"},
}

var aliases = map[string]Format{
	"JPG": JPEG,
}

// SupportedFormats lists every accepted format name, aliases included.
func SupportedFormats() []string {
	return []string{string(PNG), string(JPEG), "JPG", string(WEBP), string(BMP)}
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if f, ok := aliases[key]; ok {
		return f, nil
	}
	f := Format(key)
	if _, ok := formats[f]; !ok {
		return "", &EncodingError{Format: Format(name), Err: ErrUnsupportedFormat}
	}
	return f, nil
}

// MIMEType returns the content type for f, or application/octet-stream.
func MIMEType(f Format) string {
	if info, ok := formats[f]; ok {
		return info.mimeType
	}
	return "application/octet-stream"
}

// Extension returns the file extension for f without the dot.
func Extension(f Format) string {
	if info, ok := formats[f]; ok {
		return info.extension
	}
	return strings.ToLower(string(f))
}

// UsesQuality reports whether the quality parameter affects f.
func UsesQuality(f Format) bool {
	return formats[f].usesQuality
}
