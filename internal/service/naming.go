package service

import (
	"path"
	"strings"

	"go-image-enhancer/internal/codec"
)

const maxStemLength = 64

// ArtifactName builds ai_enhanced_<stem>_<id8>.<ext> from the source name
func ArtifactName(source, jobID string, format codec.Format) string {
	id := strings.ReplaceAll(jobID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return "ai_enhanced_" + stem(source) + "_" + id + "." + codec.Extension(format)
}

func stem(source string) string {
	base := path.Base(source)
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxStemLength {
			break
		}
	}

	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "image"
	}
	return s
}

// formatFromName infers the output format of a stored artifact from its extension
func formatFromName(name string) (codec.Format, bool) {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return "", false
	}
	f, err := codec.ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}
