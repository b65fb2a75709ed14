package validation

import (
	"go-image-enhancer/pkg/models"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// QualityThresholds defines when a metric becomes a reported issue.
// Darkness, contrast, sharpness and noise flags come from the analyzer;
// these thresholds cover what the flags do not.
type QualityThresholds struct {
	MaxBrightness     float64
	MinContrast       float64
	MaxSharpnessScore float64
	SevereNoiseLevel  float64
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MaxBrightness:     220.0,
		MinContrast:       15.0,
		MaxSharpnessScore: 1000.0,
		SevereNoiseLevel:  50.0,
	}
}

// QualityValidator turns quality metrics into human-readable issues
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return NewQualityValidatorWithThresholds(DefaultQualityThresholds())
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{thresholds: thresholds}
}

// Issues lists the problems found in m, most severe first within each check
func (qv *QualityValidator) Issues(m models.QualityMetrics) []models.QualityIssue {
	issues := make([]models.QualityIssue, 0, 4)

	switch {
	case m.IsDark:
		issues = append(issues, models.QualityIssue{
			Code:     "underexposed",
			Message:  "Image is too dark. Brightness will be boosted.",
			Severity: SeverityWarning,
			Value:    m.BrightnessRaw,
		})
	case m.BrightnessRaw >= qv.thresholds.MaxBrightness:
		issues = append(issues, models.QualityIssue{
			Code:     "overexposed",
			Message:  "Image has too much light. Highlights may be clipped.",
			Severity: SeverityInfo,
			Value:    m.BrightnessRaw,
		})
	}

	if m.IsLowContrast {
		severity := SeverityWarning
		if m.ContrastRaw < qv.thresholds.MinContrast {
			severity = SeverityError
		}
		issues = append(issues, models.QualityIssue{
			Code:     "low_contrast",
			Message:  "Image looks flat. Contrast will be stretched.",
			Severity: severity,
			Value:    m.ContrastRaw,
		})
	}

	if m.NeedsSharpening {
		issues = append(issues, models.QualityIssue{
			Code:     "blurry",
			Message:  "Image is blurry. Sharpening will be applied.",
			Severity: SeverityWarning,
			Value:    m.SharpnessScore,
		})
	} else if m.SharpnessScore >= qv.thresholds.MaxSharpnessScore {
		issues = append(issues, models.QualityIssue{
			Code:     "over_sharpening",
			Message:  "Image has very strong edges or artificial sharpening.",
			Severity: SeverityInfo,
			Value:    m.SharpnessScore,
		})
	}

	if m.NeedsNoiseReduction {
		severity := SeverityWarning
		if m.NoiseLevel >= qv.thresholds.SevereNoiseLevel {
			severity = SeverityError
		}
		issues = append(issues, models.QualityIssue{
			Code:     "noisy",
			Message:  "Image is grainy. Noise reduction will be applied.",
			Severity: severity,
			Value:    m.NoiseLevel,
		})
	}

	return issues
}

// ConvertIssuesToMessages returns only the issue messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []models.QualityIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []models.QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
