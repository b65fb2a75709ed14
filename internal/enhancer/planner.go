package enhancer

import "go-image-enhancer/pkg/models"

// Labels reported for applied steps.
const (
	LabelBrightness     = "Auto Brightness Boost"
	LabelContrast       = "Auto Contrast Enhancement"
	LabelSharpening     = "Auto Sharpening"
	LabelColor          = "Auto Color Enhancement"
	LabelNoiseReduction = "Auto Noise Reduction"
	LabelDefaultBoost   = "Default Quality Boost"
	LabelFailed         = "Enhancement failed - returned original"
	NoEnhancements      = "No enhancements applied"
)

// Kind identifies a corrective transform.
type Kind int

const (
	KindBrightness Kind = iota
	KindContrast
	KindSharpen
	KindSaturation
	KindDenoise
)

func (k Kind) String() string {
	switch k {
	case KindBrightness:
		return "brightness"
	case KindContrast:
		return "contrast"
	case KindSharpen:
		return "sharpen"
	case KindSaturation:
		return "saturation"
	case KindDenoise:
		return "denoise"
	}
	return "unknown"
}

// Step is one planned transform. Optional steps are skipped on failure
// instead of aborting the whole enhancement.
type Step struct {
	Kind     Kind
	Factor   float64
	Label    string
	Optional bool
}

const defaultBoostFactor = 1.1

// Plan evaluates the rule table against m and returns the selected steps in
// application order. The default boost is not included; it depends on which
// steps actually succeed.
func Plan(m models.QualityMetrics) []Step {
	var steps []Step

	if m.IsDark || m.Brightness < 0.4 {
		factor := 1.15
		if m.Brightness < 0.3 {
			factor = 1.3
		}
		steps = append(steps, Step{Kind: KindBrightness, Factor: factor, Label: LabelBrightness})
	}

	if m.IsLowContrast || m.Contrast < 0.3 {
		factor := 1.2
		if m.Contrast < 0.2 {
			factor = 1.4
		}
		steps = append(steps, Step{Kind: KindContrast, Factor: factor, Label: LabelContrast})
	}

	if m.NeedsSharpening || m.SharpnessScore < 100 {
		factor := 1.2
		if m.SharpnessScore < 50 {
			factor = 1.5
		}
		steps = append(steps, Step{Kind: KindSharpen, Factor: factor, Label: LabelSharpening})
	}

	steps = append(steps, Step{Kind: KindSaturation, Factor: 1.1, Label: LabelColor, Optional: true})

	if m.NeedsNoiseReduction {
		steps = append(steps, Step{Kind: KindDenoise, Label: LabelNoiseReduction, Optional: true})
	}

	return steps
}

func defaultBoost() Step {
	return Step{Kind: KindSharpen, Factor: defaultBoostFactor, Label: LabelDefaultBoost}
}
