package results

import (
	"fmt"

	"github.com/TwiN/deepmerge"
	"github.com/mitchellh/mapstructure"

	errs "github.com/perimetrix/fieldclinic/errors"
)

const (
	ParamBackgroundLuminance   = "backgroundLuminance"
	ParamStimulusDuration      = "stimulusDuration"
	ParamInterStimulusInterval = "interStimulusInterval"
	ParamFalsePositiveRate     = "falsePositiveRate"
	ParamFalseNegativeRate     = "falseNegativeRate"
)

// Configuration describes the next test run. It is never persisted on its own.
type Configuration struct {
	TestType           TestType       `json:"testType"`
	Strategy           string         `json:"strategy"`
	Eye                Eye            `json:"eye"`
	Duration           int            `json:"duration"`
	StimulusSize       string         `json:"stimulusSize"`
	StimulusIntensity  int            `json:"stimulusIntensity"`
	FixationMonitoring bool           `json:"fixationMonitoring"`
	AdvancedParameters map[string]any `json:"advancedParameters,omitempty"`
}

// AdvancedParameters is the typed view of the known advanced parameter keys.
type AdvancedParameters struct {
	BackgroundLuminance   float64 `mapstructure:"backgroundLuminance"`
	StimulusDuration      int     `mapstructure:"stimulusDuration"`
	InterStimulusInterval int     `mapstructure:"interStimulusInterval"`
	FalsePositiveRate     float64 `mapstructure:"falsePositiveRate"`
	FalseNegativeRate     float64 `mapstructure:"falseNegativeRate"`
}

func DefaultAdvancedParameters() map[string]any {
	return map[string]any{
		ParamBackgroundLuminance:   31.5,
		ParamStimulusDuration:      200,
		ParamInterStimulusInterval: 1000,
		ParamFalsePositiveRate:     5.0,
		ParamFalseNegativeRate:     5.0,
	}
}

// MergedParameters overlays the supplied parameters on the defaults. Unknown keys are kept.
func (c Configuration) MergedParameters() (map[string]any, AdvancedParameters, error) {
	merged := DefaultAdvancedParameters()
	if len(c.AdvancedParameters) > 0 {
		supplied := make(map[string]any, len(c.AdvancedParameters))
		for k, v := range c.AdvancedParameters {
			supplied[k] = v
			// a nested value replaces a scalar default outright
			if _, nested := v.(map[string]any); nested {
				if _, ok := merged[k].(map[string]any); !ok {
					delete(merged, k)
				}
			}
		}
		if err := deepmerge.DeepMerge(merged, supplied, deepmerge.Config{}); err != nil {
			return nil, AdvancedParameters{}, fmt.Errorf("unable to merge advanced parameters: %w", err)
		}
	}

	var typed AdvancedParameters
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &typed,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, AdvancedParameters{}, err
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, AdvancedParameters{}, fmt.Errorf("%w: invalid advanced parameters: %w", errs.BadRequest, err)
	}
	return merged, typed, nil
}

func (c Configuration) Validate() error {
	v := &errs.ValidationError{}
	if !c.TestType.Valid() {
		v.Add("testType", "must be one of 24-2, 30-2, 10-2, Custom")
	}
	if !c.Eye.Valid() {
		v.Add("eye", "must be one of OD, OS, OU")
	}
	if c.Duration <= 0 {
		v.Add("duration", "must be a positive number of seconds")
	}
	if c.StimulusIntensity < 0 {
		v.Add("stimulusIntensity", "cannot be negative")
	}

	_, params, err := c.MergedParameters()
	if err != nil {
		v.Add("advancedParameters", "%s", err.Error())
	} else {
		if params.FalsePositiveRate < 0 || params.FalsePositiveRate > 100 {
			v.Add("advancedParameters.falsePositiveRate", "must be between 0 and 100")
		}
		if params.FalseNegativeRate < 0 || params.FalseNegativeRate > 100 {
			v.Add("advancedParameters.falseNegativeRate", "must be between 0 and 100")
		}
		if params.StimulusDuration <= 0 {
			v.Add("advancedParameters.stimulusDuration", "must be positive")
		}
	}
	return v.Err()
}
