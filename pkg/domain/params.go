package domain

// Params holds the committed value of every editable field.
// A zero value means the field has not been committed yet.
type Params struct {
	FrequencyHz int `json:"frequency_hz" yaml:"frequency_hz"`
	Intensity   int `json:"intensity" yaml:"intensity"`
	Minutes     int `json:"minutes" yaml:"minutes"`
}

// Get returns the committed value of a field.
func (p Params) Get(f FieldType) int {
	switch f {
	case FieldFrequency:
		return p.FrequencyHz
	case FieldIntensity:
		return p.Intensity
	case FieldDuration:
		return p.Minutes
	}
	return 0
}

// With returns a copy of p with the field set to v.
func (p Params) With(f FieldType, v int) Params {
	switch f {
	case FieldFrequency:
		p.FrequencyHz = v
	case FieldIntensity:
		p.Intensity = v
	case FieldDuration:
		p.Minutes = v
	}
	return p
}

// Step is a single stage of stimulation: a fixed intensity and frequency held
// for a number of seconds. Use constraints.NewStep to build a bounded Step.
type Step struct {
	Intensity   int `json:"intensity" yaml:"intensity"`
	FrequencyHz int `json:"frequency_hz" yaml:"frequency_hz"`
	DurationSec int `json:"duration_sec" yaml:"duration_sec"`
}

// Customer identifies who a session is performed on. It is optional and
// passed through to the session ledger untouched.
type Customer struct {
	ID   int64  `json:"id" mapstructure:"id"`
	Name string `json:"name,omitempty" mapstructure:"name"`
}
