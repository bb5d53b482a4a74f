package constraints

import (
	"testing"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		field domain.FieldType
		in    int
		want  int
	}{
		{"frequency below", domain.FieldFrequency, -4, MinFrequency},
		{"frequency zero", domain.FieldFrequency, 0, MinFrequency},
		{"frequency inside", domain.FieldFrequency, 5, 5},
		{"frequency above", domain.FieldFrequency, 999, MaxFrequency},
		{"intensity inside", domain.FieldIntensity, 70, 70},
		{"intensity above", domain.FieldIntensity, 121, MaxIntensity},
		{"duration zero", domain.FieldDuration, 0, MinDurationMinutes},
		{"duration upper edge", domain.FieldDuration, MaxDurationMinutes, MaxDurationMinutes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.field, tt.in))
		})
	}
}

func TestFieldClampers(t *testing.T) {
	assert.Equal(t, MaxFrequency, ClampFrequency(MaxFrequency+1))
	assert.Equal(t, MinIntensity, ClampIntensity(-1))
	assert.Equal(t, 60, ClampDurationMinutes(60))
	assert.Equal(t, MinDurationMinutes*SecondsPerMinute, ClampDurationSeconds(5))
	assert.Equal(t, MaxDurationMinutes*SecondsPerMinute, ClampDurationSeconds(1_000_000))
}

func TestMinutesToSeconds_ClampsFirst(t *testing.T) {
	assert.Equal(t, 60, MinutesToSeconds(0))
	assert.Equal(t, 600, MinutesToSeconds(10))
	assert.Equal(t, MaxDurationMinutes*60, MinutesToSeconds(500))
}

func TestSecondsToMinutesDisplay_RoundsUp(t *testing.T) {
	assert.Equal(t, 1, SecondsToMinutesDisplay(1))
	assert.Equal(t, 1, SecondsToMinutesDisplay(60))
	assert.Equal(t, 2, SecondsToMinutesDisplay(61))
	assert.Equal(t, MinDurationMinutes, SecondsToMinutesDisplay(0))
	assert.Equal(t, MaxDurationMinutes, SecondsToMinutesDisplay(MaxDurationMinutes*60+1))
}

func TestValidParams(t *testing.T) {
	assert.True(t, ValidParams(domain.Params{FrequencyHz: 5, Intensity: 2, Minutes: 1}))
	assert.False(t, ValidParams(domain.Params{FrequencyHz: 5, Intensity: 0, Minutes: 1}))
	assert.False(t, ValidParams(domain.Params{}))
	assert.False(t, Valid(domain.FieldType(9), 1))
}

func TestNewStep(t *testing.T) {
	step := NewStep(500, 0, 0)
	assert.Equal(t, domain.Step{Intensity: MaxIntensity, FrequencyHz: MinFrequency, DurationSec: 1}, step)
}
