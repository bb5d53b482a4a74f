// Package constraints holds the range rules for session parameters.
//
// Every function is total: out-of-range input is clipped into the closed
// bounds, never rejected.
package constraints

import "github.com/sonicwave/pulse/pkg/domain"

const (
	MinFrequency = 1
	MaxFrequency = 200

	MinIntensity = 1
	MaxIntensity = 120

	MinDurationMinutes = 1
	MaxDurationMinutes = 120

	SecondsPerMinute = 60
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFrequency clips v into [MinFrequency, MaxFrequency].
func ClampFrequency(v int) int { return clamp(v, MinFrequency, MaxFrequency) }

// ClampIntensity clips v into [MinIntensity, MaxIntensity].
func ClampIntensity(v int) int { return clamp(v, MinIntensity, MaxIntensity) }

// ClampDurationMinutes clips v into [MinDurationMinutes, MaxDurationMinutes].
func ClampDurationMinutes(v int) int { return clamp(v, MinDurationMinutes, MaxDurationMinutes) }

// ClampDurationSeconds clips a duration in seconds into the minute bounds
// expressed in seconds.
func ClampDurationSeconds(v int) int {
	return clamp(v, MinDurationMinutes*SecondsPerMinute, MaxDurationMinutes*SecondsPerMinute)
}

// MinutesToSeconds clamps the minutes first, then converts.
func MinutesToSeconds(minutes int) int {
	return ClampDurationMinutes(minutes) * SecondsPerMinute
}

// SecondsToMinutesDisplay rounds up to whole minutes before clamping, so a
// stored duration is never shown as fewer minutes than it represents.
func SecondsToMinutesDisplay(seconds int) int {
	if seconds <= 0 {
		return ClampDurationMinutes(0)
	}
	return ClampDurationMinutes((seconds + SecondsPerMinute - 1) / SecondsPerMinute)
}

// Bounds returns the inclusive range of a field.
func Bounds(f domain.FieldType) (lo, hi int) {
	switch f {
	case domain.FieldFrequency:
		return MinFrequency, MaxFrequency
	case domain.FieldIntensity:
		return MinIntensity, MaxIntensity
	case domain.FieldDuration:
		return MinDurationMinutes, MaxDurationMinutes
	}
	return 0, 0
}

// Clamp clips v into the bounds of the given field.
func Clamp(f domain.FieldType, v int) int {
	lo, hi := Bounds(f)
	return clamp(v, lo, hi)
}

// Valid reports whether v lies inside the bounds of f.
func Valid(f domain.FieldType, v int) bool {
	lo, hi := Bounds(f)
	return f.Valid() && v >= lo && v <= hi
}

// ValidParams reports whether every committed value is inside its range.
func ValidParams(p domain.Params) bool {
	return Valid(domain.FieldFrequency, p.FrequencyHz) &&
		Valid(domain.FieldIntensity, p.Intensity) &&
		Valid(domain.FieldDuration, p.Minutes)
}

// NewStep builds a bounded Step. Duration is kept at one second or more.
func NewStep(intensity, frequencyHz, durationSec int) domain.Step {
	if durationSec < 1 {
		durationSec = 1
	}
	return domain.Step{
		Intensity:   ClampIntensity(intensity),
		FrequencyHz: ClampFrequency(frequencyHz),
		DurationSec: durationSec,
	}
}
