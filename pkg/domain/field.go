package domain

import (
	"fmt"
	"strings"
)

// FieldType identifies one of the three editable session parameters.
type FieldType int

const (
	FieldFrequency FieldType = iota
	FieldIntensity
	FieldDuration
)

// Fields lists every field in cycle order.
var Fields = []FieldType{FieldFrequency, FieldIntensity, FieldDuration}

var fieldNames = [...]string{"frequency", "intensity", "duration"}

// String returns the wire name of the field.
func (f FieldType) String() string {
	if !f.Valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the known fields.
func (f FieldType) Valid() bool {
	return f >= FieldFrequency && f <= FieldDuration
}

// Next returns the field that follows f in the cycle
// Frequency -> Intensity -> Duration -> Frequency.
func (f FieldType) Next() FieldType {
	return (f + 1) % FieldType(len(fieldNames))
}

// ParseField converts a wire name into a FieldType.
// "time" is accepted as an alias of "duration".
func ParseField(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "frequency", "freq":
		return FieldFrequency, nil
	case "intensity":
		return FieldIntensity, nil
	case "duration", "time":
		return FieldDuration, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// MarshalText implements encoding.TextMarshaler.
func (f FieldType) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
