package ramp

import (
	"errors"
	"fmt"
)

// ErrInvalidTick is returned by Validate when a spec has a non-positive tick.
var ErrInvalidTick = errors.New("tickMs must be positive")

// TransitionSpec describes how long a transition lasts. It is a closed sum
// type: DurationSpec or StepsSpec.
type TransitionSpec interface {
	// Tick returns the interval between two plan points, in milliseconds.
	Tick() int
	isTransitionSpec()
}

// DurationSpec derives the step count from a total duration:
// max(1, ceil(DurationMs / TickMs)).
type DurationSpec struct {
	DurationMs int `json:"duration_ms" yaml:"duration_ms"`
	TickMs     int `json:"tick_ms" yaml:"tick_ms"`
}

// StepsSpec fixes the step count directly; it is floored to 1.
type StepsSpec struct {
	Steps  int `json:"steps" yaml:"steps"`
	TickMs int `json:"tick_ms" yaml:"tick_ms"`
}

func (s DurationSpec) Tick() int { return s.TickMs }
func (s StepsSpec) Tick() int    { return s.TickMs }

func (DurationSpec) isTransitionSpec() {}
func (StepsSpec) isTransitionSpec()    {}

// Validate checks the spec precondition without panicking.
func Validate(spec TransitionSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidTick)
	}
	if spec.Tick() <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTick, spec.Tick())
	}
	return nil
}

// StepCount returns the number of points a plan built from spec will hold.
// It panics if the tick is not positive.
func StepCount(spec TransitionSpec) int {
	if err := Validate(spec); err != nil {
		panic(err)
	}
	var steps int
	switch s := spec.(type) {
	case DurationSpec:
		steps = ceilDiv(s.DurationMs, s.TickMs)
	case StepsSpec:
		steps = s.Steps
	default:
		panic(fmt.Sprintf("ramp: unsupported transition spec %T", spec))
	}
	if steps < 1 {
		return 1
	}
	return steps
}

// ceilDiv rounds a/b up for b > 0. Results for a <= 0 are floored by the caller.
func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
