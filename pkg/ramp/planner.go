package ramp

import "time"

// Point is one (frequency, intensity) pair of a plan.
type Point struct {
	Frequency int `json:"frequency"`
	Intensity int `json:"intensity"`
}

// Plan is an ordered sequence of points applied one per tick.
type Plan struct {
	TickMs int     `json:"tick_ms"`
	Points []Point `json:"points"`
}

// Last returns the final point, which always equals the target.
func (p Plan) Last() Point {
	return p.Points[len(p.Points)-1]
}

// Interval returns the tick as a time.Duration.
func (p Plan) Interval() time.Duration {
	return time.Duration(p.TickMs) * time.Millisecond
}

// Duration returns the time needed to walk every point.
func (p Plan) Duration() time.Duration {
	return time.Duration(len(p.Points)) * p.Interval()
}

// NewPlan builds the transition plan from (startFreq, startIntensity) to
// (targetFreq, targetIntensity). It panics if spec has a non-positive tick;
// that is a programming error, use Validate to check configuration first.
func NewPlan(startFreq, startIntensity, targetFreq, targetIntensity int, spec TransitionSpec) Plan {
	steps := StepCount(spec)

	freqs := distribute(startFreq, targetFreq, steps)
	intensities := distribute(startIntensity, targetIntensity, steps)

	points := make([]Point, steps)
	for i := range points {
		points[i] = Point{Frequency: freqs[i], Intensity: intensities[i]}
	}
	return Plan{TickMs: spec.Tick(), Points: points}
}

// distribute walks from start to end in steps values using integer error
// diffusion. The last value is forced to end.
func distribute(start, end, steps int) []int {
	if steps == 1 {
		return []int{end}
	}

	delta := end - start
	sign := 0
	switch {
	case delta > 0:
		sign = 1
	case delta < 0:
		sign = -1
	}
	numerator := delta * sign
	denominator := steps - 1

	values := make([]int, steps)
	values[0] = start
	current, acc := start, 0
	for i := 1; i < steps; i++ {
		acc += numerator
		if acc >= denominator {
			n := acc / denominator
			current += sign * n
			acc -= n * denominator
		}
		values[i] = current
	}

	values[steps-1] = end
	return values
}
