package ramp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frequencies(p Plan) []int {
	out := make([]int, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Frequency
	}
	return out
}

func intensities(p Plan) []int {
	out := make([]int, len(p.Points))
	for i, pt := range p.Points {
		out[i] = pt.Intensity
	}
	return out
}

func assertMonotonic(t *testing.T, values []int, delta int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if delta >= 0 {
			assert.LessOrEqual(t, values[i-1], values[i], "index %d of %v", i, values)
		} else {
			assert.GreaterOrEqual(t, values[i-1], values[i], "index %d of %v", i, values)
		}
	}
}

func TestNewPlan_ZeroDeltaProducesConstantPoints(t *testing.T) {
	plan := NewPlan(120, 70, 120, 70, StepsSpec{Steps: 3, TickMs: 10})

	require.Len(t, plan.Points, 3)
	assert.Equal(t, 10, plan.TickMs)
	for _, p := range plan.Points {
		assert.Equal(t, Point{Frequency: 120, Intensity: 70}, p)
	}
	assert.Equal(t, Point{120, 70}, plan.Last())
}

func TestNewPlan_PositiveDelta(t *testing.T) {
	plan := NewPlan(0, 0, 10, 5, StepsSpec{Steps: 6, TickMs: 20})

	require.Len(t, plan.Points, 6)
	assert.Equal(t, Point{10, 5}, plan.Last())
	assertMonotonic(t, frequencies(plan), 10)
	assertMonotonic(t, intensities(plan), 5)
	assert.Equal(t, []int{0, 2, 4, 6, 8, 10}, frequencies(plan))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, intensities(plan))
}

func TestNewPlan_NegativeDelta(t *testing.T) {
	plan := NewPlan(10, 8, 4, 2, StepsSpec{Steps: 4, TickMs: 30})

	require.Len(t, plan.Points, 4)
	assert.Equal(t, Point{4, 2}, plan.Last())
	assertMonotonic(t, frequencies(plan), -6)
	assertMonotonic(t, intensities(plan), -6)
}

func TestNewPlan_DurationSpecRoundsUp(t *testing.T) {
	plan := NewPlan(3, 0, 6, 100, DurationSpec{DurationMs: 25, TickMs: 10})

	require.Len(t, plan.Points, 3)
	assert.Equal(t, Point{6, 100}, plan.Last())
	assertMonotonic(t, frequencies(plan), 3)
	assertMonotonic(t, intensities(plan), 100)
	assert.Equal(t, 30*time.Millisecond, plan.Duration())
}

func TestNewPlan_SingleStepJumpsToTarget(t *testing.T) {
	plan := NewPlan(10, 10, 90, 1, StepsSpec{Steps: 1, TickMs: 5})
	assert.Equal(t, []Point{{90, 1}}, plan.Points)

	plan = NewPlan(10, 10, 90, 1, StepsSpec{Steps: -3, TickMs: 5})
	assert.Equal(t, []Point{{90, 1}}, plan.Points)

	plan = NewPlan(10, 10, 90, 1, DurationSpec{DurationMs: 0, TickMs: 5})
	assert.Equal(t, []Point{{90, 1}}, plan.Points)
}

func TestNewPlan_SpreadsCatchUpSteps(t *testing.T) {
	// 3 units over 6 intervals: one advance every other tick, not all at the end.
	plan := NewPlan(0, 0, 3, 0, StepsSpec{Steps: 7, TickMs: 1})
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2, 3}, frequencies(plan))
}

func TestNewPlan_LastPointExactForAllInputs(t *testing.T) {
	for steps := 1; steps <= 12; steps++ {
		for _, start := range []int{0, 7, 55, 200} {
			for _, target := range []int{0, 1, 13, 120, 199} {
				plan := NewPlan(start, target, target, start, StepsSpec{Steps: steps, TickMs: 20})
				require.Len(t, plan.Points, steps)
				assert.Equal(t, Point{target, start}, plan.Last())
				assertMonotonic(t, frequencies(plan), target-start)
				assertMonotonic(t, intensities(plan), start-target)
			}
		}
	}
}

func TestStepCount(t *testing.T) {
	tests := []struct {
		name string
		spec TransitionSpec
		want int
	}{
		{"duration exact", DurationSpec{DurationMs: 400, TickMs: 20}, 20},
		{"duration ceil", DurationSpec{DurationMs: 25, TickMs: 10}, 3},
		{"duration negative", DurationSpec{DurationMs: -10, TickMs: 10}, 1},
		{"steps", StepsSpec{Steps: 3, TickMs: 10}, 3},
		{"steps floor", StepsSpec{Steps: 0, TickMs: 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StepCount(tt.spec))
		})
	}
}

func TestNewPlan_NonPositiveTickPanics(t *testing.T) {
	assert.Panics(t, func() { NewPlan(0, 0, 1, 1, StepsSpec{Steps: 2, TickMs: 0}) })
	assert.Panics(t, func() { NewPlan(0, 0, 1, 1, DurationSpec{DurationMs: 10, TickMs: -1}) })
	assert.ErrorIs(t, Validate(StepsSpec{Steps: 2}), ErrInvalidTick)
	assert.ErrorIs(t, Validate(nil), ErrInvalidTick)
	assert.NoError(t, Validate(DurationSpec{DurationMs: 1, TickMs: 1}))
}
