/*
Package ramp turns a (current, target) parameter pair into a tick-by-tick
transition plan.

Frequency and intensity are distributed independently across the step count
with an integer error-diffusion (Bresenham-style) walk, then zipped by
position. Each dimension moves monotonically toward its target, catch-up
steps are spread evenly instead of clustering at the end, and the final
point is always exactly the target.

	plan := ramp.NewPlan(40, 10, 60, 30, ramp.DurationSpec{DurationMs: 400, TickMs: 20})
	for _, p := range plan.Points {
		// apply p.Frequency and p.Intensity, then wait plan.TickMs
	}

The planner is stateless: every call is independent.
*/
package ramp
