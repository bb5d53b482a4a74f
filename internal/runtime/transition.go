package runtime

import (
	"context"
	"fmt"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/ramp"
)

// rampRun is the single in-flight hardware transition.
type rampRun struct {
	gen      uint64
	plan     ramp.Plan
	next     int
	failures int
	lastSent *ramp.Point
	timer    ports.Timer
}

// rampTo replaces any in-flight ramp with one from the applied pair to
// target. The first point is written immediately, the rest one per tick.
func (m *Machine) rampTo(ctx context.Context, target ramp.Point) {
	m.cancelRamp()
	if target == m.applied {
		return
	}

	m.rampGen++
	plan := ramp.NewPlan(m.applied.Frequency, m.applied.Intensity, target.Frequency, target.Intensity, m.settings.Transition)
	m.ramp = &rampRun{gen: m.rampGen, plan: plan}

	m.logger.DebugContext(ctx, "ramp started",
		"from", m.applied,
		"to", target,
		"steps", len(plan.Points),
		"tick_ms", plan.TickMs,
	)
	m.stepRamp(ctx)
}

// cancelRamp stops the in-flight ramp. A tick already queued for it will
// see a newer generation and be dropped.
func (m *Machine) cancelRamp() {
	if m.ramp == nil {
		return
	}
	if m.ramp.timer != nil {
		m.ramp.timer.Stop()
	}
	m.ramp = nil
	m.rampGen++
}

func (m *Machine) onRampTick(ctx context.Context, gen uint64) {
	if m.ramp == nil || m.ramp.gen != gen {
		m.tickObserved(ctx, domain.TickRamp, true)
		return
	}
	m.tickObserved(ctx, domain.TickRamp, false)
	m.ramp.timer = nil
	m.stepRamp(ctx)
}

// stepRamp writes the next plan point and schedules the following tick.
func (m *Machine) stepRamp(ctx context.Context) {
	run := m.ramp
	point := run.plan.Points[run.next]
	run.next++

	if run.lastSent == nil || *run.lastSent != point {
		started := m.clock.Now()
		failed := m.writePoint(ctx, point)
		run.lastSent = &point

		if failed {
			run.failures++
			if run.failures > m.settings.MaxRampFailures {
				m.logger.WarnContext(ctx, "ramp aborted", "consecutive_failures", run.failures)
				m.emit(domain.ShowError(fmt.Sprintf("ramp aborted after %d consecutive write failures", run.failures), nil))
				m.cancelRamp()
				return
			}
		} else {
			run.failures = 0
		}

		if elapsed := m.clock.Now().Sub(started); elapsed > run.plan.Interval()*8/10 {
			m.logger.WarnContext(ctx, "ramp tick is slow, consider a longer tick",
				"elapsed", elapsed, "tick_ms", run.plan.TickMs)
		}
	}

	if run.next >= len(run.plan.Points) {
		m.ramp = nil
		if target := run.plan.Last(); m.applied != target {
			m.logger.WarnContext(ctx, "ramp ended off target", "applied", m.applied, "target", target)
			m.emit(domain.ShowError(fmt.Sprintf("output stopped at %d Hz, intensity %d instead of %d Hz, intensity %d",
				m.applied.Frequency, m.applied.Intensity, target.Frequency, target.Intensity), nil))
		}
		return
	}

	gen := run.gen
	run.timer = m.clock.AfterFunc(run.plan.Interval(), func() {
		m.dispatch(func(ctx context.Context) { m.onRampTick(ctx, gen) })
	})
}

// writePoint applies each dimension that differs from the applied pair.
// It reports whether any write failed.
func (m *Machine) writePoint(ctx context.Context, p ramp.Point) bool {
	failed := false
	if p.Frequency != m.applied.Frequency {
		if err := m.hw.ApplyFrequency(ctx, p.Frequency); err != nil {
			m.gatewayFailed(ctx, "apply_frequency", err)
			failed = true
		} else {
			m.applied.Frequency = p.Frequency
		}
	}
	if p.Intensity != m.applied.Intensity {
		if err := m.hw.ApplyIntensity(ctx, p.Intensity); err != nil {
			m.gatewayFailed(ctx, "apply_intensity", err)
			failed = true
		} else {
			m.applied.Intensity = p.Intensity
		}
	}
	return failed
}
