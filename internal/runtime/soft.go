package runtime

import (
	"context"

	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ramp"
)

// reducedIntensity is the soft reduction floor, never above the committed
// intensity.
func (m *Machine) reducedIntensity() int {
	return min(m.settings.SoftTargetIntensity, m.target.Intensity)
}

// SoftReduce attenuates a running session. The countdown keeps going.
func (m *Machine) SoftReduce(ctx context.Context) {
	if m.state != domain.RunRunning {
		return
	}
	m.setState(ctx, domain.RunSoftReduced, "soft_reduce")
	m.panelExpanded = true
	m.rampTo(ctx, ramp.Point{Frequency: m.target.Frequency, Intensity: m.reducedIntensity()})
	m.logOperationEvent(ctx, domain.OpSoftReductionStart)
}

// SoftResume ramps back to the committed intensity and returns to Running.
func (m *Machine) SoftResume(ctx context.Context) {
	if m.state != domain.RunSoftReduced {
		return
	}
	m.setState(ctx, domain.RunRunning, "soft_resume")
	m.panelExpanded = false
	m.rampTo(ctx, m.target)
	m.logOperationEvent(ctx, domain.OpSoftReductionResume)
}

// SoftStop ends a soft-reduced session.
func (m *Machine) SoftStop(ctx context.Context) {
	if m.state != domain.RunSoftReduced {
		return
	}
	m.Stop(ctx, domain.StopSoftReduction, nil)
}

// CollapsePanel hides the soft reduction panel. Run state is untouched.
func (m *Machine) CollapsePanel() {
	m.panelExpanded = false
}
