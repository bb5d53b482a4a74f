package runtime

import "github.com/sonicwave/pulse/pkg/domain"

// Edge is a run state transition together with the reason the Machine
// reports for it.
type Edge struct {
	From   domain.RunState
	To     domain.RunState
	Reason string
}

// Edges lists every transition the Machine can take.
func Edges() []Edge {
	edges := []Edge{
		{domain.RunIdle, domain.RunRunning, "start"},
		{domain.RunRunning, domain.RunPaused, "pause"},
		{domain.RunPaused, domain.RunRunning, "resume"},
		{domain.RunRunning, domain.RunSoftReduced, "soft_reduce"},
		{domain.RunSoftReduced, domain.RunRunning, "soft_resume"},
		{domain.RunSoftReduced, domain.RunIdle, string(domain.StopSoftReduction)},
	}
	for _, from := range []domain.RunState{domain.RunRunning, domain.RunPaused, domain.RunSoftReduced} {
		for _, reason := range []domain.StopReason{domain.StopManual, domain.StopTimeout, domain.StopHardwareError, domain.StopShutdown} {
			// A paused countdown never expires.
			if from == domain.RunPaused && reason == domain.StopTimeout {
				continue
			}
			edges = append(edges, Edge{from, domain.RunIdle, string(reason)})
		}
	}
	return edges
}
