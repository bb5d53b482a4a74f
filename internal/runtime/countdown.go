package runtime

import (
	"context"

	"github.com/sonicwave/pulse/pkg/domain"
)

func (m *Machine) startCountdown() {
	m.cancelCountdown()
	gen := m.countdownGen
	m.countdownTimer = m.clock.AfterFunc(m.settings.CountdownInterval, func() {
		m.dispatch(func(ctx context.Context) { m.onCountdownTick(ctx, gen) })
	})
}

func (m *Machine) cancelCountdown() {
	if m.countdownTimer != nil {
		m.countdownTimer.Stop()
		m.countdownTimer = nil
	}
	m.countdownGen++
}

func (m *Machine) onCountdownTick(ctx context.Context, gen uint64) {
	if gen != m.countdownGen || m.countdownTimer == nil {
		m.tickObserved(ctx, domain.TickCountdown, true)
		return
	}
	m.tickObserved(ctx, domain.TickCountdown, false)
	m.countdownTimer = nil

	if m.countdown > 0 {
		m.countdown--
	}
	if m.countdown == 0 {
		m.emit(domain.ShowToast("session complete"))
		m.Stop(ctx, domain.StopTimeout, nil)
		return
	}
	m.startCountdown()
}
