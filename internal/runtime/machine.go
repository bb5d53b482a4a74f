package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/constraints"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/ramp"
)

// Dispatcher runs a task on the goroutine that owns the Machine.
// Timer callbacks never touch the Machine directly; they hand a task to the
// dispatcher instead.
type Dispatcher func(task func(ctx context.Context))

// Settings tunes the run state machine.
type Settings struct {
	// ToggleMode decides what ToggleStartStop does while a session is active.
	ToggleMode domain.ToggleMode
	// Transition shapes every hardware ramp.
	Transition ramp.TransitionSpec
	// SoftTargetIntensity is the intensity a soft reduction ramps down to.
	SoftTargetIntensity int
	// PlayTone is forwarded to StartOutput.
	PlayTone bool
	// MaxRampFailures is the number of consecutive failed ramp writes
	// tolerated before the ramp is aborted.
	MaxRampFailures int
	// CountdownInterval is the length of one countdown second.
	CountdownInterval time.Duration
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		ToggleMode:          domain.ToggleStop,
		Transition:          ramp.DurationSpec{DurationMs: 400, TickMs: 20},
		SoftTargetIntensity: 20,
		PlayTone:            true,
		MaxRampFailures:     3,
		CountdownInterval:   time.Second,
	}
}

// Status is the run-side view of the machine used to build snapshots.
type Status struct {
	State         domain.RunState
	Countdown     int
	OperationID   int64
	Ready         bool
	PanelExpanded bool
	Applied       ramp.Point
	Ramping       bool
	Tone          bool
}

// Machine is the session run state machine: Idle, Running, Paused and
// SoftReduced. It sequences hardware and ledger calls and owns the countdown
// and ramp timers.
//
// A Machine is not safe for concurrent use. All methods, and every task
// handed to the Dispatcher, must run on the same goroutine.
type Machine struct {
	hw       ports.HardwareGateway
	ledger   ports.SessionLedger
	clock    ports.Clock
	dispatch Dispatcher
	settings Settings
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	deviceID string

	state         domain.RunState
	ready         bool
	opID          int64
	panelExpanded bool
	tone          bool

	// target is the committed (frequency, intensity) pair of the session;
	// applied is what the hardware last accepted.
	target  ramp.Point
	applied ramp.Point

	countdown      int
	countdownGen   uint64
	countdownTimer ports.Timer

	rampGen uint64
	ramp    *rampRun

	events []domain.Event
}

// Option configures the Machine.
type Option func(*Machine)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(m *Machine) {
		m.settings = s
	}
}

// WithClock sets the clock used for countdown and ramp ticks.
func WithClock(c ports.Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithDispatcher sets how timer callbacks reach the owner goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Machine) {
		m.dispatch = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithDeviceID tags hooks and logs with the device the machine drives.
func WithDeviceID(id string) Option {
	return func(m *Machine) {
		m.deviceID = id
	}
}

// NewMachine creates an idle machine. Readiness is read once from the
// gateway; later changes must be fed through SetReady.
func NewMachine(hw ports.HardwareGateway, ledger ports.SessionLedger, opts ...Option) *Machine {
	m := &Machine{
		hw:       hw,
		ledger:   ledger,
		clock:    SystemClock{},
		settings: DefaultSettings(),
		logger:   logging.NewNop(),
		state:    domain.RunIdle,
	}
	m.dispatch = func(task func(context.Context)) { task(context.Background()) }

	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("device_id", m.deviceID)
	m.ready = hw.Ready()
	return m
}

// Status returns the run-side view of the machine.
func (m *Machine) Status() Status {
	return Status{
		State:         m.state,
		Countdown:     m.countdown,
		OperationID:   m.opID,
		Ready:         m.ready,
		PanelExpanded: m.panelExpanded,
		Applied:       m.applied,
		Ramping:       m.ramp != nil,
		Tone:          m.tone,
	}
}

// DrainEvents returns and forgets the events produced since the last call.
func (m *Machine) DrainEvents() []domain.Event {
	out := m.events
	m.events = nil
	return out
}

func (m *Machine) emit(e domain.Event) {
	m.events = append(m.events, e)
}

// Toggle handles ToggleStartStop: start when idle, otherwise stop or
// pause/resume according to the toggle mode.
func (m *Machine) Toggle(ctx context.Context, p domain.Params, customer *domain.Customer) {
	switch m.state {
	case domain.RunIdle:
		m.Start(ctx, p, customer)
	case domain.RunRunning, domain.RunPaused:
		if m.settings.ToggleMode == domain.TogglePauseResume {
			m.TogglePause(ctx)
			return
		}
		m.Stop(ctx, domain.StopManual, nil)
	case domain.RunSoftReduced:
		m.Stop(ctx, domain.StopManual, nil)
	}
}

// Start opens a session with the committed values p. Readiness and value
// range are checked first; a failure at any step leaves the machine Idle.
func (m *Machine) Start(ctx context.Context, p domain.Params, customer *domain.Customer) {
	if m.state != domain.RunIdle {
		return
	}
	if !m.ready {
		m.emit(domain.ShowError(domain.ErrHardwareNotReady.Error(), domain.ErrHardwareNotReady))
		return
	}
	if !constraints.ValidParams(p) {
		m.emit(domain.ShowToast("set frequency, intensity and duration before starting"))
		return
	}
	if !m.stopTone(ctx) {
		return
	}

	ok, err := m.hw.StartOutput(ctx, p.FrequencyHz, p.Intensity, m.settings.PlayTone)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("output refused to start")
		}
		m.gatewayFailed(ctx, "start_output", err)
		m.emit(domain.ShowError("failed to start output", err))
		return
	}

	id, err := m.ledger.StartOperation(ctx, customer, p.FrequencyHz, p.Intensity, p.Minutes)
	if err != nil {
		m.gatewayFailed(ctx, "start_operation", err)
		if stopErr := m.hw.StopOutput(ctx); stopErr != nil {
			m.gatewayFailed(ctx, "stop_output", stopErr)
		}
		m.emit(domain.ShowError("failed to open session record", err))
		return
	}

	m.opID = id
	m.target = ramp.Point{Frequency: p.FrequencyHz, Intensity: p.Intensity}
	m.applied = m.target
	m.countdown = constraints.MinutesToSeconds(p.Minutes)
	m.setState(ctx, domain.RunRunning, "start")
	m.startCountdown()

	m.logger.InfoContext(ctx, "session started",
		"operation_id", id,
		"frequency", p.FrequencyHz,
		"intensity", p.Intensity,
		"minutes", p.Minutes,
	)
}

// Stop ends the active session with reason. It reports whether the
// machine is Idle afterwards.
//
// A failed StopOutput keeps the session for user-initiated reasons so the
// user can retry. Timeout, hardware errors and shutdown always reach Idle.
func (m *Machine) Stop(ctx context.Context, reason domain.StopReason, detail *string) bool {
	if !m.state.Active() {
		return true
	}

	if err := m.hw.StopOutput(ctx); err != nil {
		m.gatewayFailed(ctx, "stop_output", err)
		m.emit(domain.ShowError("failed to stop output", err))
		if !forcedStop(reason) {
			return false
		}
	}

	if err := m.ledger.StopOperation(ctx, m.opID, reason, detail); err != nil {
		m.gatewayFailed(ctx, "stop_operation", err)
		m.emit(domain.ShowError("failed to close session record", err))
	}

	m.logger.InfoContext(ctx, "session stopped", "operation_id", m.opID, "reason", reason)

	m.cancelCountdown()
	m.cancelRamp()
	m.opID = 0
	m.countdown = 0
	m.panelExpanded = false
	m.setState(ctx, domain.RunIdle, string(reason))
	return true
}

func forcedStop(reason domain.StopReason) bool {
	switch reason {
	case domain.StopTimeout, domain.StopHardwareError, domain.StopShutdown:
		return true
	}
	return false
}

// TogglePause alternates between Running and Paused. The output stays
// active while paused; only the countdown is frozen.
func (m *Machine) TogglePause(ctx context.Context) {
	switch m.state {
	case domain.RunRunning:
		m.cancelCountdown()
		m.setState(ctx, domain.RunPaused, "pause")
		m.logOperationEvent(ctx, domain.OpPause)
	case domain.RunPaused:
		m.setState(ctx, domain.RunRunning, "resume")
		m.startCountdown()
		m.logOperationEvent(ctx, domain.OpResume)
	}
}

// ParamsChanged applies a committed value change to an active session.
// Frequency and intensity ramp the hardware to the new pair; a duration
// change is only recorded. While soft-reduced an intensity change only
// moves the restore target.
func (m *Machine) ParamsChanged(ctx context.Context, f domain.FieldType, p domain.Params) {
	if !m.state.Active() {
		return
	}

	switch f {
	case domain.FieldFrequency:
		m.target.Frequency = p.FrequencyHz
		m.rampTo(ctx, ramp.Point{Frequency: m.target.Frequency, Intensity: m.outputIntensity()})
		m.logOperationEvent(ctx, domain.OpAdjustFrequency)
	case domain.FieldIntensity:
		m.target.Intensity = p.Intensity
		if m.state != domain.RunSoftReduced {
			m.rampTo(ctx, m.target)
		}
		m.logOperationEvent(ctx, domain.OpAdjustIntensity)
	case domain.FieldDuration:
		m.logOperationEvent(ctx, domain.OpAdjustTime)
	}
}

// outputIntensity is the intensity the hardware should settle at in the
// current state.
func (m *Machine) outputIntensity() int {
	if m.state == domain.RunSoftReduced {
		return m.reducedIntensity()
	}
	return m.target.Intensity
}

// PreviewTone plays or stops a standalone tone at the committed frequency
// and intensity. It only acts while no session is active; starting a
// session ends the preview first.
func (m *Machine) PreviewTone(ctx context.Context, p domain.Params, on bool) {
	if m.state != domain.RunIdle {
		return
	}
	if !on {
		m.stopTone(ctx)
		return
	}
	if m.tone {
		return
	}
	if !m.ready {
		m.emit(domain.ShowError(domain.ErrHardwareNotReady.Error(), domain.ErrHardwareNotReady))
		return
	}
	if !constraints.Valid(domain.FieldFrequency, p.FrequencyHz) || !constraints.Valid(domain.FieldIntensity, p.Intensity) {
		m.emit(domain.ShowToast("set frequency and intensity before previewing"))
		return
	}

	ok, err := m.hw.PlayStandaloneTone(ctx, p.FrequencyHz, p.Intensity)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("tone refused to play")
		}
		m.gatewayFailed(ctx, "play_standalone_tone", err)
		m.emit(domain.ShowError("failed to play tone", err))
		return
	}
	m.tone = true
}

// stopTone ends a playing preview. It reports whether the tone is off.
func (m *Machine) stopTone(ctx context.Context) bool {
	if !m.tone {
		return true
	}
	if err := m.hw.StopStandaloneTone(ctx); err != nil {
		m.gatewayFailed(ctx, "stop_standalone_tone", err)
		m.emit(domain.ShowError("failed to stop tone", err))
		return false
	}
	m.tone = false
	return true
}

// SetReady records a readiness update. Losing readiness during a session
// forces a hardware_error stop.
func (m *Machine) SetReady(ctx context.Context, ready bool) {
	if m.ready == ready {
		return
	}
	m.ready = ready
	m.logger.InfoContext(ctx, "hardware readiness changed", "ready", ready)
	if !ready {
		m.tone = false
	}

	if !ready && m.state.Active() {
		detail := "hardware became unavailable"
		m.emit(domain.ShowError("hardware disconnected", domain.ErrHardwareNotReady))
		m.Stop(ctx, domain.StopHardwareError, &detail)
	}
}

// Shutdown stops any active session with reason shutdown and cancels every
// pending timer.
func (m *Machine) Shutdown(ctx context.Context) {
	m.Stop(ctx, domain.StopShutdown, nil)
	m.stopTone(ctx)
	m.cancelCountdown()
	m.cancelRamp()
}

func (m *Machine) setState(ctx context.Context, to domain.RunState, reason string) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.logger.DebugContext(ctx, "run state changed", "from", from, "to", to, "reason", reason)

	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(ctx, &domain.TransitionEvent{
			HookBase: m.hookBase(domain.HookTransition),
			From:     from,
			To:       to,
			Reason:   reason,
		})
	}
}

func (m *Machine) gatewayFailed(ctx context.Context, call string, err error) {
	m.logger.WarnContext(ctx, "gateway call failed", "call", call, "err", err)
	if m.hooks.OnGatewayError != nil {
		m.hooks.OnGatewayError(ctx, &domain.GatewayEvent{
			HookBase: m.hookBase(domain.HookGatewayError),
			Call:     call,
			Err:      err,
		})
	}
}

func (m *Machine) tickObserved(ctx context.Context, kind domain.TickKind, stale bool) {
	if stale {
		m.logger.DebugContext(ctx, "dropped stale tick", "kind", kind)
	}
	if m.hooks.OnTick != nil {
		m.hooks.OnTick(ctx, &domain.TickEvent{
			HookBase: m.hookBase(domain.HookTick),
			Kind:     kind,
			Stale:    stale,
		})
	}
}

func (m *Machine) hookBase(t domain.HookType) domain.HookBase {
	return domain.HookBase{
		Timestamp: m.clock.Now(),
		Type:      t,
		DeviceID:  m.deviceID,
	}
}

// logOperationEvent records an audit event. A failure does not affect the
// session; the user gets a toast.
func (m *Machine) logOperationEvent(ctx context.Context, t domain.OperationEventType) {
	if !m.state.Active() || m.opID == 0 {
		return
	}
	event := domain.OperationEvent{
		Type:          t,
		Frequency:     m.target.Frequency,
		Intensity:     m.target.Intensity,
		TimeRemaining: m.countdown,
	}
	if err := m.ledger.LogOperationEvent(ctx, m.opID, event); err != nil {
		m.gatewayFailed(ctx, "log_operation_event", err)
		m.emit(domain.ShowToast(fmt.Sprintf("failed to record %s event", t)))
	}
}
