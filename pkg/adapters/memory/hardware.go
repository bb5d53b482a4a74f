package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sonicwave/pulse/internal/logging"
)

// Gateway call names, as recorded in the call log and used by FailOn.
const (
	CallStartOutput        = "start_output"
	CallStopOutput         = "stop_output"
	CallApplyFrequency     = "apply_frequency"
	CallApplyIntensity     = "apply_intensity"
	CallPlayStandaloneTone = "play_standalone_tone"
	CallStopStandaloneTone = "stop_standalone_tone"
)

// ErrInjected is returned by calls configured with FailOn and a nil error.
var ErrInjected = errors.New("injected hardware failure")

// Call is one recorded gateway invocation.
type Call struct {
	Name string
	Args []int
}

// HardwareState is what the simulated device currently outputs.
type HardwareState struct {
	Ready     bool
	OutputOn  bool
	ToneOn    bool
	Frequency int
	Intensity int
}

// Hardware is a simulated ports.HardwareGateway. It keeps the applied
// values, records every call and can inject failures. Safe for concurrent use.
type Hardware struct {
	mu       sync.Mutex
	state    HardwareState
	calls    []Call
	failures map[string]error
	refuse   bool
	changes  chan bool
	closed   bool
	logger   *slog.Logger
}

// HardwareOption configures a Hardware.
type HardwareOption func(*Hardware)

// WithReady sets the initial readiness.
func WithReady(ready bool) HardwareOption {
	return func(h *Hardware) {
		h.state.Ready = ready
	}
}

// WithHardwareLogger logs every call at debug level.
func WithHardwareLogger(logger *slog.Logger) HardwareOption {
	return func(h *Hardware) {
		h.logger = logger
	}
}

// NewHardware creates a simulated device. It starts ready unless
// WithReady(false) is given.
func NewHardware(opts ...HardwareOption) *Hardware {
	h := &Hardware{
		state:    HardwareState{Ready: true},
		failures: make(map[string]error),
		changes:  make(chan bool, 1),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// record logs the call and returns the injected failure for it, if any.
// Callers hold h.mu.
func (h *Hardware) record(name string, args ...int) error {
	h.calls = append(h.calls, Call{Name: name, Args: args})
	h.logger.Debug("hardware call", "call", name, "args", args)
	if err, ok := h.failures[name]; ok {
		if err == nil {
			err = ErrInjected
		}
		return err
	}
	return nil
}

func (h *Hardware) StartOutput(ctx context.Context, frequency, intensity int, playTone bool) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tone := 0
	if playTone {
		tone = 1
	}
	if err := h.record(CallStartOutput, frequency, intensity, tone); err != nil {
		return false, err
	}
	if h.refuse || !h.state.Ready {
		return false, nil
	}
	h.state.OutputOn = true
	h.state.ToneOn = playTone
	h.state.Frequency = frequency
	h.state.Intensity = intensity
	return true, nil
}

func (h *Hardware) StopOutput(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(CallStopOutput); err != nil {
		return err
	}
	h.state.OutputOn = false
	h.state.ToneOn = false
	return nil
}

func (h *Hardware) ApplyFrequency(ctx context.Context, frequency int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(CallApplyFrequency, frequency); err != nil {
		return err
	}
	h.state.Frequency = frequency
	return nil
}

func (h *Hardware) ApplyIntensity(ctx context.Context, intensity int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(CallApplyIntensity, intensity); err != nil {
		return err
	}
	h.state.Intensity = intensity
	return nil
}

func (h *Hardware) PlayStandaloneTone(ctx context.Context, frequency, intensity int) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(CallPlayStandaloneTone, frequency, intensity); err != nil {
		return false, err
	}
	h.state.ToneOn = true
	h.state.Frequency = frequency
	h.state.Intensity = intensity
	return true, nil
}

func (h *Hardware) StopStandaloneTone(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(CallStopStandaloneTone); err != nil {
		return err
	}
	h.state.ToneOn = false
	return nil
}

func (h *Hardware) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Ready
}

// ReadyChanges delivers the latest readiness; older undelivered values are
// replaced.
func (h *Hardware) ReadyChanges() <-chan bool {
	return h.changes
}

// SetReady changes readiness and notifies ReadyChanges.
func (h *Hardware) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.state.Ready == ready {
		return
	}
	h.state.Ready = ready
	if !ready {
		h.state.OutputOn = false
		h.state.ToneOn = false
	}
	select {
	case <-h.changes:
	default:
	}
	h.changes <- ready
}

// FailOn makes every later call named name return err (ErrInjected if nil).
func (h *Hardware) FailOn(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[name] = err
}

// Refuse makes StartOutput report false without an error.
func (h *Hardware) Refuse(refuse bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refuse = refuse
}

// ClearFailures removes every injected failure.
func (h *Hardware) ClearFailures() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = make(map[string]error)
	h.refuse = false
}

// State returns what the device currently outputs.
func (h *Hardware) State() HardwareState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Calls returns a copy of the call log.
func (h *Hardware) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// CallCount returns how many calls named name were made.
func (h *Hardware) CallCount(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (h *Hardware) ResetCalls() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

// Close closes the ReadyChanges channel.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.changes)
	return nil
}
