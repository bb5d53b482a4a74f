package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/internal/runtime"
	"github.com/sonicwave/pulse/pkg/constraints"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/entry"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/sonicwave/pulse/pkg/ramp"
)

const (
	eventBuffer      = 64
	subscriberBuffer = 16
)

// Update is one published change: the new snapshot and the one-shot events
// produced with it.
type Update struct {
	State  domain.UiState `json:"state"`
	Events []domain.Event `json:"events,omitempty"`
}

type handled struct {
	state  domain.UiState
	events []domain.Event
	err    error
}

type task struct {
	run   func(ctx context.Context) error
	kind  domain.IntentKind
	reply chan handled
}

// Orchestrator is the single entry point for user intents on one device.
// One goroutine owns the digit buffer and the run state machine; intents,
// ramp ticks, countdown ticks and readiness updates are processed on it one
// at a time, in arrival order.
type Orchestrator struct {
	deviceID string
	hw       ports.HardwareGateway
	ledger   ports.SessionLedger
	store    ports.SnapshotStore
	clock    ports.Clock
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	settings runtime.Settings
	bufOpts  []entry.Option

	buf     *entry.Buffer
	machine *runtime.Machine

	tasks     chan task
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	state domain.UiState

	events chan domain.Event

	subsMu     sync.Mutex
	subs       map[chan Update]struct{}
	subsClosed bool
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithDeviceID names the device. It tags logs, hooks and stored snapshots.
func WithDeviceID(id string) Option {
	return func(o *Orchestrator) {
		o.deviceID = id
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock used for countdown and ramp ticks.
func WithClock(c ports.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithSnapshotStore persists every new snapshot and restores committed
// values from the last one on creation.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithToggleMode selects what ToggleStartStop does during a session.
func WithToggleMode(mode domain.ToggleMode) Option {
	return func(o *Orchestrator) {
		o.settings.ToggleMode = mode
	}
}

// WithTransition sets the ramp shape used for every hardware transition.
func WithTransition(spec ramp.TransitionSpec) Option {
	return func(o *Orchestrator) {
		o.settings.Transition = spec
	}
}

// WithSoftTargetIntensity sets the intensity a soft reduction ramps to.
func WithSoftTargetIntensity(intensity int) Option {
	return func(o *Orchestrator) {
		o.settings.SoftTargetIntensity = intensity
	}
}

// WithPlayTone controls the tone flag passed to StartOutput.
func WithPlayTone(play bool) Option {
	return func(o *Orchestrator) {
		o.settings.PlayTone = play
	}
}

// WithBufferOptions configures the digit entry buffer.
func WithBufferOptions(opts ...entry.Option) Option {
	return func(o *Orchestrator) {
		o.bufOpts = append(o.bufOpts, opts...)
	}
}

// NewOrchestrator creates an orchestrator and starts its owner goroutine.
// Close must be called to release it.
func NewOrchestrator(hw ports.HardwareGateway, ledger ports.SessionLedger, opts ...Option) (*Orchestrator, error) {
	if hw == nil || ledger == nil {
		return nil, errors.New("hardware gateway and session ledger are required")
	}

	o := &Orchestrator{
		hw:       hw,
		ledger:   ledger,
		clock:    runtime.SystemClock{},
		logger:   logging.NewNop(),
		settings: runtime.DefaultSettings(),
		tasks:    make(chan task),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		events:   make(chan domain.Event, eventBuffer),
		subs:     make(map[chan Update]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := ramp.Validate(o.settings.Transition); err != nil {
		return nil, fmt.Errorf("invalid transition: %w", err)
	}
	if !o.settings.ToggleMode.Valid() {
		return nil, fmt.Errorf("invalid toggle mode %q", o.settings.ToggleMode)
	}
	o.settings.SoftTargetIntensity = constraints.ClampIntensity(o.settings.SoftTargetIntensity)
	o.logger = o.logger.With("device_id", o.deviceID)

	o.buf = entry.New(o.bufOpts...)
	o.machine = runtime.NewMachine(hw, ledger,
		runtime.WithSettings(o.settings),
		runtime.WithClock(o.clock),
		runtime.WithDispatcher(o.dispatch),
		runtime.WithLogger(o.logger),
		runtime.WithLifecycleHooks(o.hooks),
		runtime.WithDeviceID(o.deviceID),
	)

	o.restore(context.Background())
	o.state = o.snapshot()

	loopCtx, cancel := context.WithCancel(context.Background())
	go o.loop(loopCtx, cancel)
	return o, nil
}

// restore seeds committed values from the last stored snapshot. A run
// state is never restored: the hardware was stopped with the old process.
func (o *Orchestrator) restore(ctx context.Context) {
	if o.store == nil || o.deviceID == "" {
		return
	}
	prev, err := o.store.Load(ctx, o.deviceID)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			o.logger.Warn("failed to load snapshot", "err", err)
		}
		return
	}
	o.buf.SetCommitted(prev.Params())
	o.buf.SelectField(prev.ActiveField)
	o.logger.Info("restored committed values", "params", prev.Params())
}

// DeviceID returns the device the orchestrator drives.
func (o *Orchestrator) DeviceID() string { return o.deviceID }

// State returns the latest published snapshot.
func (o *Orchestrator) State() domain.UiState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Events delivers one-shot events. Events are dropped when nobody reads and
// the buffer is full. The channel is closed after Close.
func (o *Orchestrator) Events() <-chan domain.Event {
	return o.events
}

// Subscribe returns a channel of published updates and a function that
// cancels the subscription. Slow subscribers miss updates rather than block
// the session.
func (o *Orchestrator) Subscribe() (<-chan Update, func()) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()

	ch := make(chan Update, subscriberBuffer)
	if o.subsClosed {
		close(ch)
		return ch, func() {}
	}
	o.subs[ch] = struct{}{}

	return ch, func() {
		o.subsMu.Lock()
		defer o.subsMu.Unlock()
		if _, ok := o.subs[ch]; ok {
			delete(o.subs, ch)
			close(ch)
		}
	}
}

// Handle processes one intent and returns the resulting snapshot and the
// events it produced. Domain outcomes are reported as events; an error is
// returned only when the orchestrator is closed, ctx ends first, or the
// intent is not recognised.
func (o *Orchestrator) Handle(ctx context.Context, intent domain.Intent) (domain.UiState, []domain.Event, error) {
	if !known(intent) {
		return o.State(), nil, fmt.Errorf("%w: %T", domain.ErrUnknownIntent, intent)
	}

	// Once queued, the intent runs to completion even if the caller goes
	// away, so a rollback never runs on a cancelled context.
	runCtx := context.WithoutCancel(ctx)
	t := task{
		run:   func(context.Context) error { return o.apply(runCtx, intent) },
		kind:  intent.Kind(),
		reply: make(chan handled, 1),
	}
	if err := o.post(ctx, t); err != nil {
		return o.State(), nil, err
	}

	select {
	case r := <-t.reply:
		return r.state, r.events, r.err
	case <-o.done:
		return o.State(), nil, domain.ErrSessionClosed
	case <-ctx.Done():
		return o.State(), nil, ctx.Err()
	}
}

func (o *Orchestrator) post(ctx context.Context, t task) error {
	select {
	case <-o.quit:
		return domain.ErrSessionClosed
	default:
	}
	select {
	case o.tasks <- t:
		return nil
	case <-o.quit:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch hands a timer callback to the owner goroutine and waits until it
// has been processed, so a timer never runs ahead of the session it belongs to.
func (o *Orchestrator) dispatch(fn func(ctx context.Context)) {
	t := task{
		run: func(ctx context.Context) error {
			fn(ctx)
			return nil
		},
		reply: make(chan handled, 1),
	}
	select {
	case o.tasks <- t:
	case <-o.quit:
		return
	}
	select {
	case <-t.reply:
	case <-o.done:
	}
}

// Close stops any active session with reason shutdown and ends the owner
// goroutine. It waits until shutdown completes or ctx ends.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.closeOnce.Do(func() { close(o.quit) })
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the orchestrator has shut down.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

func (o *Orchestrator) loop(ctx context.Context, cancel context.CancelFunc) {
	defer close(o.done)
	defer cancel()
	defer o.closeStreams()

	ready := o.hw.ReadyChanges()
	for {
		select {
		case <-o.quit:
			o.settle(func() { o.machine.Shutdown(ctx) })
			o.publish(ctx)
			o.logger.Debug("orchestrator closed")
			return

		case t := <-o.tasks:
			started := o.clock.Now()
			var err error
			o.settle(func() { err = t.run(ctx) })
			state, events := o.publish(ctx)
			if t.reply != nil {
				t.reply <- handled{state: state, events: events, err: err}
			}
			if t.kind != "" {
				o.intentObserved(ctx, t.kind, o.clock.Now().Sub(started))
			}

		case r, ok := <-ready:
			if !ok {
				ready = nil
				continue
			}
			o.settle(func() { o.machine.SetReady(ctx, r) })
			o.publish(ctx)
		}
	}
}

// settle runs fn and resets the entry buffer to its defaults when fn ended
// a session, whatever the stop reason.
func (o *Orchestrator) settle(fn func()) {
	wasActive := o.machine.Status().State.Active()
	fn()
	if wasActive && !o.machine.Status().State.Active() {
		o.buf.ClearAll()
	}
}

// apply maps one intent onto exactly one buffer or machine operation.
func (o *Orchestrator) apply(ctx context.Context, intent domain.Intent) error {
	switch in := intent.(type) {
	case domain.SelectInput:
		o.buf.SelectField(in.Field)
	case domain.AppendDigit:
		o.buf.AppendDigit(in.Digit)
	case domain.DeleteDigit:
		o.buf.DeleteDigit()
	case domain.ClearCurrent:
		o.buf.ClearCurrent()
	case domain.CommitAndCycle:
		field, changed := o.buf.CommitAndCycle()
		if changed {
			o.machine.ParamsChanged(ctx, field, o.buf.Params())
		}
	case domain.AdjustFrequency:
		o.adjust(ctx, domain.FieldFrequency, in.Delta)
	case domain.AdjustIntensity:
		o.adjust(ctx, domain.FieldIntensity, in.Delta)
	case domain.AdjustTime:
		o.adjust(ctx, domain.FieldDuration, in.Delta)
	case domain.ToggleStartStop:
		o.machine.Toggle(ctx, o.buf.Params(), in.Customer)
	case domain.ClearAll:
		if o.machine.Stop(ctx, domain.StopManual, nil) {
			o.machine.PreviewTone(ctx, o.buf.Params(), false)
			o.buf.ClearAll()
		}
	case domain.SoftReduceFromTap:
		o.machine.SoftReduce(ctx)
	case domain.SoftReductionStopClicked:
		o.machine.SoftStop(ctx)
	case domain.SoftReductionResumeClicked:
		o.machine.SoftResume(ctx)
	case domain.SoftReductionCollapsePanel:
		o.machine.CollapsePanel()
	case domain.TogglePause:
		o.machine.TogglePause(ctx)
	case domain.Stop:
		o.machine.Stop(ctx, domain.StopManual, nil)
	case domain.PreviewTone:
		o.machine.PreviewTone(ctx, o.buf.Params(), in.Enabled)
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownIntent, intent)
	}
	return nil
}

// known reports whether intent is one of the value types apply handles.
// Pointer variants are rejected.
func known(intent domain.Intent) bool {
	switch intent.(type) {
	case domain.SelectInput, domain.AppendDigit, domain.DeleteDigit,
		domain.ClearCurrent, domain.CommitAndCycle,
		domain.AdjustFrequency, domain.AdjustIntensity, domain.AdjustTime,
		domain.ToggleStartStop, domain.ClearAll,
		domain.SoftReduceFromTap, domain.SoftReductionStopClicked,
		domain.SoftReductionResumeClicked, domain.SoftReductionCollapsePanel,
		domain.TogglePause, domain.Stop, domain.PreviewTone:
		return true
	}
	return false
}

func (o *Orchestrator) adjust(ctx context.Context, f domain.FieldType, delta int) {
	if o.buf.Adjust(f, delta) {
		o.machine.ParamsChanged(ctx, f, o.buf.Params())
	}
}

func (o *Orchestrator) snapshot() domain.UiState {
	st := o.machine.Status()

	duration := o.buf.View(domain.FieldDuration)
	if st.State.Active() && duration.Raw == "" {
		duration.Display = entry.FormatClock(st.Countdown)
	}

	params := o.buf.Params()
	return domain.UiState{
		ActiveField:         o.buf.Active(),
		Frequency:           o.buf.View(domain.FieldFrequency),
		Intensity:           o.buf.View(domain.FieldIntensity),
		Duration:            duration,
		CountdownSeconds:    st.Countdown,
		RunState:            st.State,
		OperationID:         st.OperationID,
		IsRunning:           st.State == domain.RunRunning || st.State == domain.RunSoftReduced,
		IsPaused:            st.State == domain.RunPaused,
		IsHardwareReady:     st.Ready,
		SoftReductionActive: st.State == domain.RunSoftReduced,
		SoftPanelExpanded:   st.PanelExpanded,
		StartButtonEnabled:  st.Ready && constraints.ValidParams(params),
		TonePlaying:         st.Tone,
	}
}

// publish recomputes the snapshot and fans it out together with the events
// the machine produced since the last call.
func (o *Orchestrator) publish(ctx context.Context) (domain.UiState, []domain.Event) {
	state := o.snapshot()
	events := o.machine.DrainEvents()

	o.mu.Lock()
	changed := state != o.state
	o.state = state
	o.mu.Unlock()

	if changed && o.store != nil && o.deviceID != "" {
		if err := o.store.Save(ctx, o.deviceID, state); err != nil {
			o.logger.Warn("failed to save snapshot", "err", err)
		}
	}

	for _, e := range events {
		select {
		case o.events <- e:
		default:
			o.logger.Warn("event dropped", "kind", e.Kind, "message", e.Message)
		}
	}

	if changed || len(events) > 0 {
		o.broadcast(Update{State: state, Events: events})
	}
	return state, events
}

func (o *Orchestrator) broadcast(u Update) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for ch := range o.subs {
		select {
		case ch <- u:
		default:
			o.logger.Warn("subscriber lagging, update dropped")
		}
	}
}

func (o *Orchestrator) closeStreams() {
	o.subsMu.Lock()
	for ch := range o.subs {
		delete(o.subs, ch)
		close(ch)
	}
	o.subsClosed = true
	o.subsMu.Unlock()
	close(o.events)
}

func (o *Orchestrator) intentObserved(ctx context.Context, kind domain.IntentKind, took time.Duration) {
	o.logger.Debug("intent handled", "intent", kind, "duration", took)
	if o.hooks.OnIntent == nil {
		return
	}
	o.hooks.OnIntent(ctx, &domain.IntentEvent{
		HookBase: domain.HookBase{
			Timestamp: o.clock.Now(),
			Type:      domain.HookIntent,
			DeviceID:  o.deviceID,
		},
		Intent:   kind,
		Duration: took,
	})
}
