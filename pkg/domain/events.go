package domain

import (
	"context"
	"time"
)

// EventKind distinguishes user-visible one-shot events.
type EventKind string

const (
	EventToast EventKind = "toast"
	EventError EventKind = "error"
)

// Event is a one-shot notification for the user. Events accompany a snapshot
// but are never part of it.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message"`
	// Err carries the underlying failure of an EventError, if any.
	Err error `json:"-"`
}

// ShowToast builds an informational event.
func ShowToast(message string) Event {
	return Event{Kind: EventToast, Message: message}
}

// ShowError builds an error event. err may be nil.
func ShowError(message string, err error) Event {
	return Event{Kind: EventError, Message: message, Err: err}
}

// Error renders the event message together with the underlying error.
func (e Event) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// HookType defines the category of an observability hook event.
type HookType string

const (
	HookIntent       HookType = "intent"
	HookTransition   HookType = "transition"
	HookGatewayError HookType = "gateway_error"
	HookTick         HookType = "tick"
)

// HookBase contains common fields for all hook events.
type HookBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	DeviceID  string    `json:"device_id"`
}

// IntentEvent reports a processed intent.
type IntentEvent struct {
	HookBase
	Intent   IntentKind    `json:"intent"`
	Duration time.Duration `json:"duration"`
}

// TransitionEvent reports a run state change.
type TransitionEvent struct {
	HookBase
	From   RunState `json:"from"`
	To     RunState `json:"to"`
	Reason string   `json:"reason,omitempty"`
}

// GatewayEvent reports a failed hardware or ledger call.
type GatewayEvent struct {
	HookBase
	Call string `json:"call"`
	Err  error  `json:"-"`
}

// TickKind identifies the periodic activity a tick belongs to.
type TickKind string

const (
	TickRamp      TickKind = "ramp"
	TickCountdown TickKind = "countdown"
)

// TickEvent reports a delivered (or dropped) periodic tick.
type TickEvent struct {
	HookBase
	Kind  TickKind `json:"kind"`
	Stale bool     `json:"stale"`
}

// LifecycleHooks defines callbacks for session observability.
// Every field is optional.
type LifecycleHooks struct {
	OnIntent       func(context.Context, *IntentEvent)
	OnTransition   func(context.Context, *TransitionEvent)
	OnGatewayError func(context.Context, *GatewayEvent)
	OnTick         func(context.Context, *TickEvent)
}
