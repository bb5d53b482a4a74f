package observability

import (
	"context"
	"log/slog"

	"github.com/sonicwave/pulse/pkg/domain"
)

// Combine merges several hook sets into one. Each callback fans out to every
// non-nil callback of the same kind, in argument order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var intents []func(context.Context, *domain.IntentEvent)
	var transitions []func(context.Context, *domain.TransitionEvent)
	var gateway []func(context.Context, *domain.GatewayEvent)
	var ticks []func(context.Context, *domain.TickEvent)
	for _, s := range sets {
		if s.OnIntent != nil {
			intents = append(intents, s.OnIntent)
		}
		if s.OnTransition != nil {
			transitions = append(transitions, s.OnTransition)
		}
		if s.OnGatewayError != nil {
			gateway = append(gateway, s.OnGatewayError)
		}
		if s.OnTick != nil {
			ticks = append(ticks, s.OnTick)
		}
	}

	if len(intents) > 0 {
		out.OnIntent = func(ctx context.Context, e *domain.IntentEvent) {
			for _, fn := range intents {
				fn(ctx, e)
			}
		}
	}
	if len(transitions) > 0 {
		out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
			for _, fn := range transitions {
				fn(ctx, e)
			}
		}
	}
	if len(gateway) > 0 {
		out.OnGatewayError = func(ctx context.Context, e *domain.GatewayEvent) {
			for _, fn := range gateway {
				fn(ctx, e)
			}
		}
	}
	if len(ticks) > 0 {
		out.OnTick = func(ctx context.Context, e *domain.TickEvent) {
			for _, fn := range ticks {
				fn(ctx, e)
			}
		}
	}
	return out
}

// LogHooks reports transitions and gateway failures on logger. Intents and
// ticks are logged at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnIntent: func(ctx context.Context, e *domain.IntentEvent) {
			logger.DebugContext(ctx, "intent", "device_id", e.DeviceID, "intent", e.Intent, "duration", e.Duration)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"device_id", e.DeviceID,
				"from", e.From,
				"to", e.To,
				"reason", e.Reason,
			)
		},
		OnGatewayError: func(ctx context.Context, e *domain.GatewayEvent) {
			logger.WarnContext(ctx, "gateway_error", "device_id", e.DeviceID, "call", e.Call, "err", e.Err)
		},
		OnTick: func(ctx context.Context, e *domain.TickEvent) {
			if e.Stale {
				logger.DebugContext(ctx, "stale_tick", "device_id", e.DeviceID, "kind", e.Kind)
			}
		},
	}
}
