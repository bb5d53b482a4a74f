package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnIntent(ctx, &domain.IntentEvent{Intent: domain.KindAppendDigit, Duration: time.Millisecond})
	hooks.OnIntent(ctx, &domain.IntentEvent{Intent: domain.KindAppendDigit, Duration: time.Millisecond})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.RunIdle, To: domain.RunRunning, Reason: "start"})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.RunRunning, To: domain.RunPaused, Reason: "pause"})
	hooks.OnGatewayError(ctx, &domain.GatewayEvent{Call: "stop_output", Err: errors.New("usb")})
	hooks.OnTick(ctx, &domain.TickEvent{Kind: domain.TickRamp, Stale: true})

	count, err := testutil.GatherAndCount(reg, "pulse_intents_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP pulse_active_sessions Sessions currently outside the idle state
# TYPE pulse_active_sessions gauge
pulse_active_sessions 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "pulse_active_sessions"))

	expectedGateway := `
# HELP pulse_gateway_errors_total Failed hardware and ledger calls, by call
# TYPE pulse_gateway_errors_total counter
pulse_gateway_errors_total{call="stop_output"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expectedGateway), "pulse_gateway_errors_total"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `pulse_intents_total{intent="append_digit"} 2`)
	assert.Contains(t, rec.Body.String(), `pulse_ticks_total{kind="ramp",stale="true"} 1`)
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "a") },
	}
	b := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "b") },
		OnTick:       func(context.Context, *domain.TickEvent) { order = append(order, "tick") },
	}

	hooks := observability.Combine(a, domain.LifecycleHooks{}, b)
	require.NotNil(t, hooks.OnTransition)
	assert.Nil(t, hooks.OnIntent)
	assert.Nil(t, hooks.OnGatewayError)

	hooks.OnTransition(context.Background(), &domain.TransitionEvent{})
	hooks.OnTick(context.Background(), &domain.TickEvent{})
	assert.Equal(t, []string{"a", "b", "tick"}, order)
}

func TestLogHooks(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	hooks := observability.LogHooks(logger)
	hooks.OnTransition(context.Background(), &domain.TransitionEvent{
		HookBase: domain.HookBase{DeviceID: "dev-1"},
		From:     domain.RunRunning,
		To:       domain.RunIdle,
		Reason:   "timeout",
	})

	out := buf.String()
	assert.Contains(t, out, "msg=transition")
	assert.Contains(t, out, "device_id=dev-1")
	assert.Contains(t, out, "reason=timeout")
}
