package tui

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/ramp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningState() domain.UiState {
	return domain.UiState{
		ActiveField:      domain.FieldIntensity,
		Frequency:        domain.FieldView{Display: "5", Committed: 5},
		Intensity:        domain.FieldView{Display: "2", Committed: 2, Raw: "2"},
		Duration:         domain.FieldView{Display: "00:57", Committed: 1},
		CountdownSeconds: 57,
		RunState:         domain.RunRunning,
		OperationID:      7,
		IsRunning:        true,
		IsHardwareReady:  true,
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, termenv.Ascii)
	out := buf.String()
	assert.Contains(t, out, "|  _ \\")
	assert.NotContains(t, out, "\x1b[")
}

func TestStatusLine(t *testing.T) {
	line := StatusLine(termenv.Ascii, runningState())
	assert.Contains(t, line, "RUNNING")
	assert.Contains(t, line, " Hz 5 ")
	assert.Contains(t, line, "Int 2")
	assert.Contains(t, line, "left 00:57")
	assert.NotContains(t, line, "NOT READY")

	idle := domain.UiState{RunState: domain.RunIdle}
	line = StatusLine(termenv.Ascii, idle)
	assert.Contains(t, line, "IDLE")
	assert.Contains(t, line, "NOT READY")
	assert.NotContains(t, line, "left")
	assert.NotContains(t, line, "tone")

	idle.TonePlaying = true
	assert.Contains(t, StatusLine(termenv.Ascii, idle), "  tone")
}

func TestStateMarkdown(t *testing.T) {
	md := StateMarkdown("dev-1", runningState())
	assert.Contains(t, md, "## dev-1")
	assert.Contains(t, md, "State: **running** (operation 7)")
	assert.Contains(t, md, "| **intensity** | 2 | 2 | 2 |")
	assert.Contains(t, md, "| duration | 00:57 | 1 |  |")
	assert.Contains(t, md, "- Remaining: 00:57")
	assert.NotContains(t, md, "Soft reduction")
}

func TestPlanMarkdown(t *testing.T) {
	plan := ramp.NewPlan(0, 0, 10, 4, ramp.StepsSpec{Steps: 2, TickMs: 20})
	md := PlanMarkdown(plan)
	assert.Contains(t, md, "2 points, one every 20 ms (40ms total)")
	assert.Contains(t, md, "| 1 | 0s |")
	assert.Contains(t, md, "| 2 | 20ms | 10 | 4 |")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer("notty")
	require.NoError(t, err)

	out, err := render(StateMarkdown("dev-1", runningState()))
	require.NoError(t, err)
	assert.Contains(t, out, "dev-1")
	assert.Contains(t, out, "00:57")
}
