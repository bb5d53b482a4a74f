package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/entry"
	"github.com/sonicwave/pulse/pkg/ramp"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer. An empty style detects the
// terminal background; "notty" produces plain text.
func NewRenderer(style string) (Renderer, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// StateMarkdown describes a session snapshot as a markdown table.
func StateMarkdown(deviceID string, s domain.UiState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", deviceID)
	fmt.Fprintf(&b, "State: **%s**", s.RunState)
	if s.OperationID != 0 {
		fmt.Fprintf(&b, " (operation %d)", s.OperationID)
	}
	b.WriteString("\n\n")

	b.WriteString("| Field | Display | Committed | Typing |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range domain.Fields {
		v := s.Field(f)
		name := f.String()
		if f == s.ActiveField {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", name, v.Display, v.Committed, v.Raw)
	}

	b.WriteString("\n")
	if s.RunState != domain.RunIdle {
		fmt.Fprintf(&b, "- Remaining: %s\n", entry.FormatClock(s.CountdownSeconds))
	}
	fmt.Fprintf(&b, "- Hardware ready: %t\n", s.IsHardwareReady)
	fmt.Fprintf(&b, "- Start enabled: %t\n", s.StartButtonEnabled)
	if s.SoftPanelExpanded {
		fmt.Fprintf(&b, "- Soft reduction: %t\n", s.SoftReductionActive)
	}
	return b.String()
}

// PlanMarkdown lists the points of a ramp plan.
func PlanMarkdown(p ramp.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Ramp plan\n\n%d points, one every %d ms (%s total)\n\n",
		len(p.Points), p.TickMs, p.Duration())
	b.WriteString("| # | At | Frequency | Intensity |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, pt := range p.Points {
		at := p.Interval() * time.Duration(i)
		fmt.Fprintf(&b, "| %d | %s | %d | %d |\n", i+1, at, pt.Frequency, pt.Intensity)
	}
	return b.String()
}
