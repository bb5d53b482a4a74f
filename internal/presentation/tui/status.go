package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/entry"
)

var runColors = map[domain.RunState]string{
	domain.RunIdle:        "#9ca3af",
	domain.RunRunning:     "#34d399",
	domain.RunPaused:      "#fbbf24",
	domain.RunSoftReduced: "#f472b6",
}

// StatusLine renders a one line summary of s for the console. The active
// field is wrapped in brackets.
func StatusLine(p termenv.Profile, s domain.UiState) string {
	var b strings.Builder

	run := p.String(fmt.Sprintf("%-12s", strings.ToUpper(string(s.RunState)))).
		Foreground(p.Color(runColors[s.RunState])).Bold()
	b.WriteString(run.String())

	for _, f := range domain.Fields {
		label := fmt.Sprintf("%s %s", fieldLabel(f), s.Field(f).Display)
		if f == s.ActiveField {
			label = p.String("[" + label + "]").Reverse().String()
		} else {
			label = " " + label + " "
		}
		b.WriteString(" ")
		b.WriteString(label)
	}

	if s.RunState != domain.RunIdle {
		fmt.Fprintf(&b, "  left %s", entry.FormatClock(s.CountdownSeconds))
	}
	if s.TonePlaying {
		b.WriteString("  tone")
	}
	if !s.IsHardwareReady {
		b.WriteString("  ")
		b.WriteString(p.String("NOT READY").Foreground(p.Color("#f87171")).String())
	}
	return b.String()
}

func fieldLabel(f domain.FieldType) string {
	switch f {
	case domain.FieldFrequency:
		return "Hz"
	case domain.FieldIntensity:
		return "Int"
	case domain.FieldDuration:
		return "Time"
	}
	return f.String()
}
