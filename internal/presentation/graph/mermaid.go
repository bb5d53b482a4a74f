package graph

import (
	"fmt"
	"strings"

	"github.com/sonicwave/pulse/internal/runtime"
	"github.com/sonicwave/pulse/pkg/domain"
)

// Overlay contains live session data to visualize on the diagram.
type Overlay struct {
	Visited []domain.RunState
	Current domain.RunState
}

// GenerateMermaid produces a Mermaid flowchart of the run state machine.
// Idle is drawn as a circle; transitions the user cannot cause (timeout,
// hardware error, shutdown) use dotted arrows.
func GenerateMermaid(edges []runtime.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.RunState]bool)
	declare := func(s domain.RunState) {
		if seen[s] {
			return
		}
		seen[s] = true
		opener, closer := "[", "]"
		if s == domain.RunIdle {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, s, closer)
	}
	for _, e := range edges {
		declare(e.From)
		declare(e.To)
	}

	for _, e := range edges {
		reason := strings.ReplaceAll(e.Reason, "\"", "'")
		arrow := fmt.Sprintf("-- \"%s\" -->", reason)
		if forced(e.Reason) {
			arrow = fmt.Sprintf("-. \"%s\" .->", reason)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(e.From)), arrow, sanitizeMermaidID(string(e.To)))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the highlight readable on light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[domain.RunState]bool)
		for _, s := range overlay.Visited {
			if s == "" || visited[s] || s == overlay.Current {
				continue
			}
			visited[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(string(s)))
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

func forced(reason string) bool {
	switch domain.StopReason(reason) {
	case domain.StopTimeout, domain.StopHardwareError, domain.StopShutdown:
		return true
	}
	return false
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
