package graph_test

import (
	"strings"
	"testing"

	"github.com/sonicwave/pulse/internal/presentation/graph"
	"github.com/sonicwave/pulse/internal/runtime"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		edges    []runtime.Edge
		contains []string
		excludes []string
	}{
		{
			name:  "Idle Is A Circle",
			edges: []runtime.Edge{{From: domain.RunIdle, To: domain.RunRunning, Reason: "start"}},
			contains: []string{
				"idle((\"idle\"))",
				"running[\"running\"]",
				"idle -- \"start\" --> running",
			},
		},
		{
			name: "Forced Stops Are Dotted",
			edges: []runtime.Edge{
				{From: domain.RunRunning, To: domain.RunIdle, Reason: "timeout"},
				{From: domain.RunRunning, To: domain.RunIdle, Reason: "manual"},
			},
			contains: []string{
				"running -. \"timeout\" .-> idle",
				"running -- \"manual\" --> idle",
			},
		},
		{
			name:  "States Declared Once",
			edges: runtime.Edges(),
			contains: []string{
				"soft_reduced[\"soft_reduced\"]",
				"paused -- \"resume\" --> running",
				"soft_reduced -- \"soft_reduction_stop\" --> idle",
			},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.edges, nil)
			assert.True(t, strings.HasPrefix(out, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, out, bad)
			}
		})
	}

	out := graph.GenerateMermaid(runtime.Edges(), nil)
	assert.Equal(t, 1, strings.Count(out, "soft_reduced[\"soft_reduced\"]"))
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(runtime.Edges(), &graph.Overlay{
		Visited: []domain.RunState{domain.RunIdle, domain.RunRunning, domain.RunIdle, domain.RunPaused},
		Current: domain.RunPaused,
	})

	assert.Contains(t, out, "classDef current")
	assert.Equal(t, 1, strings.Count(out, "class idle visited;"))
	assert.Contains(t, out, "class running visited;")
	assert.Contains(t, out, "class paused current;")
	assert.NotContains(t, out, "class paused visited;")
}
