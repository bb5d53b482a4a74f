package main

import (
	"fmt"

	"github.com/sonicwave/pulse/internal/presentation/graph"
	"github.com/sonicwave/pulse/internal/runtime"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the run state machine visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the session run states and the
transitions between them. --current or --device highlights a state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := cmd.Flags().GetString("current")
		device, _ := cmd.Flags().GetString("device")

		var overlay *graph.Overlay
		switch {
		case device != "":
			store, err := snapshotStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			state, err := store.Load(cmd.Context(), device)
			if err != nil {
				return fmt.Errorf("error loading snapshot '%s': %w", device, err)
			}
			overlay = &graph.Overlay{Current: state.RunState}
		case current != "":
			s := domain.RunState(current)
			if !knownRunState(s) {
				return fmt.Errorf("unknown run state %q", current)
			}
			overlay = &graph.Overlay{Current: s}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Edges(), overlay))
		return nil
	},
}

func knownRunState(s domain.RunState) bool {
	return s == domain.RunIdle || s.Active()
}

func init() {
	graphCmd.Flags().String("current", "", "Highlight this run state")
	graphCmd.Flags().String("device", "", "Highlight the run state stored for this device")
	rootCmd.AddCommand(graphCmd)
}
