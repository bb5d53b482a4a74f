package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sonicwave/pulse/internal/presentation/tui"
	"github.com/sonicwave/pulse/pkg/constraints"
	"github.com/sonicwave/pulse/pkg/ramp"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the ramp between two output levels",
	Long: `Computes the transition plan the session core would apply when moving the
output from one frequency and intensity to another. Targets are clipped to the
device ranges. Without --steps or --duration-ms the configured transition is used.`,
	Example: `  pulse plan --from 0,0 --to 40,30 --steps 5
  pulse plan --from 40,30 --to 40,20 --duration-ms 300 --tick-ms 100 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		rawFrom, _ := cmd.Flags().GetString("from")
		rawTo, _ := cmd.Flags().GetString("to")
		from, err := parsePair(rawFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parsePair(rawTo)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		spec := cfg.Transition()
		tick := spec.Tick()
		if cmd.Flags().Changed("tick-ms") {
			tick, _ = cmd.Flags().GetInt("tick-ms")
		}
		switch {
		case cmd.Flags().Changed("steps"):
			steps, _ := cmd.Flags().GetInt("steps")
			spec = ramp.StepsSpec{Steps: steps, TickMs: tick}
		case cmd.Flags().Changed("duration-ms"):
			d, _ := cmd.Flags().GetInt("duration-ms")
			spec = ramp.DurationSpec{DurationMs: d, TickMs: tick}
		case cmd.Flags().Changed("tick-ms"):
			spec = withTick(spec, tick)
		}
		if err := ramp.Validate(spec); err != nil {
			return err
		}

		plan := ramp.NewPlan(from[0], from[1],
			constraints.ClampFrequency(to[0]), constraints.ClampIntensity(to[1]), spec)

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		style, _ := cmd.Flags().GetString("style")
		render, err := tui.NewRenderer(style)
		if err != nil {
			return err
		}
		text, err := render(tui.PlanMarkdown(plan))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

// parsePair reads "frequency,intensity".
func parsePair(s string) ([2]int, error) {
	var out [2]int
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return out, fmt.Errorf("want frequency,intensity, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("want frequency,intensity, got %q", s)
		}
		out[i] = v
	}
	return out, nil
}

func withTick(spec ramp.TransitionSpec, tick int) ramp.TransitionSpec {
	switch s := spec.(type) {
	case ramp.StepsSpec:
		s.TickMs = tick
		return s
	case ramp.DurationSpec:
		s.TickMs = tick
		return s
	}
	return spec
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().String("from", "0,0", "Start frequency,intensity")
	planCmd.Flags().String("to", "", "Target frequency,intensity")
	planCmd.Flags().Int("steps", 0, "Fixed number of points")
	planCmd.Flags().Int("duration-ms", 0, "Total transition time")
	planCmd.Flags().Int("tick-ms", 0, "Interval between points")
	planCmd.Flags().Bool("json", false, "Print the plan as JSON")
	planCmd.Flags().String("style", "", "Glamour style (default: auto)")
	_ = planCmd.MarkFlagRequired("to")
}
