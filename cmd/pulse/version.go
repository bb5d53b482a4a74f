package main

import (
	"fmt"
	"strings"

	"github.com/sonicwave/pulse"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pulse",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pulse version %s\n", strings.TrimSpace(pulse.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
