package main

import (
	"encoding/json"
	"fmt"

	"github.com/sonicwave/pulse/internal/config"
	"github.com/sonicwave/pulse/pkg/adapters/file"
	pulseredis "github.com/sonicwave/pulse/pkg/adapters/redis"
	"github.com/sonicwave/pulse/pkg/ports"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored device snapshots",
	Long:  `List, inspect, and remove stored device snapshots (Redis, or a directory with store.backend=file).`,
}

var snapshotLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List devices with a stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing snapshots: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No snapshots found.")
			return nil
		}
		fmt.Fprintln(out, "Stored snapshots:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect <device-id>",
	Short: "Print the stored snapshot of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading snapshot '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var snapshotRmCmd = &cobra.Command{
	Use:   "rm <device-id>...",
	Short: "Remove one or more snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "Removed snapshot '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d snapshot(s) not removed", failed)
		}
		return nil
	},
}

// closableStore is a snapshot store the command must release.
type closableStore interface {
	ports.SnapshotStore
	Close() error
}

// snapshotStore opens the configured snapshot backend. Anything but the
// file backend reads from Redis, where served devices keep their snapshots.
func snapshotStore(cmd *cobra.Command) (closableStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == config.BackendFile {
		return file.New(cfg.Store.Dir), nil
	}
	return pulseredis.NewFromClient(redisClient(cfg), pulseredis.WithPrefix(cfg.Redis.Prefix)), nil
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotLsCmd)
	snapshotCmd.AddCommand(snapshotInspectCmd)
	snapshotCmd.AddCommand(snapshotRmCmd)
}
