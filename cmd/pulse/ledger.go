package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/sonicwave/pulse/internal/config"
	pulseredis "github.com/sonicwave/pulse/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect recorded operations",
	Long:  `List and inspect operations recorded in the Redis ledger.`,
}

var ledgerLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List operations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client := redisClient(cfg)
		defer client.Close()
		ledger := pulseredis.NewLedger(client, pulseredis.WithLedgerPrefix(cfg.Redis.Prefix))

		ops, err := ledger.Operations(cmd.Context(), limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ops) == 0 {
			fmt.Fprintln(out, "No operations recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tFREQ\tINT\tMIN\tSTOPPED\tREASON\tEVENTS")
		for _, op := range ops {
			stopped, reason := "-", "-"
			if op.StoppedAt != nil {
				stopped = op.StoppedAt.Local().Format(time.DateTime)
				reason = string(op.StopReason)
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%s\t%d\n",
				op.ID, op.StartedAt.Local().Format(time.DateTime),
				op.Frequency, op.Intensity, op.Minutes, stopped, reason, len(op.Events))
		}
		return tw.Flush()
	},
}

var ledgerInspectCmd = &cobra.Command{
	Use:   "inspect <operation-id>",
	Short: "Print one operation with its events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid operation id %q", args[0])
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		client := redisClient(cfg)
		defer client.Close()
		ledger := pulseredis.NewLedger(client, pulseredis.WithLedgerPrefix(cfg.Redis.Prefix))

		op, err := ledger.Operation(cmd.Context(), id)
		if err != nil {
			return err
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(op, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func redisClient(cfg config.Config) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerLsCmd)
	ledgerCmd.AddCommand(ledgerInspectCmd)
	ledgerLsCmd.Flags().IntP("limit", "n", 20, "Maximum number of operations (0 for all)")
}
