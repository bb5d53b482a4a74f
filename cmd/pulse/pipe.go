package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonicwave/pulse"
	"github.com/sonicwave/pulse/pkg/adapters/ndjson"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Drive a device with JSON intents on stdin",
	Long: `Reads one JSON intent per line from stdin and writes one JSON frame per line
to stdout: a "state" frame for each applied intent or an "error" frame for a
rejected one. With --follow, ramp and countdown updates are streamed as
"update" frames and the command keeps running after stdin ends until
interrupted.

  echo '{"type":"append_digit","digit":"4"}' | pulse pipe`,
	RunE: runPipe,
}

func init() {
	rootCmd.AddCommand(pipeCmd)
	pipeCmd.Flags().String("device", "pipe", "Device ID")
	pipeCmd.Flags().BoolP("follow", "f", false, "Stream every published snapshot")
}

func runPipe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	deviceID, _ := cmd.Flags().GetString("device")
	follow, _ := cmd.Flags().GetBool("follow")
	logger := newLogger(cfg)

	stack, err := pulse.Build(cfg, pulse.WithLogger(logger))
	if err != nil {
		return err
	}
	defer stack.Close(context.Background())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := stack.Ping(ctx); err != nil {
		return err
	}
	device, err := stack.Manager.Open(ctx, deviceID)
	if err != nil {
		return err
	}

	h := ndjson.NewHandler(cmd.InOrStdin(), cmd.OutOrStdout(), ndjson.WithLogger(logger))
	if !follow {
		return h.Serve(ctx, device)
	}

	updates, unsubscribe := device.Subscribe()
	defer unsubscribe()

	// A read on stdin cannot be interrupted, so Serve is not joined.
	served := make(chan error, 1)
	go func() { served <- h.Serve(ctx, device) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Follow(gctx, updates) })
	g.Go(func() error {
		select {
		case err := <-served:
			if err != nil {
				return err
			}
			<-gctx.Done()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}
