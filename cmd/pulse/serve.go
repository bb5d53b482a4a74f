package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sonicwave/pulse"
	httpAdapter "github.com/sonicwave/pulse/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts pulse in server mode. Devices use the hardware backend from the
config. Intents are posted as JSON and snapshots are streamed over
Server-Sent Events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.Server.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}
		logger := newLogger(cfg)

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		stack, err := pulse.Build(cfg, pulse.WithLogger(logger), pulse.WithRegistry(reg))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := stack.Ping(ctx); err != nil {
			return err
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithVersion(strings.TrimSpace(pulse.Version)),
		}
		servers := []*http.Server{}
		if cfg.Server.MetricsAddr == "" {
			opts = append(opts, httpAdapter.WithMetrics(stack.Metrics.Handler()))
		} else {
			mux := http.NewServeMux()
			mux.Handle(cfg.Server.MetricsPath, stack.Metrics.Handler())
			servers = append(servers, &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux})
		}
		servers = append([]*http.Server{{
			Addr:    cfg.Server.Addr,
			Handler: httpAdapter.NewHandler(stack.Manager, opts...),
		}}, servers...)

		g, gctx := errgroup.WithContext(ctx)
		for _, srv := range servers {
			g.Go(func() error {
				logger.Info("listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server %s: %w", srv.Addr, err)
				}
				return nil
			})
		}

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()

			var errs []error
			// Devices first, so SSE streams end and requests drain.
			if err := stack.Close(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("closing devices: %w", err))
			}
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					errs = append(errs, fmt.Errorf("graceful shutdown of %s did not complete: %w", srv.Addr, err))
					_ = srv.Close()
				}
			}
			return errors.Join(errs...)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("pulse server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("metrics-addr", "", "Separate address for /metrics (default: served on --addr)")
}
