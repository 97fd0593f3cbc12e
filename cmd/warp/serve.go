package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/warp/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scripts of a directory over HTTP",
	Long: `Exposes every *.lua file of the scripts directory as POST /pipelines/{name}.
Runs are kept in the configured run store and Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		dir, _ := cmd.Flags().GetString("scripts")

		rt, err := newRuntime(cmd, func(cfg *config.Config) {
			if addr != "" {
				cfg.Addr = addr
			}
			if dir != "" {
				cfg.ScriptsDir = dir
			}
		})
		if err != nil {
			return err
		}
		defer rt.Close()

		routes, err := rt.ScriptRoutes(rt.Config.ScriptsDir)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
		r.Mount("/", rt.Handler(routes).Routes())

		srv := &http.Server{
			Addr:              rt.Config.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			rt.Logger.Info("Starting warp server", "addr", srv.Addr, "scripts", rt.Config.ScriptsDir, "pipelines", len(routes))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			rt.Logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				rt.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			rt.Logger.Info("Warp server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("scripts", "", "Directory of Lua scripts (overrides config)")
}
