package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MichalDSW/investment-platform/internal/api"
	"github.com/MichalDSW/investment-platform/internal/service/warmup"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  `Starts the quote API. Ctrl+C (SIGINT/SIGTERM) shuts it down gracefully.`,
		RunE: serveRunE(opts),
	}
}

// serveRunE is shared by `serve` and the bare root command
func serveRunE(opts *options) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, opts)
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg := opts.cfg

	log.Info().
		Str("version", Version).
		Str("source", cfg.Source.Driver).
		Msg("🚀 Starting Market Data API Server...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	if cfg.Warmup.Enabled && a.cache != nil {
		job, err := warmup.NewJob(a.backing, a.cache, warmup.Config{
			Schedule:       cfg.Warmup.Cron,
			Symbols:        cfg.Warmup.Symbols,
			Timeout:        cfg.Server.UpstreamTimeout,
			MaxConcurrency: cfg.Server.MaxConcurrency,
		})
		if err != nil {
			return fmt.Errorf("warm-up: %w", err)
		}
		job.Start(ctx)
		defer job.Stop()
	}

	router := api.NewRouter(cfg, a.service, a.checkers, Version)

	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("🎯 API Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
	case <-ctx.Done():
		log.Info().Msg("🛑 Shutdown signal received, stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("👋 Market Data API Server stopped")
	return nil
}
