package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/napolitain/factory-env/internal/config"
	"github.com/napolitain/factory-env/internal/logging"
	"github.com/napolitain/factory-env/internal/metrics"
	"github.com/napolitain/factory-env/internal/resolver"
	"github.com/napolitain/factory-env/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile, address string

	cmd := &cobra.Command{
		Use:           "factory-server",
		Short:         "Serve factory environments over websocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides config)")
	return cmd
}

// newMux wires the websocket endpoint, health check and optional metrics
func newMux(cfg *config.Config, logger *slog.Logger) (*http.ServeMux, error) {
	valuation, err := resolver.ParseValuation(cfg.Episode.Valuation)
	if err != nil {
		return nil, err
	}

	opts := ws.Options{
		Horizon:     cfg.Episode.Horizon,
		MaxSessions: cfg.Server.MaxSessions,
		Valuation:   valuation,
		Logger:      logger,
	}

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		collector := metrics.NewEpisodeMetricsCollector()
		if err := collector.Register(reg); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts.Metrics = collector
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv, err := ws.NewServer(opts)
	if err != nil {
		return nil, err
	}
	mux.Handle("/ws", srv.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	mux, err := newMux(cfg, logger)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(lis)
	}()

	logger.Info("server listening",
		"address", lis.Addr().String(),
		"horizon", cfg.Episode.Horizon,
		"max_sessions", cfg.Server.MaxSessions,
		"metrics", cfg.Metrics.Enabled,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
