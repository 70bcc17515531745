package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/scribeindex/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Expose build_index, build_all, rebuild_index, validate_index,
index_stats, active_builds, cancel_build, and cleanup_indexes as MCP tools
over stdio. Nothing but protocol messages is written to stdout.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runServe(ctx context.Context, metricsAddr string) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if metricsAddr == "" {
		metricsAddr = a.cfg.Server.MetricsAddr
	}
	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr, a.metrics.Handler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var hist mcp.HistoryReader
	if a.history != nil {
		hist = a.history
	}
	server, err := mcp.NewServer(a.orch, hist)
	if err != nil {
		return err
	}

	err = server.Serve(ctx, a.cfg.Server.Transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func startMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics_listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", slog.String("error", err.Error()))
		}
	}()
	return srv
}
