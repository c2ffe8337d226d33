package main

import (
	"context"
	"os/signal"
	"syscall"

	"instapoem/internal/history"
	"instapoem/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

// serveCmd runs the HTTP API until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the studio over a JSON HTTP API",
	Long: `Starts the HTTP API. Prometheus metrics are exposed on /metrics.

With the file backend, edits made by other instapoem processes are picked
up automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	// --timeout bounds single operations, not the server lifetime
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn("Failed to close history backend", zap.Error(err))
		}
	}()

	if fb, ok := a.backend.(*history.FileBackend); ok {
		w, err := history.NewWatcher(fb.Path(), a.store)
		if err != nil {
			return err
		}
		defer w.Stop()
		if err := w.Start(ctx); err != nil {
			logger.Warn("History watcher disabled", zap.Error(err))
		}
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := server.New(a.studio, server.Options{
		Addr:            addr,
		ShutdownTimeout: cfg.GetShutdownTimeout(),
		Registry:        a.registry,
	})
	logger.Info("Serving", zap.String("addr", addr), zap.Int("records", a.store.Len()))
	return srv.Run(ctx)
}
