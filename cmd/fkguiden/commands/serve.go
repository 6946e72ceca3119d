// ABOUTME: CLI command to run the HTTP API
// ABOUTME: Reloads the chunk snapshot on SIGHUP and shuts down gracefully on SIGINT/SIGTERM
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/server"
)

var (
	serveAddr string
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

POST /ask accepts {"question": "...", "history": [...]} and answers
with {"answer": "..."}. GET /health reports liveness. Send SIGHUP to
reload the chunk snapshot without restarting.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides FK_LISTEN_ADDR)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.memory != nil {
		go watchReload(ctx, a)
	}

	srv := server.New(a.pipeline, server.Config{
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateWindow,
	}, logger.With("component", "server"))

	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

// watchReload swaps in a fresh snapshot on every SIGHUP until ctx ends
func watchReload(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if _, err := a.reload(ctx); err != nil {
				a.logger.Error("snapshot reload failed, keeping current chunks", "error", err)
			}
		}
	}
}
