package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/judgewatch/internal/control"
	"github.com/vietddude/judgewatch/internal/core/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve [id...]",
	Short: "Run the tracker with health and metrics endpoints",
	Long: `serve keeps the client running in the foreground: the cache sweeper, the
submission monitor for any ids given, and the /health, /health/detailed and
/metrics endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, control.WithHealthServer())
	if err != nil {
		return err
	}

	for _, id := range args {
		app.Monitor.Track(id, domain.StatusUnknown)
	}

	refresh, unsubscribe := app.Refresh.Subscribe()
	defer unsubscribe()
	go func() {
		for prefix := range refresh {
			slog.Debug("Cached views invalidated", "prefix", prefix)
		}
	}()
	// the log sink already reports events here
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-app.Events.Events():
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("judgewatch started", "config", cfgPath, "tracking", len(args))

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	return app.Stop(shutdownCtx)
}
