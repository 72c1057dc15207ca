package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/judgewatch/internal/control"
	"github.com/vietddude/judgewatch/internal/core/config"
	"github.com/vietddude/judgewatch/internal/infra/rpc"
)

var (
	cfgPath string
	isDebug bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "judgewatch",
	Short: "Judge API client with offline cache and submission tracking",
	Long: `judgewatch talks to a judge-style HTTP API. Reads are cached and keep working
from stale data while the judge is unreachable; submissions are polled until the
judge returns a final verdict.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("Error: "+rpc.UserMessage(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON instead of tables")
}

// loadConfig reads .env and the config file, then sets up logging.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		return nil, err
	}
	if cfg.Auth.Token == "" {
		cfg.Auth.Token = os.Getenv("JUDGE_TOKEN")
	}
	if url := os.Getenv("JUDGE_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}

	setupLogging(cfg.Logging)
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) {
	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Level == "error":
		slogLevel = slog.LevelError
	}

	if cfg.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

// newApp builds and starts the application for a single command.
func newApp(ctx context.Context, opts ...control.Option) (*control.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts = append([]control.Option{control.WithLogger(slog.Default())}, opts...)
	app, err := control.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// withApp runs fn against a started app and stops it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *control.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}()

	return fn(ctx, app)
}
