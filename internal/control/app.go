package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/judgewatch/internal/core/config"
	"github.com/vietddude/judgewatch/internal/core/worker"
	"github.com/vietddude/judgewatch/internal/infra/auth"
	"github.com/vietddude/judgewatch/internal/infra/cache"
	"github.com/vietddude/judgewatch/internal/infra/judge"
	"github.com/vietddude/judgewatch/internal/infra/rpc"
	"github.com/vietddude/judgewatch/internal/tracking/emitter"
	"github.com/vietddude/judgewatch/internal/tracking/health"
	"github.com/vietddude/judgewatch/internal/tracking/monitor"
)

// eventBuffer sizes the channel the CLI reads status events from.
const eventBuffer = 64

// App wires every component and owns their lifecycle.
type App struct {
	cfg *config.AppConfig
	log *slog.Logger

	Store    *cache.Store
	Tokens   *auth.StaticProvider
	Executor *rpc.Executor
	Client   *judge.Client
	Monitor  *monitor.Monitor
	Refresh  *emitter.RefreshSignal
	Events   *emitter.ChannelSink

	sweeper      *worker.Sweeper
	healthMon    *health.Monitor
	healthServer *health.Server
	serveHealth  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes an App.
type Option func(*App)

// WithLogger sets the logger handed to every component.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithHealthServer makes Start serve /health and /metrics on the configured port.
func WithHealthServer() Option {
	return func(a *App) { a.serveHealth = true }
}

// NewApp builds the component graph from cfg.
func NewApp(cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	var stale time.Duration // unset keeps the cache default
	if cfg.Cache.StalePeriod != nil {
		if stale = *cfg.Cache.StalePeriod; stale == 0 {
			stale = cache.NoStale
		}
	}
	a.Store = cache.New(cache.Config{
		DefaultTTL:  cfg.Cache.DefaultTTL,
		StalePeriod: stale,
	})

	a.Tokens = auth.NewStatic(cfg.Auth.Token, func(ctx context.Context) {
		a.log.Warn("Session expired, token cleared. Sign in again to continue.")
	})

	executor, err := rpc.NewExecutor(rpc.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Retry: rpc.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		},
	}, a.Tokens, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to init executor: %w", err)
	}
	a.Executor = executor

	a.Client = judge.NewClient(executor, a.Store, judge.TTLPolicy{
		Problems:    cfg.Cache.TTL.Problems,
		Problem:     cfg.Cache.TTL.Problem,
		Submissions: cfg.Cache.TTL.Submissions,
		Submission:  cfg.Cache.TTL.Submission,
		Profile:     cfg.Cache.TTL.Profile,
	}, a.log)

	a.Refresh = emitter.NewRefreshSignal()
	a.Store.OnPrefixInvalidated(a.Refresh.OnInvalidated)

	a.Events = emitter.NewChannelSink("cli", eventBuffer)
	a.Monitor = monitor.New(a.Client, emitter.Multi{emitter.NewLogSink(a.log), a.Events}, monitor.Config{
		PollInterval: cfg.Monitor.PollInterval,
		Timeout:      cfg.Monitor.Timeout,
		Concurrency:  cfg.Monitor.Concurrency,
	}, a.log)

	a.sweeper = worker.NewSweeper(a.Store, cfg.Cache.SweepInterval, a.log)

	a.healthMon = health.NewMonitor(health.Sources{
		API:           a.Executor,
		Cache:         a.Store,
		Tracker:       a.Monitor,
		Authenticated: a.Tokens.HasToken,
	})
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Health returns the current health report.
func (a *App) Health() health.Report {
	return a.healthMon.CheckHealth()
}

// Start launches the background workers.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sweeper.Start(ctx)
	}()

	if a.serveHealth {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.log.Info("Starting health server", "port", a.cfg.Server.Port)
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Health server failed", "error", err)
			}
		}()
	}

	a.log.Debug("App started", "base_url", a.cfg.API.BaseURL)
	return nil
}

// Stop halts polling and background work and forgets in-memory state.
func (a *App) Stop(ctx context.Context) error {
	a.log.Debug("Stopping app")

	a.Monitor.Stop()
	if a.cancel != nil {
		a.cancel()
	}

	var err error
	if a.serveHealth {
		err = a.healthServer.Stop(ctx)
	}
	a.wg.Wait()
	a.Store.Clear()
	return err
}
