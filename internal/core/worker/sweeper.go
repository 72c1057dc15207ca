package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweepable is a store whose dead entries can be dropped in bulk.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically removes dead cache entries to bound memory growth.
type Sweeper struct {
	store    Sweepable
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper creates a new Sweeper worker.
func NewSweeper(store Sweepable, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		log:      log,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	removed := s.store.Sweep()
	if removed == 0 {
		return
	}
	metrics.CacheSwept.Add(float64(removed))
	s.log.Debug("Swept dead cache entries", "removed", removed)
}
