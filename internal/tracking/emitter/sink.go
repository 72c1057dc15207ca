// Package emitter delivers submission status events to their consumers.
package emitter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/tracking/metrics"
)

// Sink receives monitor events. Only EventStatusChanged is a transition;
// EventTimedOut reports that tracking ended and carries the last status in From
// with an empty To, so consumers should switch on Kind. Notify must not block for
// long; the monitor calls it from its polling loop.
type Sink interface {
	Notify(ctx context.Context, event domain.StatusEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event domain.StatusEvent) error

func (f SinkFunc) Notify(ctx context.Context, event domain.StatusEvent) error {
	return f(ctx, event)
}

// LogSink writes events to a logger.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, event domain.StatusEvent) error {
	switch event.Kind {
	case domain.EventTimedOut:
		s.log.Warn("Stopped tracking submission without a final status",
			"id", event.SubmissionID,
			"last_status", event.From,
		)
	default:
		s.log.Info("Submission status changed",
			"id", event.SubmissionID,
			"from", event.From,
			"to", event.To,
			"final", event.ViewDetails,
		)
	}
	return nil
}

// ErrSinkFull is returned by ChannelSink when the event was dropped.
var ErrSinkFull = errors.New("emitter: sink full")

// ChannelSink forwards events to a buffered channel without blocking.
// Events that do not fit are dropped and counted.
type ChannelSink struct {
	name string
	ch   chan domain.StatusEvent
}

func NewChannelSink(name string, size int) *ChannelSink {
	if size < 1 {
		size = 1
	}
	return &ChannelSink{name: name, ch: make(chan domain.StatusEvent, size)}
}

// Events returns the receive side.
func (s *ChannelSink) Events() <-chan domain.StatusEvent {
	return s.ch
}

func (s *ChannelSink) Notify(ctx context.Context, event domain.StatusEvent) error {
	select {
	case s.ch <- event:
		return nil
	default:
		metrics.NotificationsDropped.WithLabelValues(s.name).Inc()
		return ErrSinkFull
	}
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, event domain.StatusEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
