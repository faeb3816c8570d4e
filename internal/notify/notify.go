// Package notify delivers error-observation events to the log and, when
// configured, to Slack and Discord webhooks.
package notify

import (
	"context"
	"fmt"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/pubsub"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DefaultSinkTimeout = 5 * time.Second

type Sink interface {
	Name() string
	Notify(ctx context.Context, ev pubsub.ErrorEvent) error
}

// LogSink writes every event to the application log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Notify(_ context.Context, ev pubsub.ErrorEvent) error {
	logger.Warn("Notify: Write rejected",
		zap.String("kind", string(ev.Kind)),
		zap.String("path", ev.Path),
		zap.String("operation", ev.Operation),
		zap.String("actor", ev.ActorID),
		zap.String("error", ev.Err),
		zap.Time("at", ev.At))
	return nil
}

type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// Deliver hands ev to every sink. One failing sink does not stop the
// others; their errors are combined.
func (d *Dispatcher) Deliver(ctx context.Context, ev pubsub.ErrorEvent) error {
	var errs error
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := s.Notify(sctx, ev); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
		cancel()
	}
	return errs
}

// Run consumes events from the broker until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, events *pubsub.Broker[pubsub.ErrorEvent]) {
	ch, cancel := events.Subscribe()
	defer cancel()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := d.Deliver(ctx, ev); err != nil {
				logger.Warn("Notify: Delivery failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func title(ev pubsub.ErrorEvent) string {
	switch ev.Kind {
	case pubsub.KindPermissionDenied:
		return "Permission denied: " + ev.Operation + " " + ev.Path
	default:
		return "Operation failed: " + ev.Operation + " " + ev.Path
	}
}
