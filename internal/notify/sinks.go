package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Send implements the Sink interface.
func (s LogSink) Send(ctx context.Context, ev Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		slog.String("kind", string(ev.Kind)),
		slog.String("severity", ev.Severity),
		slog.String("message", ev.Message),
	)
	return nil
}

// Collector records every event in memory. Intended for tests and for
// surfaces that render notifications after the fact.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Send implements the Sink interface.
func (c *Collector) Send(_ context.Context, ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a snapshot of everything collected so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByKind returns collected events of the given kind.
func (c *Collector) ByKind(kind Kind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Reset clears the collected events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// Fanout delivers each event to every sink, joining any errors.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Send(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
