// Package analytics defines the tracking collaborator the link dispatcher
// reports to.
//
// Tracking is fire-and-forget: callers log a failed Track and carry on.
// Collection backends live outside this module; LogTracker writes events to a
// slog.Logger and Multi fans out to several trackers.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// Event names emitted by the dispatcher and the manager.
const (
	EventRouted   = "deep_link_routed"
	EventQueued   = "deep_link_queued"
	EventReplayed = "deep_link_replayed"
	EventHandled  = "deep_link_handled"
)

// Props are the properties attached to an event.
type Props map[string]any

// Tracker receives analytics events.
type Tracker interface {
	Track(ctx context.Context, event string, props Props) error
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(ctx context.Context, event string, props Props) error

// Track implements Tracker.
func (f TrackerFunc) Track(ctx context.Context, event string, props Props) error {
	return f(ctx, event, props)
}

// Nop discards every event.
type Nop struct{}

// Track implements Tracker.
func (Nop) Track(context.Context, string, Props) error { return nil }

// LogTracker writes events as structured log records.
type LogTracker struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogTracker creates a tracker that logs at info level.
func NewLogTracker(logger *slog.Logger) *LogTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTracker{Logger: logger, Level: slog.LevelInfo}
}

// Track implements Tracker.
func (t *LogTracker) Track(ctx context.Context, event string, props Props) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("event", event))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, props[k]))
	}
	t.Logger.LogAttrs(ctx, t.Level, "analytics", attrs...)
	return nil
}

// Multi fans an event out to every tracker. All trackers are called even
// if some fail; the failures are joined.
func Multi(trackers ...Tracker) Tracker {
	return multi(trackers)
}

type multi []Tracker

func (m multi) Track(ctx context.Context, event string, props Props) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Track(ctx, event, props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorded is one event captured by a Recorder.
type Recorded struct {
	Event string
	Props Props
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Track implements Tracker.
func (r *Recorder) Track(_ context.Context, event string, props Props) error {
	cp := make(Props, len(props))
	for k, v := range props {
		cp[k] = v
	}
	r.mu.Lock()
	r.events = append(r.events, Recorded{Event: event, Props: cp})
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(event string) []Recorded {
	var out []Recorded
	for _, e := range r.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
