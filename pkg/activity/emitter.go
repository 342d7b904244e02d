package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// DefaultChannel is applied to events that carry no channel.
const DefaultChannel = "tokentree"

// Config controls emission. An empty Verbs list emits every verb.
type Config struct {
	Enabled bool
	Channel string
	Verbs   []string
}

// Emitter delivers the events of a commit to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   []string
	now     func() time.Time
}

// NewEmitter constructs an emitter from hooks and configuration. Nil hooks
// are dropped.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	kept := slices.DeleteFunc(slices.Clone(hooks), func(hook ActivityHook) bool { return hook == nil })
	return &Emitter{
		hooks:   kept,
		enabled: cfg.Enabled && len(kept) > 0,
		channel: channel,
		verbs:   slices.Clone(cfg.Verbs),
		now:     time.Now,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit delivers a single event.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	return e.EmitBatch(ctx, []Event{event})
}

// EmitBatch delivers events in order. Events without a timestamp share one
// taken when the batch starts, so every change of a commit reports the same
// time.
func (e *Emitter) EmitBatch(ctx context.Context, events []Event) error {
	if !e.Enabled() || len(events) == 0 {
		return nil
	}
	at := e.now()
	var errs []error
	for _, event := range events {
		if len(e.verbs) > 0 && !slices.Contains(e.verbs, event.Verb) {
			continue
		}
		if strings.TrimSpace(event.Channel) == "" {
			event.Channel = e.channel
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = at
		}
		if err := e.hooks.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
