package activity

import (
	"context"
	"fmt"
	"strings"
)

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks, in order.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify delivers the normalized event to every hook, even after one fails.
// Incomplete events are dropped. Failures come back as a *NotifyError.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := NormalizeEvent(event)
	var failures []HookFailure
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			failures = append(failures, HookFailure{Index: i, Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &NotifyError{Verb: normalized.Verb, ObjectID: normalized.ObjectID, Failures: failures}
}

// HookFailure is one hook's error, with the hook's position in Hooks.
type HookFailure struct {
	Index int
	Err   error
}

// NotifyError collects the hooks that failed to take an event.
type NotifyError struct {
	Verb     string
	ObjectID string
	Failures []HookFailure
}

func (e *NotifyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		parts[i] = fmt.Sprintf("hook %d: %v", failure.Index, failure.Err)
	}
	return fmt.Sprintf("activity: %s %s: %s", e.Verb, e.ObjectID, strings.Join(parts, "; "))
}

func (e *NotifyError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure.Err
	}
	return errs
}
