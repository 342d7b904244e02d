package tokentree

import (
	"context"

	"github.com/goliatone/go-tokentree/pkg/activity"
)

// WithActivityHooks emits one activity event per applied change after each
// commit. Hooks are cloned and nil entries dropped. Hook failures are logged
// and never undo a commit.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the emitter configuration. The default is
// enabled on the "tokentree" channel.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityConfig = config
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (s *Store[M]) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func (s *Store[M]) emitActivity(ctx context.Context, commit Commit, applied []Node[M]) {
	if !s.emitter.Enabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	events := make([]activity.Event, 0, len(commit.Changes))
	for i, change := range commit.Changes {
		input := activity.NodeEventInput{
			NodeID:   change.NodeID,
			ParentID: change.ParentID,
			Index:    change.Index,
			Version:  commit.Version,
		}
		if i < len(applied) {
			if named, ok := any(applied[i].Meta).(interface{ MetaName() string }); ok {
				input.Name = named.MetaName()
			}
			if kinded, ok := any(applied[i].Meta).(interface{ Kind() Kind }); ok {
				input.Kind = string(kinded.Kind())
			}
		}
		switch change.Op {
		case OpCreate:
			events = append(events, activity.BuildNodeCreatedEvent(input))
		case OpUpdate:
			events = append(events, activity.BuildNodeUpdatedEvent(input))
		case OpDelete:
			events = append(events, activity.BuildNodeDeletedEvent(input))
		}
	}
	if err := s.emitter.EmitBatch(ctx, events); err != nil {
		s.cfg.logger.Error("tokentree: activity hook failed",
			"version", commit.Version,
			"events", len(events),
			"error", err,
		)
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
