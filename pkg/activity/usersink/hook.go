// Package usersink forwards tree activity events to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-tokentree/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink. Store commits carry
// no identity of their own, so ActorID and TenantID fill in for events that
// leave them empty. Ids that are not UUIDs map to uuid.Nil.
type Hook struct {
	Sink     usertypes.ActivitySink
	ActorID  string
	TenantID string
}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event = activity.NormalizeEvent(event)

	actor := firstNonEmpty(event.ActorID, h.ActorID)
	data := maps.Clone(event.Metadata)
	if event.Version > 0 {
		if data == nil {
			data = map[string]any{}
		}
		data["version"] = event.Version
	}
	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    parseUUID(actor),
		UserID:     parseUUID(firstNonEmpty(event.UserID, actor)),
		TenantID:   parseUUID(firstNonEmpty(event.TenantID, h.TenantID)),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil
	}
	return id
}
