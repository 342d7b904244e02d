package activity

import (
	"maps"
	"strings"
	"time"
)

// Event describes one committed change to a tree node. Actor, user and
// tenant ids are plain strings; Version is the commit that produced it.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Version    uint64
	Metadata   map[string]any
	OccurredAt time.Time
}

// Complete reports whether the event names a verb and an object.
func (e Event) Complete() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// NormalizeEvent trims identifiers, copies metadata and stamps a missing
// OccurredAt with the current time.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.UserID, &out.TenantID,
		&out.ObjectType, &out.ObjectID, &out.Channel,
	} {
		*field = strings.TrimSpace(*field)
	}
	if len(event.Metadata) == 0 {
		out.Metadata = nil
	} else {
		out.Metadata = maps.Clone(event.Metadata)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}
