package activity

import (
	"maps"
	"strings"
	"time"
)

const (
	VerbNodeCreated = "node.created"
	VerbNodeUpdated = "node.updated"
	VerbNodeDeleted = "node.deleted"

	// ObjectTypeNode is the object type carried by every node event.
	ObjectTypeNode = "tokentree.node"
)

// NodeEventInput describes one committed node change.
type NodeEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	NodeID     string
	ParentID   string
	Index      string
	Name       string
	Kind       string
	Version    uint64
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildNodeCreatedEvent constructs the event for a node seen for the first time.
func BuildNodeCreatedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeCreated, input)
}

// BuildNodeUpdatedEvent constructs the event for a node replaced by a later set.
func BuildNodeUpdatedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeUpdated, input)
}

// BuildNodeDeletedEvent constructs the event for a removed node.
func BuildNodeDeletedEvent(input NodeEventInput) Event {
	return buildNodeEvent(VerbNodeDeleted, input)
}

func buildNodeEvent(verb string, input NodeEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if parent := strings.TrimSpace(input.ParentID); parent != "" {
		set("parent_id", parent)
	}
	if input.Index != "" {
		set("index", input.Index)
	}
	if input.Name != "" {
		set("name", input.Name)
	}
	if input.Kind != "" {
		set("kind", input.Kind)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeNode,
		ObjectID:   strings.TrimSpace(input.NodeID),
		Channel:    strings.TrimSpace(input.Channel),
		Version:    input.Version,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
