package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrInvalidDocument = errors.New("state: invalid document")

// DefaultWorkspace is used when Ref.Workspace is empty.
const DefaultWorkspace = "default"

// Ref identifies one persisted document.
type Ref struct {
	Workspace string
	Name      string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitzero"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one document for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

type Mutator func(*Document) error

// Identifier returns the canonical storage key "<workspace>/<name>".
func (r Ref) Identifier() (string, error) {
	workspace := r.Workspace
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	if r.Name == "" {
		return "", fmt.Errorf("state: ref name is required")
	}
	for _, part := range []string{workspace, r.Name} {
		if strings.ContainsAny(part, "/\\") {
			return "", fmt.Errorf("state: ref segment %q must not contain a path separator", part)
		}
	}
	return workspace + "/" + r.Name, nil
}

// Mutate loads one document, applies fn, validates the result, then saves it.
// A non-empty meta.ETag must match the stored ETag.
func Mutate(ctx context.Context, store Store[Document], ref Ref, meta Meta, fn Mutator) (Document, Meta, error) {
	if store == nil {
		return Document{}, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return Document{}, Meta{}, fmt.Errorf("state: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Document{}, Meta{}, err
	}

	doc, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Document{}, Meta{}, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	if !ok {
		doc = Document{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return Document{}, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	doc = doc.Clone()
	if err := fn(&doc); err != nil {
		return Document{}, loadedMeta, err
	}
	doc.Sort()
	if err := doc.Validate(); err != nil {
		return Document{}, loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	savedMeta, err := store.Save(ctx, ref, doc, saveMeta)
	if err != nil {
		return Document{}, loadedMeta, fmt.Errorf("state: save %q: %w", ref.Name, err)
	}
	return doc, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra != nil {
		out.Extra = maps.Clone(meta.Extra)
	}
	return out
}
