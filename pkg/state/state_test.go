package state_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-tokentree"
	"github.com/goliatone/go-tokentree/pkg/state"
)

func seedTree(t *testing.T) *state.Tree {
	t.Helper()
	tree := tokentree.NewStore[tokentree.Meta]()
	err := tree.Transact(func(tx *tokentree.Transaction[tokentree.Meta]) error {
		tx.Set(tokentree.Node[tokentree.Meta]{ID: "colors", Index: "a0", Meta: tokentree.GroupMeta{Name: "colors", Type: "color"}})
		tx.Set(tokentree.Node[tokentree.Meta]{ID: "red", ParentID: "colors", Index: "a0", Meta: tokentree.TokenMeta{
			Name:  "red",
			Type:  "color",
			Value: map[string]any{"colorSpace": "srgb", "components": []any{1, 0, 0.5}},
		}})
		tx.Set(tokentree.Node[tokentree.Meta]{ID: "danger", ParentID: "colors", Index: "a1", Meta: tokentree.TokenMeta{
			Name:       "danger",
			Extends:    "{colors.red}",
			Deprecated: tokentree.DeprecatedBecause("use alert"),
			Extensions: map[string]any{"com.example": map[string]any{"weight": 3}},
		}})
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tree
}

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		ref     state.Ref
		want    string
		wantErr bool
	}{
		{ref: state.Ref{Name: "theme"}, want: "default/theme"},
		{ref: state.Ref{Workspace: "acme", Name: "theme"}, want: "acme/theme"},
		{ref: state.Ref{Workspace: "acme"}, wantErr: true},
		{ref: state.Ref{Name: "a/b"}, wantErr: true},
	}
	for _, tc := range cases {
		got, err := tc.ref.Identifier()
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %+v", tc.ref)
			}
			continue
		}
		if err != nil {
			t.Fatalf("identifier %+v: %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	tree := seedTree(t)
	doc, err := state.FromSnapshot(tree.Snapshot())
	if err != nil {
		t.Fatalf("from snapshot: %v", err)
	}
	if doc.Version != 1 || len(doc.Records) != 3 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Records[0].ID != "colors" || doc.Records[2].ID != "red" {
		t.Fatalf("records not ordered by id: %+v", doc.Records)
	}
	danger, ok := doc.Get("danger")
	if !ok || danger.Deprecated != "use alert" || danger.Kind != tokentree.KindToken {
		t.Fatalf("unexpected danger record: %+v", danger)
	}

	nodes, err := doc.Nodes()
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	want := tree.Values()
	if !reflect.DeepEqual(nodes, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, nodes)
	}
}

func TestShareStringRoundTrip(t *testing.T) {
	tree := seedTree(t)
	doc, err := state.FromSnapshot(tree.Snapshot())
	if err != nil {
		t.Fatalf("from snapshot: %v", err)
	}
	share, err := state.ShareString(doc)
	if err != nil {
		t.Fatalf("share string: %v", err)
	}
	if strings.ContainsAny(share, "+/=") {
		t.Fatalf("share string is not url safe: %q", share)
	}
	decoded, err := state.ParseShareString(share)
	if err != nil {
		t.Fatalf("parse share string: %v", err)
	}
	if !reflect.DeepEqual(decoded, doc) {
		t.Fatalf("decoded mismatch:\nwant %+v\ngot  %+v", doc, decoded)
	}

	again, err := state.ShareString(decoded)
	if err != nil {
		t.Fatalf("share string: %v", err)
	}
	if again != share {
		t.Fatalf("expected deterministic encoding")
	}
}

func TestParseShareStringRejectsGarbage(t *testing.T) {
	if _, err := state.ParseShareString("!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
	if _, err := state.ParseShareString("AAAA"); err == nil {
		t.Fatalf("expected decompress error")
	}
}

func TestDecodeValidates(t *testing.T) {
	doc := state.Document{Records: []state.Record{{ID: "a", Kind: tokentree.KindToken, Name: "a"}}}
	data, err := state.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := state.Decode(data); !errors.Is(err, state.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestFingerprintIgnoresVersionAndOrder(t *testing.T) {
	a := state.Document{Version: 1, Records: []state.Record{
		{ID: "a", Kind: tokentree.KindGroup, Name: "a", Index: "a0"},
		{ID: "b", ParentID: "a", Kind: tokentree.KindToken, Name: "b", Index: "a0", Value: "x"},
	}}
	b := state.Document{Version: 9, Records: []state.Record{a.Records[1], a.Records[0]}}
	fa, err := state.Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	fb, err := state.Fingerprint(b)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fa != fb || len(fa) != 64 {
		t.Fatalf("expected equal 32-byte fingerprints, got %q and %q", fa, fb)
	}

	b.Records[0].Value = "y"
	fc, _ := state.Fingerprint(b)
	if fc == fa {
		t.Fatalf("expected fingerprint to change with content")
	}
}

func TestDocumentValidate(t *testing.T) {
	cases := map[string]state.Document{
		"empty id":  {Records: []state.Record{{Kind: tokentree.KindGroup}}},
		"duplicate": {Records: []state.Record{{ID: "a", Kind: tokentree.KindGroup}, {ID: "a", Kind: tokentree.KindGroup}}},
		"self":      {Records: []state.Record{{ID: "a", ParentID: "a", Kind: tokentree.KindGroup}}},
		"kind":      {Records: []state.Record{{ID: "a", Kind: "widget"}}},
		"group val": {Records: []state.Record{{ID: "a", Kind: tokentree.KindGroup, Value: 1}}},
		"dep":       {Records: []state.Record{{ID: "a", Kind: tokentree.KindGroup, Deprecated: 3}}},
	}
	for name, doc := range cases {
		if err := doc.Validate(); !errors.Is(err, state.ErrInvalidDocument) {
			t.Fatalf("%s: expected ErrInvalidDocument, got %v", name, err)
		}
	}
}

func TestDocumentPutRemove(t *testing.T) {
	var doc state.Document
	doc.Put(state.Record{ID: "a", Kind: tokentree.KindGroup, Name: "a"})
	doc.Put(state.Record{ID: "a", Kind: tokentree.KindGroup, Name: "renamed"})
	if len(doc.Records) != 1 || doc.Records[0].Name != "renamed" {
		t.Fatalf("expected replace in place, got %+v", doc.Records)
	}
	if !doc.Remove("a") || doc.Remove("a") {
		t.Fatalf("unexpected remove result")
	}
}

func TestMemoryStoreETag(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := state.NewDocumentStore(state.WithClock[state.Document](func() time.Time { return fixed }))
	ref := state.Ref{Name: "theme"}

	if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing document, ok=%v err=%v", ok, err)
	}

	first, err := store.Save(ctx, ref, state.Document{Version: 1}, state.Meta{SnapshotID: "snap-1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ETag == "" || first.SnapshotID != "snap-1" || !first.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected meta: %+v", first)
	}

	second, err := store.Save(ctx, ref, state.Document{Version: 2}, state.Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("save with current etag: %v", err)
	}
	if second.ETag == first.ETag || second.SnapshotID == "" {
		t.Fatalf("expected fresh etag and snapshot id, got %+v", second)
	}

	if _, err := store.Save(ctx, ref, state.Document{Version: 3}, state.Meta{ETag: first.ETag}); !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}

	doc, meta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc.Version != 2 || meta.ETag != second.ETag {
		t.Fatalf("unexpected load: %+v %+v", doc, meta)
	}

	if err := store.Delete(ref); err != nil || store.Len() != 0 {
		t.Fatalf("delete: len=%d err=%v", store.Len(), err)
	}
}

func TestMemoryStoreCopiesDocuments(t *testing.T) {
	ctx := context.Background()
	store := state.NewDocumentStore()
	ref := state.Ref{Name: "theme"}
	doc := state.Document{Records: []state.Record{{ID: "a", Kind: tokentree.KindToken, Value: map[string]any{"k": "v"}}}}
	if _, err := store.Save(ctx, ref, doc, state.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc.Records[0].Value.(map[string]any)["k"] = "mutated"

	loaded, _, _, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Records[0].Value.(map[string]any)["k"] != "v" {
		t.Fatalf("store shared caller memory")
	}
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := state.NewDocumentStore()
	if _, err := store.Save(ctx, state.Ref{Name: "theme"}, state.Document{}, state.Meta{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
