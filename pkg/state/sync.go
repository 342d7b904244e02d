package state

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/goliatone/go-tokentree"
)

// Tree is the tree store type persisted by this package.
type Tree = tokentree.Store[tokentree.Meta]

// FingerprintKey is the Meta.Extra entry holding the saved document's
// fingerprint.
const FingerprintKey = "fingerprint"

// Sync saves a tree's document after each commit. Commits that leave the
// tree unchanged (same fingerprint) are not saved. Failures are logged and
// kept for Err; they never reach the committing caller.
type Sync struct {
	tree   *Tree
	store  Store[Document]
	ref    Ref
	ctx    context.Context
	logger tokentree.Logger
	onErr  func(error)

	mu          sync.Mutex
	meta        Meta
	fingerprint string
	err         error
	saves       int
	unsubscribe func()
}

type SyncOption func(*Sync)

// WithSyncLogger sets the logger used for save outcomes.
func WithSyncLogger(logger tokentree.Logger) SyncOption {
	return func(s *Sync) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSyncContext sets the context passed to Store.Save from commit hooks.
func WithSyncContext(ctx context.Context) SyncOption {
	return func(s *Sync) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithInitialMeta seeds the ETag used by the first save, typically the Meta
// returned by Restore.
func WithInitialMeta(meta Meta) SyncOption {
	return func(s *Sync) {
		s.meta = cloneMeta(meta)
		if meta.Extra != nil {
			s.fingerprint = meta.Extra[FingerprintKey]
		}
	}
}

// WithSyncErrorHandler registers fn to receive save failures.
func WithSyncErrorHandler(fn func(error)) SyncOption {
	return func(s *Sync) {
		s.onErr = fn
	}
}

// NewSync subscribes to tree and starts saving into store at ref.
func NewSync(tree *Tree, store Store[Document], ref Ref, opts ...SyncOption) (*Sync, error) {
	if tree == nil {
		return nil, fmt.Errorf("state: tree is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, err
	}
	s := &Sync{
		tree:   tree,
		store:  store,
		ref:    ref,
		ctx:    context.Background(),
		logger: tokentree.NewSlogLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.unsubscribe = tree.Subscribe(func(commit tokentree.Commit) {
		if _, err := s.save(s.ctx, false); err != nil {
			s.logger.Error("state: sync failed", "ref", ref.Name, "version", commit.Version, "error", err)
		}
	})
	return s, nil
}

// Flush saves the current tree even when its fingerprint is unchanged.
func (s *Sync) Flush(ctx context.Context) (Meta, error) {
	return s.save(ctx, true)
}

// Close stops listening for commits. It is safe to call more than once.
func (s *Sync) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Meta returns the metadata of the last successful save.
func (s *Sync) Meta() Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMeta(s.meta)
}

// Err returns the last save failure, cleared by the next success.
func (s *Sync) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Saves returns the number of successful saves.
func (s *Sync) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Sync) save(ctx context.Context, force bool) (Meta, error) {
	doc, err := FromSnapshot(s.tree.Snapshot())
	if err != nil {
		return Meta{}, s.fail(err)
	}
	fingerprint, err := Fingerprint(doc)
	if err != nil {
		return Meta{}, s.fail(err)
	}

	s.mu.Lock()
	if !force && fingerprint == s.fingerprint {
		meta := cloneMeta(s.meta)
		s.mu.Unlock()
		s.logger.Debug("state: sync skipped", "ref", s.ref.Name, "version", doc.Version)
		return meta, nil
	}

	extra := maps.Clone(s.meta.Extra)
	if extra == nil {
		extra = map[string]string{}
	}
	extra[FingerprintKey] = fingerprint
	saved, err := s.store.Save(ctx, s.ref, doc, Meta{ETag: s.meta.ETag, Extra: extra})
	if err != nil {
		s.mu.Unlock()
		return Meta{}, s.fail(err)
	}
	s.meta = saved
	s.fingerprint = fingerprint
	s.err = nil
	s.saves++
	s.mu.Unlock()

	s.logger.Debug("state: sync saved", "ref", s.ref.Name, "version", doc.Version, "etag", saved.ETag)
	return cloneMeta(saved), nil
}

func (s *Sync) fail(err error) error {
	s.mu.Lock()
	s.err = err
	onErr := s.onErr
	s.mu.Unlock()
	if onErr != nil {
		onErr(err)
	}
	return err
}

// Restore replaces tree's contents with the document stored at ref in one
// transaction. ok is false, and tree is left alone, when nothing is stored.
func Restore(ctx context.Context, store Store[Document], ref Ref, tree *Tree) (Meta, bool, error) {
	if store == nil {
		return Meta{}, false, fmt.Errorf("state: store is required")
	}
	if tree == nil {
		return Meta{}, false, fmt.Errorf("state: tree is required")
	}
	doc, meta, ok, err := store.Load(ctx, ref)
	if err != nil {
		return Meta{}, false, fmt.Errorf("state: load %q: %w", ref.Name, err)
	}
	if !ok {
		return Meta{}, false, nil
	}
	if err := doc.Validate(); err != nil {
		return Meta{}, false, err
	}
	if err := Apply(ctx, tree, doc); err != nil {
		return Meta{}, false, err
	}
	return meta, true, nil
}

// Apply replaces tree's contents with doc in one transaction.
func Apply(ctx context.Context, tree *Tree, doc Document) error {
	nodes, err := doc.Nodes()
	if err != nil {
		return err
	}
	return tree.TransactContext(ctx, func(tx *tokentree.Transaction[tokentree.Meta]) error {
		for id := range tree.Nodes() {
			tx.Delete(id)
		}
		for _, node := range nodes {
			tx.Set(node)
		}
		return nil
	})
}
