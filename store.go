package tokentree

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-tokentree/orderkey"
	"github.com/goliatone/go-tokentree/pkg/activity"
)

// Store owns an id to node collection. All mutation goes through Transact;
// reads return copies and are safe from any goroutine. Only one transaction
// may run at a time.
type Store[M any] struct {
	mu       sync.RWMutex
	nodes    map[string]Node[M]
	version  uint64
	snapshot *Snapshot[M]

	active    atomic.Bool
	listeners listenerRegistry

	cfg     storeConfig
	emitter *activity.Emitter
}

// NewStore constructs an empty store.
func NewStore[M any](opts ...Option) *Store[M] {
	cfg := applyOptions(opts)
	return &Store[M]{
		nodes:   make(map[string]Node[M]),
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
	}
}

// Transact runs fn with a fresh Transaction and applies everything it
// buffered once fn returns. See TransactContext.
func (s *Store[M]) Transact(fn func(tx *Transaction[M]) error) error {
	return s.TransactContext(context.Background(), fn)
}

// TransactContext runs fn with a fresh Transaction. When fn returns nil the
// buffered operations are applied in order as one commit, the version is
// bumped and listeners are notified once. When fn returns an error or panics
// nothing is applied and nobody is notified. A transaction that buffered no
// operations is free: no commit, no notification. ctx is handed to activity
// hooks only.
func (s *Store[M]) TransactContext(ctx context.Context, fn func(tx *Transaction[M]) error) error {
	if fn == nil {
		return ErrNilTransaction
	}
	if !s.active.CompareAndSwap(false, true) {
		s.cfg.logger.Warn("tokentree: nested or concurrent transaction rejected")
		return ErrTransactionInProgress
	}
	defer s.active.Store(false)

	tx := &Transaction[M]{logger: s.cfg.logger}
	defer tx.close()

	if err := fn(tx); err != nil {
		s.cfg.logger.Warn("tokentree: transaction discarded", "operations", len(tx.ops), "error", err)
		return err
	}
	tx.close()
	if len(tx.ops) == 0 {
		return nil
	}

	commit, applied := s.apply(tx.ops)
	s.cfg.logger.Debug("tokentree: transaction committed",
		"version", commit.Version,
		"operations", len(tx.ops),
		"changes", len(commit.Changes),
	)
	s.notify(commit)
	s.emitActivity(ctx, commit, applied)
	return nil
}

// apply mutates the collection under the write lock and returns the commit
// plus the node record behind every change.
func (s *Store[M]) apply(ops []operation[M]) (Commit, []Node[M]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make([]Change, 0, len(ops))
	applied := make([]Node[M], 0, len(ops))
	for _, op := range ops {
		switch op.kind {
		case opSet:
			node := op.node
			if node.Index == "" {
				node.Index = s.appendKeyLocked(node.ParentID, node.ID)
			}
			change := OpCreate
			if _, exists := s.nodes[node.ID]; exists {
				change = OpUpdate
			}
			s.nodes[node.ID] = node
			changes = append(changes, Change{Op: change, NodeID: node.ID, ParentID: node.ParentID, Index: node.Index})
			applied = append(applied, node)
		case opDelete:
			prev, exists := s.nodes[op.id]
			if !exists {
				continue
			}
			delete(s.nodes, op.id)
			changes = append(changes, Change{Op: OpDelete, NodeID: prev.ID, ParentID: prev.ParentID, Index: prev.Index})
			applied = append(applied, prev)
		}
	}
	s.version++
	s.snapshot = nil
	return Commit{Version: s.version, Changes: changes}, applied
}

// appendKeyLocked returns a key after every current sibling of id under
// parentID.
func (s *Store[M]) appendKeyLocked(parentID, id string) string {
	last := ""
	for _, node := range s.nodes {
		if node.ParentID != parentID || node.ID == id {
			continue
		}
		if node.Index > last {
			last = node.Index
		}
	}
	key, err := s.cfg.keys.Between(last, "")
	if err != nil {
		s.cfg.logger.Debug("tokentree: order key generator rejected bound, extending", "after", last, "error", err)
		return orderkey.Extend(last)
	}
	return key
}

// Version counts committed transactions.
func (s *Store[M]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns an immutable view of the current commit. Snapshots are
// shared between callers until the next commit.
func (s *Store[M]) Snapshot() *Snapshot[M] {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		nodes := make(map[string]Node[M], len(s.nodes))
		for id, node := range s.nodes {
			nodes[id] = node
		}
		s.snapshot = buildSnapshot(s.version, nodes)
	}
	return s.snapshot
}

func (s *Store[M]) viewSnapshot() *Snapshot[M] {
	return s.Snapshot()
}

// Nodes returns a copy of the id to node collection.
func (s *Store[M]) Nodes() map[string]Node[M] {
	return s.Snapshot().Nodes()
}

// Values returns a copy of every live node, ordered by id.
func (s *Store[M]) Values() []Node[M] {
	return s.Snapshot().Values()
}

// Len returns the number of live nodes.
func (s *Store[M]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// GetNode returns a copy of the node with id.
func (s *Store[M]) GetNode(id string) (Node[M], bool) {
	return s.Snapshot().GetNode(id)
}

// GetChildren returns the children of parentID in sibling order; RootID
// lists the roots.
func (s *Store[M]) GetChildren(parentID string) []Node[M] {
	return s.Snapshot().GetChildren(parentID)
}

// GetParent returns the parent of id, if id exists, is not a root and its
// parent is present.
func (s *Store[M]) GetParent(id string) (Node[M], bool) {
	return s.Snapshot().GetParent(id)
}

// GetPrevSibling returns the sibling ordered immediately before id.
func (s *Store[M]) GetPrevSibling(id string) (Node[M], bool) {
	return s.Snapshot().GetPrevSibling(id)
}

// GetNextSibling returns the sibling ordered immediately after id.
func (s *Store[M]) GetNextSibling(id string) (Node[M], bool) {
	return s.Snapshot().GetNextSibling(id)
}

// KeyBetween returns an order key that places a node between the siblings
// prevID and nextID. Either id may be empty to mean the start or end of the
// sibling list; both empty yields a key for an empty list. Adjacent siblings
// with the same index (ordered by id) leave no room and fail with
// ErrIndexTie.
func (s *Store[M]) KeyBetween(prevID, nextID string) (string, error) {
	snap := s.Snapshot()
	var lo, hi string
	var prev, next Node[M]
	if prevID != "" {
		node, ok := snap.nodes[prevID]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNodeNotFound, prevID)
		}
		prev, lo = node, node.Index
	}
	if nextID != "" {
		node, ok := snap.nodes[nextID]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNodeNotFound, nextID)
		}
		next, hi = node, node.Index
	}
	if prevID != "" && nextID != "" && prev.ParentID != next.ParentID {
		return "", fmt.Errorf("%w: %q and %q", ErrNotSiblings, prevID, nextID)
	}
	if prevID != "" && nextID != "" && lo == hi {
		return "", fmt.Errorf("%w: %q and %q both use %q", ErrIndexTie, prevID, nextID, lo)
	}
	return s.cfg.keys.Between(lo, hi)
}
