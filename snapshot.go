package tokentree

import (
	"slices"
	"strings"

	"github.com/goliatone/go-tokentree/internal/clone"
)

// Snapshot is an immutable view of a tree at one commit. Every accessor
// returns copies, so callers may mutate what they receive.
type Snapshot[M any] struct {
	version  uint64
	nodes    map[string]Node[M]
	children map[string][]Node[M]
}

// NewSnapshot builds a snapshot from raw records. Later records replace
// earlier ones with the same id.
func NewSnapshot[M any](nodes ...Node[M]) *Snapshot[M] {
	byID := make(map[string]Node[M], len(nodes))
	for _, node := range nodes {
		byID[node.ID] = clone.Value(node)
	}
	return buildSnapshot(0, byID)
}

// buildSnapshot takes ownership of nodes.
func buildSnapshot[M any](version uint64, nodes map[string]Node[M]) *Snapshot[M] {
	children := make(map[string][]Node[M])
	for _, node := range nodes {
		children[node.ParentID] = append(children[node.ParentID], node)
	}
	for _, siblings := range children {
		SortSiblings(siblings)
	}
	return &Snapshot[M]{
		version:  version,
		nodes:    nodes,
		children: children,
	}
}

// Version returns the store version the snapshot was taken at.
func (s *Snapshot[M]) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Len returns the number of live nodes.
func (s *Snapshot[M]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// Nodes returns an id to node map of every node.
func (s *Snapshot[M]) Nodes() map[string]Node[M] {
	out := make(map[string]Node[M], s.Len())
	if s == nil {
		return out
	}
	for id, node := range s.nodes {
		out[id] = clone.Value(node)
	}
	return out
}

// Values returns every node, ordered by id.
func (s *Snapshot[M]) Values() []Node[M] {
	if s == nil {
		return []Node[M]{}
	}
	out := make([]Node[M], 0, len(s.nodes))
	for _, node := range s.nodes {
		out = append(out, clone.Value(node))
	}
	slices.SortFunc(out, func(a, b Node[M]) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// GetNode returns the node with id.
func (s *Snapshot[M]) GetNode(id string) (Node[M], bool) {
	if s == nil {
		return Node[M]{}, false
	}
	node, ok := s.nodes[id]
	if !ok {
		return Node[M]{}, false
	}
	return clone.Value(node), true
}

// GetChildren returns the children of parentID in sibling order. RootID
// selects the root-level nodes.
func (s *Snapshot[M]) GetChildren(parentID string) []Node[M] {
	siblings := s.siblings(parentID)
	out := make([]Node[M], len(siblings))
	for i, node := range siblings {
		out[i] = clone.Value(node)
	}
	return out
}

// GetParent returns the parent of id. Roots, unknown ids and nodes whose
// parent is not present report false.
func (s *Snapshot[M]) GetParent(id string) (Node[M], bool) {
	if s == nil {
		return Node[M]{}, false
	}
	node, ok := s.nodes[id]
	if !ok || node.IsRoot() {
		return Node[M]{}, false
	}
	return s.GetNode(node.ParentID)
}

// GetPrevSibling returns the sibling ordered immediately before id.
func (s *Snapshot[M]) GetPrevSibling(id string) (Node[M], bool) {
	return s.neighbor(id, -1)
}

// GetNextSibling returns the sibling ordered immediately after id.
func (s *Snapshot[M]) GetNextSibling(id string) (Node[M], bool) {
	return s.neighbor(id, 1)
}

func (s *Snapshot[M]) neighbor(id string, offset int) (Node[M], bool) {
	if s == nil {
		return Node[M]{}, false
	}
	node, ok := s.nodes[id]
	if !ok {
		return Node[M]{}, false
	}
	siblings := s.children[node.ParentID]
	pos := slices.IndexFunc(siblings, func(n Node[M]) bool { return n.ID == id })
	next := pos + offset
	if pos < 0 || next < 0 || next >= len(siblings) {
		return Node[M]{}, false
	}
	return clone.Value(siblings[next]), true
}

// siblings returns the internal sorted slice; callers must not modify it.
func (s *Snapshot[M]) siblings(parentID string) []Node[M] {
	if s == nil {
		return nil
	}
	return s.children[parentID]
}

func (s *Snapshot[M]) viewSnapshot() *Snapshot[M] {
	return s
}
