package tokentree

import (
	"slices"
	"strings"
)

// RootID is the parent id shared by every root-level node. Node ids must be
// non-empty so they never collide with it.
const RootID = ""

// Node is one record held by a Store. ParentID equal to RootID marks a root;
// siblings are ordered by Index, with ID breaking ties.
type Node[M any] struct {
	ID       string `json:"nodeId"`
	ParentID string `json:"parentId,omitempty"`
	Index    string `json:"index"`
	Meta     M      `json:"meta"`
}

// IsRoot reports whether the node sits at root level.
func (n Node[M]) IsRoot() bool {
	return n.ParentID == RootID
}

// CompareNodes is the sibling comparator: byte-wise order on Index, then on ID.
func CompareNodes[M any](a, b Node[M]) int {
	if c := strings.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortSiblings sorts nodes in place using CompareNodes.
func SortSiblings[M any](nodes []Node[M]) {
	slices.SortFunc(nodes, CompareNodes[M])
}

// ChangeOp names the effect a buffered operation had on the store.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Change describes one applied operation. Deleting an id that was not present
// produces no Change.
type Change struct {
	Op       ChangeOp
	NodeID   string
	ParentID string
	Index    string
}

// Commit is handed to listeners after a transaction is applied.
type Commit struct {
	Version uint64
	Changes []Change
}

// Listener observes committed transactions.
type Listener func(Commit)
