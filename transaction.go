package tokentree

import "github.com/goliatone/go-tokentree/internal/clone"

type opKind int

const (
	opSet opKind = iota
	opDelete
)

type operation[M any] struct {
	kind opKind
	node Node[M]
	id   string
}

// Transaction buffers mutations for one Store.Transact call. Nothing is
// visible in the store until the callback returns without error. A
// Transaction must not be retained past its callback; calls made after that
// are ignored.
type Transaction[M any] struct {
	ops    []operation[M]
	closed bool
	logger Logger
}

// Set buffers a full replace of node.ID. An empty Index asks the store to
// place the node after its current siblings when the transaction commits.
func (tx *Transaction[M]) Set(node Node[M]) {
	if tx.rejectClosed("set", node.ID) {
		return
	}
	tx.ops = append(tx.ops, operation[M]{kind: opSet, node: clone.Value(node), id: node.ID})
}

// Delete buffers removal of id. Descendants are kept as orphans. Deleting an
// unknown id is not an error.
func (tx *Transaction[M]) Delete(id string) {
	if tx.rejectClosed("delete", id) {
		return
	}
	tx.ops = append(tx.ops, operation[M]{kind: opDelete, id: id})
}

// Len returns the number of buffered operations.
func (tx *Transaction[M]) Len() int {
	return len(tx.ops)
}

func (tx *Transaction[M]) rejectClosed(op, id string) bool {
	if !tx.closed {
		return false
	}
	if tx.logger != nil {
		tx.logger.Warn("tokentree: operation on closed transaction ignored", "op", op, "node_id", id)
	}
	return true
}

func (tx *Transaction[M]) close() {
	tx.closed = true
}
