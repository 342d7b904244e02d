package tokentree

import "errors"

var (
	// ErrTransactionInProgress is returned when Transact is called while
	// another transaction on the same store is still running.
	ErrTransactionInProgress = errors.New("tokentree: transaction already in progress")
	// ErrNilTransaction is returned when Transact receives a nil callback.
	ErrNilTransaction = errors.New("tokentree: transaction callback is nil")
	// ErrNodeNotFound indicates a lookup by id found nothing.
	ErrNodeNotFound = errors.New("tokentree: node not found")
	// ErrNotSiblings indicates two nodes expected to share a parent do not.
	ErrNotSiblings = errors.New("tokentree: nodes are not siblings")
	// ErrIndexTie indicates two siblings share an order key, so no key sorts
	// strictly between them.
	ErrIndexTie = errors.New("tokentree: siblings share an index")
	// ErrNotToken indicates a node id names something other than a token.
	ErrNotToken = errors.New("tokentree: node is not a token")
)
