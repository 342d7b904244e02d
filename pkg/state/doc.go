// Package state persists token trees.
//
// A tree is flattened into a Document of Records, one per node, ordered by id.
// Documents travel through a Store keyed by Ref and can be packed into a
// compact share string (deterministic CBOR, zstd, base64url).
//
// Data flow:
//
//	tokentree.Store -> Sync -> FromSnapshot -> Store.Save
//	Store.Load -> Restore -> tokentree.Store
//
// Stores own Meta. ETag is an optimistic concurrency token: a Save carrying an
// ETag that no longer matches the stored one fails with ErrETagMismatch.
package state
