package tokentree

import (
	"fmt"
	"testing"
)

// benchChain builds a group of depth aliases, each pointing at the previous
// one, ending in a literal.
func benchChain(b *testing.B, depth int) (*Store[Meta], TokenMeta) {
	b.Helper()
	store := NewStore[Meta]()
	err := store.Transact(func(tx *Transaction[Meta]) error {
		tx.Set(Node[Meta]{ID: "chain", Meta: GroupMeta{Name: "chain"}})
		tx.Set(Node[Meta]{ID: "chain.t0", ParentID: "chain", Meta: TokenMeta{Name: "t0", Value: "#fff"}})
		for i := 1; i < depth; i++ {
			name := fmt.Sprintf("t%d", i)
			tx.Set(Node[Meta]{ID: "chain." + name, ParentID: "chain", Meta: TokenMeta{
				Name:    name,
				Extends: fmt.Sprintf("{chain.t%d}", i-1),
			}})
		}
		return nil
	})
	if err != nil {
		b.Fatalf("seed: %v", err)
	}
	return store, TokenMeta{Name: "head", Extends: fmt.Sprintf("{chain.t%d}", depth-1)}
}

func BenchmarkResolveWithTrace(b *testing.B) {
	store, head := benchChain(b, 10)
	snap := store.Snapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := ResolveWithTrace(head, snap); err != nil {
			b.Fatalf("resolve: %v", err)
		}
	}
}

func BenchmarkResolverMemoized(b *testing.B) {
	store, head := benchChain(b, 10)
	resolver := NewResolver(store, WithMemoization(true))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.Resolve(head); err != nil {
			b.Fatalf("resolve: %v", err)
		}
	}
}

func BenchmarkResolveAll(b *testing.B) {
	store, _ := benchChain(b, 50)
	snap := store.Snapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ResolveAll(snap)
	}
}

func BenchmarkTransactAppend(b *testing.B) {
	store := NewStore[Meta]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("n%d", i)
		if err := store.Transact(func(tx *Transaction[Meta]) error {
			tx.Set(Node[Meta]{ID: id, Meta: TokenMeta{Name: id, Value: i}})
			return nil
		}); err != nil {
			b.Fatalf("transact: %v", err)
		}
	}
}
