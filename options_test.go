package tokentree

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goliatone/go-tokentree/orderkey"
)

func TestWithLoggerRecordsTransactions(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	store := NewStore[testMeta](WithLogger(logger))

	_ = store.Transact(func(tx *Transaction[testMeta]) error {
		tx.Set(Node[testMeta]{ID: "n", Index: "a0"})
		return nil
	})
	_ = store.Transact(func(tx *Transaction[testMeta]) error {
		tx.Delete("n")
		return errors.New("abort")
	})

	out := buf.String()
	if !strings.Contains(out, "transaction committed") || !strings.Contains(out, "version=1") {
		t.Fatalf("expected commit log, got %s", out)
	}
	if !strings.Contains(out, "transaction discarded") || !strings.Contains(out, "error=abort") {
		t.Fatalf("expected discard log, got %s", out)
	}
}

func TestWithLoggerNilFallsBackToNoop(t *testing.T) {
	store := NewStore[testMeta](WithLogger(nil), nil)
	if err := store.Transact(func(tx *Transaction[testMeta]) error {
		tx.Set(Node[testMeta]{ID: "n"})
		return nil
	}); err != nil {
		t.Fatalf("transact: %v", err)
	}
}

func TestWithKeyGenerator(t *testing.T) {
	calls := 0
	gen := orderkey.GeneratorFunc(func(lo, hi string) (string, error) {
		calls++
		return lo + "m", nil
	})
	store := NewStore[testMeta](WithKeyGenerator(gen))
	_ = store.Transact(func(tx *Transaction[testMeta]) error {
		tx.Set(Node[testMeta]{ID: "a"})
		tx.Set(Node[testMeta]{ID: "b"})
		return nil
	})

	a, _ := store.GetNode("a")
	b, _ := store.GetNode("b")
	if a.Index != "m" || b.Index != "mm" || calls != 2 {
		t.Fatalf("unexpected keys %q %q calls=%d", a.Index, b.Index, calls)
	}
}

func TestKeyGeneratorFailureExtendsLastKey(t *testing.T) {
	gen := orderkey.GeneratorFunc(func(lo, hi string) (string, error) {
		return "", orderkey.ErrInvalidKey
	})
	store := NewStore[testMeta](WithKeyGenerator(gen))
	_ = store.Transact(func(tx *Transaction[testMeta]) error {
		tx.Set(Node[testMeta]{ID: "a", Index: "a0"})
		tx.Set(Node[testMeta]{ID: "b"})
		return nil
	})

	b, _ := store.GetNode("b")
	if b.Index <= "a0" {
		t.Fatalf("expected fallback key after a0, got %q", b.Index)
	}
}
