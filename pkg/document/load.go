package document

import (
	"context"
	"fmt"

	"github.com/goliatone/go-tokentree"
	"github.com/goliatone/go-tokentree/internal/hydrate"
)

// Load sets every parsed node in one transaction. Nodes already in the store
// with the same ids are replaced; other nodes are left untouched.
func Load(ctx context.Context, store *tokentree.Store[tokentree.Meta], result Result) error {
	if store == nil {
		return fmt.Errorf("document: store is nil")
	}
	return store.TransactContext(ctx, func(tx *tokentree.Transaction[tokentree.Meta]) error {
		for _, node := range result.Nodes {
			tx.Set(node)
		}
		return nil
	})
}

// Replace deletes every node in the store and sets the parsed nodes, all in
// one transaction.
func Replace(ctx context.Context, store *tokentree.Store[tokentree.Meta], result Result) error {
	if store == nil {
		return fmt.Errorf("document: store is nil")
	}
	existing := store.Values()
	return store.TransactContext(ctx, func(tx *tokentree.Transaction[tokentree.Meta]) error {
		for _, node := range existing {
			tx.Delete(node.ID)
		}
		for _, node := range result.Nodes {
			tx.Set(node)
		}
		return nil
	})
}

// DecodeOption configures DecodeValue.
type DecodeOption[T any] hydrate.Option[T]

// WithStrictFields rejects value object keys that T has no field for.
func WithStrictFields[T any]() DecodeOption[T] {
	return DecodeOption[T](hydrate.WithStrict[T]())
}

// WithJSONNumbers keeps numbers as json.Number where T holds them as any.
func WithJSONNumbers[T any]() DecodeOption[T] {
	return DecodeOption[T](hydrate.WithNumbers[T]())
}

// WithValidation runs check on the decoded value.
func WithValidation[T any](check func(token string, value *T) error) DecodeOption[T] {
	return DecodeOption[T](hydrate.WithValidator[T](func(ctx hydrate.Context, value *T) error {
		return check(ctx.Token, value)
	}))
}

// WithNormalizer rewrites the raw value before it is decoded.
func WithNormalizer[T any](normalize func(token string, raw any) (any, error)) DecodeOption[T] {
	return DecodeOption[T](hydrate.WithNormalizer[T](func(ctx hydrate.Context, raw any) (any, error) {
		return normalize(ctx.Token, raw)
	}))
}

// DecodeValue converts token's value into T. Aliases must be resolved first;
// an unresolved alias has no value and fails.
func DecodeValue[T any](token tokentree.TokenMeta, opts ...DecodeOption[T]) (T, error) {
	decoderOpts := make([]hydrate.Option[T], 0, len(opts))
	for _, opt := range opts {
		decoderOpts = append(decoderOpts, hydrate.Option[T](opt))
	}
	decoder := hydrate.NewDecoder[T](decoderOpts...)
	return decoder.Decode(hydrate.Context{Token: token.Name, Type: token.Type}, token.Value)
}
