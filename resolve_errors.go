package tokentree

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution error kinds. A *ResolveError unwraps to exactly one of these.
var (
	ErrMissingValue        = errors.New("tokentree: token has no value to resolve")
	ErrInvalidReference    = errors.New("tokentree: invalid reference format")
	ErrCircularReference   = errors.New("tokentree: circular reference detected")
	ErrUnresolvedReference = errors.New("tokentree: final token node not found")
)

// ResolveError reports why an alias could not be resolved. Token names the
// token being resolved when the failure happened, Ref the reference text as
// written, and Chain the references followed so far. For circular references
// Chain ends with the repeated reference.
type ResolveError struct {
	Kind  error
	Token string
	Ref   string
	Chain []string
}

func (e *ResolveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrMissingValue:
		return fmt.Sprintf("tokentree: token %q has no value to resolve", e.Token)
	case ErrInvalidReference:
		return fmt.Sprintf("tokentree: invalid reference format: %q", e.Ref)
	case ErrCircularReference:
		return "tokentree: circular reference detected: " + strings.Join(e.Chain, " -> ")
	case ErrUnresolvedReference:
		return fmt.Sprintf("tokentree: final token node not found while resolving %q", e.Ref)
	case nil:
		return "tokentree: resolve failed"
	default:
		return fmt.Sprintf("%v: %q", e.Kind, e.Ref)
	}
}

func (e *ResolveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func newResolveError(kind error, token, ref string, chain []string) *ResolveError {
	return &ResolveError{
		Kind:  kind,
		Token: token,
		Ref:   ref,
		Chain: append([]string(nil), chain...),
	}
}
