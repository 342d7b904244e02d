package tokentree

import (
	"fmt"
	"strings"
	"sync"
)

// ResolvedToken is the outcome of resolving one token reached from the roots.
type ResolvedToken struct {
	NodeID string
	Path   []string
	Value  TokenMeta
	Err    error
}

// Name returns the dotted path of the token.
func (r ResolvedToken) Name() string {
	return strings.Join(r.Path, ".")
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger routes resolution diagnostics to logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger == nil {
			r.logger = noopLogger{}
			return
		}
		r.logger = logger
	}
}

// WithMemoization toggles per-commit memoization of alias results. It is off
// by default: every call resolves against the current commit.
func WithMemoization(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.memoize = enabled
	}
}

// Resolver resolves tokens against the latest commit of a store. With
// memoization enabled, successful alias results are remembered until the
// store commits again; failures are always recomputed.
type Resolver struct {
	store   *Store[Meta]
	logger  Logger
	memoize bool

	mu      sync.Mutex
	version uint64
	memo    map[string]TokenMeta
}

// NewResolver binds a resolver to store.
func NewResolver(store *Store[Meta], opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		logger:  noopLogger{},
		memoize: false,
		memo:    make(map[string]TokenMeta),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve resolves token against the store's current commit.
func (r *Resolver) Resolve(token TokenMeta) (TokenMeta, error) {
	return r.resolveIn(r.store.Snapshot(), token)
}

// ResolveNode resolves the token stored under id.
func (r *Resolver) ResolveNode(id string) (TokenMeta, error) {
	snap := r.store.Snapshot()
	node, ok := snap.nodes[id]
	if !ok {
		return TokenMeta{}, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	token, ok := AsToken(node.Meta)
	if !ok {
		return TokenMeta{}, fmt.Errorf("%w: %q", ErrNotToken, id)
	}
	return r.resolveIn(snap, token)
}

// ResolveAll resolves every token reachable from the roots, in tree order.
func (r *Resolver) ResolveAll() []ResolvedToken {
	snap := r.store.Snapshot()
	return walkTokens(snap, func(token TokenMeta) (TokenMeta, error) {
		return r.resolveIn(snap, token)
	})
}

func (r *Resolver) resolveIn(snap *Snapshot[Meta], token TokenMeta) (TokenMeta, error) {
	if !r.memoize || token.Extends == "" {
		return Resolve(token, snap)
	}

	ref := token.Extends
	r.mu.Lock()
	if r.version != snap.Version() {
		r.memo = make(map[string]TokenMeta)
		r.version = snap.Version()
	}
	cached, ok := r.memo[ref]
	r.mu.Unlock()
	if ok {
		return cached.clone(), nil
	}

	resolved, err := Resolve(token, snap)
	if err != nil {
		r.logger.Debug("tokentree: resolve failed", "token", token.Name, "ref", ref, "error", err)
		return TokenMeta{}, err
	}
	r.mu.Lock()
	if r.version == snap.Version() {
		r.memo[ref] = resolved.clone()
	}
	r.mu.Unlock()
	return resolved, nil
}

// ResolveAll resolves every token reachable from the roots of view, visiting
// groups depth first in sibling order. Tokens nested under tokens are not
// visited.
func ResolveAll(view View) []ResolvedToken {
	if snapshotter, ok := view.(interface{ viewSnapshot() *Snapshot[Meta] }); ok {
		view = snapshotter.viewSnapshot()
	}
	return walkTokens(view, func(token TokenMeta) (TokenMeta, error) {
		return Resolve(token, view)
	})
}

func walkTokens(view View, resolve func(TokenMeta) (TokenMeta, error)) []ResolvedToken {
	children := childLookup(view)
	var out []ResolvedToken
	var visit func(parentID string, path []string)
	visit = func(parentID string, path []string) {
		for _, child := range children(parentID) {
			if child.Meta == nil {
				continue
			}
			childPath := append(append([]string(nil), path...), child.Meta.MetaName())
			if token, ok := AsToken(child.Meta); ok {
				value, err := resolve(token)
				out = append(out, ResolvedToken{NodeID: child.ID, Path: childPath, Value: value, Err: err})
				continue
			}
			if _, ok := AsGroup(child.Meta); ok {
				visit(child.ID, childPath)
			}
		}
	}
	visit(RootID, nil)
	return out
}
