package tokentree

import "strings"

// View is the read access alias resolution needs. *Store[Meta] and
// *Snapshot[Meta] implement it.
type View interface {
	GetChildren(parentID string) []Node[Meta]
}

// Resolve follows token's Extends chain through view and returns the terminal
// token: the first token on the chain that carries a Value and no alias. The
// returned record is that token's own (name, description, deprecation and
// extensions included), not the alias that pointed at it.
//
// Failures are *ResolveError values wrapping ErrMissingValue,
// ErrInvalidReference, ErrCircularReference or ErrUnresolvedReference.
func Resolve(token TokenMeta, view View) (TokenMeta, error) {
	return resolveChain(token, view, nil)
}

// ResolveWithTrace resolves like Resolve and also reports every reference
// followed and the node it landed on. The trace is returned on failure too,
// up to the failing step.
func ResolveWithTrace(token TokenMeta, view View) (TokenMeta, Trace, error) {
	trace := Trace{Token: token.Name, Steps: []TraceStep{}}
	resolved, err := resolveChain(token, view, &trace)
	if err == nil {
		trace.Resolved = resolved.Name
	}
	return resolved, trace, err
}

// ParseReference strips braces from ref and splits it into path segments,
// dropping empty ones. "{colors.primary}" yields ["colors", "primary"].
func ParseReference(ref string) []string {
	stripped := strings.NewReplacer("{", "", "}", "").Replace(ref)
	parts := strings.Split(stripped, ".")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// FormatReference renders path segments as an alias reference.
func FormatReference(segments ...string) string {
	return "{" + strings.Join(segments, ".") + "}"
}

func resolveChain(token TokenMeta, view View, trace *Trace) (TokenMeta, error) {
	children := childLookup(view)
	var chain []string
	seen := make(map[string]struct{})
	current := token

	for {
		if current.Extends == "" {
			if !current.HasValue() {
				return TokenMeta{}, newResolveError(ErrMissingValue, current.Name, "", chain)
			}
			return current.clone(), nil
		}

		ref := current.Extends
		if _, ok := seen[ref]; ok {
			return TokenMeta{}, newResolveError(ErrCircularReference, current.Name, ref, append(chain, ref))
		}
		segments := ParseReference(ref)
		if len(segments) == 0 {
			return TokenMeta{}, newResolveError(ErrInvalidReference, current.Name, ref, chain)
		}

		node, found := findPath(children, segments)
		if !found {
			return TokenMeta{}, newResolveError(ErrUnresolvedReference, current.Name, ref, chain)
		}
		next, ok := AsToken(node.Meta)
		if !ok {
			return TokenMeta{}, newResolveError(ErrUnresolvedReference, current.Name, ref, chain)
		}

		seen[ref] = struct{}{}
		chain = append(chain, ref)
		if trace != nil {
			trace.Steps = append(trace.Steps, TraceStep{Ref: ref, NodeID: node.ID, Name: next.Name})
		}
		current = next
	}
}

// findPath walks from the roots, taking at each level the first child in
// sibling order whose name matches the segment.
func findPath(children func(string) []Node[Meta], segments []string) (Node[Meta], bool) {
	var current Node[Meta]
	parentID := RootID
	for _, segment := range segments {
		found := false
		for _, child := range children(parentID) {
			if child.Meta != nil && child.Meta.MetaName() == segment {
				current = child
				parentID = child.ID
				found = true
				break
			}
		}
		if !found {
			return Node[Meta]{}, false
		}
	}
	return current, true
}

func childLookup(view View) func(string) []Node[Meta] {
	if view == nil {
		return func(string) []Node[Meta] { return nil }
	}
	if snapshotter, ok := view.(interface{ viewSnapshot() *Snapshot[Meta] }); ok {
		return snapshotter.viewSnapshot().siblings
	}
	return view.GetChildren
}
