package document

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-tokentree"
	"github.com/goliatone/go-tokentree/orderkey"
	"github.com/google/uuid"
)

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	ids  func(path []string) string
	keys orderkey.Generator
}

// WithIDFunc derives node ids from the path of names leading to each entry.
// The default joins the path with dots.
func WithIDFunc(fn func(path []string) string) ParseOption {
	return func(cfg *parseConfig) {
		if fn != nil {
			cfg.ids = fn
		}
	}
}

// WithRandomIDs assigns a random UUID to every node.
func WithRandomIDs() ParseOption {
	return WithIDFunc(func([]string) string {
		return uuid.NewString()
	})
}

// WithKeyGenerator replaces the order key generator used for sibling indices.
func WithKeyGenerator(keys orderkey.Generator) ParseOption {
	return func(cfg *parseConfig) {
		if keys != nil {
			cfg.keys = keys
		}
	}
}

// Parse decodes a token document. Siblings receive increasing order keys in
// document order. Syntax errors abort with a non-nil error; problems with
// individual entries are collected in Result.Errors and the entry is skipped.
func Parse(data []byte, format Format, opts ...ParseOption) (Result, error) {
	cfg := parseConfig{
		ids:  func(path []string) string { return strings.Join(path, ".") },
		keys: orderkey.Base36{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	root, err := decodeOrdered(data, format)
	if err != nil {
		return Result{}, err
	}
	p := &parser{cfg: cfg, seen: map[string][]string{}}
	p.walkChildren(root, tokentree.RootID, nil, "")
	return Result{Nodes: p.nodes, Errors: p.errs}, nil
}

type parser struct {
	cfg   parseConfig
	nodes []tokentree.Node[tokentree.Meta]
	errs  []error
	seen  map[string][]string
}

func (p *parser) fail(path []string, format string, args ...any) {
	p.errs = append(p.errs, &EntryError{
		Path:   append([]string(nil), path...),
		Reason: fmt.Sprintf(format, args...),
	})
}

// walkChildren emits every non-reserved member of obj as a child of parentID.
func (p *parser) walkChildren(obj *object, parentID string, path []string, inheritedType string) {
	last := ""
	for _, m := range obj.members {
		if strings.HasPrefix(m.key, "$") {
			continue
		}
		childPath := append(append([]string(nil), path...), m.key)
		if reason := invalidName(m.key); reason != "" {
			p.fail(childPath, "%s", reason)
			continue
		}
		child, ok := m.value.(*object)
		if !ok {
			p.fail(childPath, "expected an object, got %s", describe(m.value))
			continue
		}

		id := p.cfg.ids(childPath)
		if prev, dup := p.seen[id]; dup {
			p.fail(childPath, "node id %q already used by %s", id, strings.Join(prev, "."))
			continue
		}

		index, err := p.cfg.keys.Between(last, "")
		if err != nil {
			index = orderkey.Extend(last)
		}

		if _, isToken := child.get(keyValue); isToken {
			meta, ok := p.token(child, childPath, m.key, inheritedType)
			if !ok {
				continue
			}
			p.seen[id] = childPath
			last = index
			p.nodes = append(p.nodes, tokentree.Node[tokentree.Meta]{ID: id, ParentID: parentID, Index: index, Meta: meta})
			continue
		}

		meta, ok := p.group(child, childPath, m.key)
		if !ok {
			continue
		}
		p.seen[id] = childPath
		last = index
		p.nodes = append(p.nodes, tokentree.Node[tokentree.Meta]{ID: id, ParentID: parentID, Index: index, Meta: meta})

		childType := inheritedType
		if meta.Type != "" {
			childType = meta.Type
		}
		p.walkChildren(child, id, childPath, childType)
	}
}

func (p *parser) group(obj *object, path []string, name string) (tokentree.GroupMeta, bool) {
	props, ok := p.properties(obj, path)
	if !ok {
		return tokentree.GroupMeta{}, false
	}
	return tokentree.GroupMeta{
		Name:        name,
		Type:        props.typ,
		Description: props.description,
		Deprecated:  props.deprecated,
		Extensions:  props.extensions,
	}, true
}

func (p *parser) token(obj *object, path []string, name, inheritedType string) (tokentree.TokenMeta, bool) {
	props, ok := p.properties(obj, path)
	if !ok {
		return tokentree.TokenMeta{}, false
	}
	for _, m := range obj.members {
		if !strings.HasPrefix(m.key, "$") {
			p.fail(append(append([]string(nil), path...), m.key), "tokens cannot contain children")
			return tokentree.TokenMeta{}, false
		}
	}

	raw, _ := obj.get(keyValue)
	meta := tokentree.TokenMeta{
		Name:        name,
		Type:        props.typ,
		Description: props.description,
		Deprecated:  props.deprecated,
		Extensions:  props.extensions,
	}
	if meta.Type == "" {
		meta.Type = inheritedType
	}
	if ref, ok := raw.(string); ok && IsReference(ref) {
		meta.Extends = ref
	} else {
		meta.Value = plain(raw)
	}
	if meta.Value == nil && meta.Extends == "" {
		p.fail(path, "$value must not be null")
		return tokentree.TokenMeta{}, false
	}
	return meta, true
}

type properties struct {
	typ         string
	description string
	deprecated  tokentree.Deprecation
	extensions  map[string]any
}

func (p *parser) properties(obj *object, path []string) (properties, bool) {
	var props properties
	if raw, ok := obj.get(keyType); ok {
		typ, isString := raw.(string)
		if !isString {
			p.fail(path, "$type must be a string, got %s", describe(raw))
			return properties{}, false
		}
		props.typ = typ
	}
	if raw, ok := obj.get(keyDescription); ok {
		description, isString := raw.(string)
		if !isString {
			p.fail(path, "$description must be a string, got %s", describe(raw))
			return properties{}, false
		}
		props.description = description
	}
	if raw, ok := obj.get(keyDeprecated); ok {
		deprecated, err := tokentree.ParseDeprecation(raw)
		if err != nil {
			p.fail(path, "$deprecated must be a boolean or string, got %s", describe(raw))
			return properties{}, false
		}
		props.deprecated = deprecated
	}
	if raw, ok := obj.get(keyExtensions); ok {
		extensions, isObject := raw.(*object)
		if !isObject {
			p.fail(path, "$extensions must be an object, got %s", describe(raw))
			return properties{}, false
		}
		props.extensions, _ = plain(extensions).(map[string]any)
	}
	return props, true
}

// IsReference reports whether s is written as a single alias reference such
// as "{colors.primary}".
func IsReference(s string) bool {
	if len(s) < 3 || s[0] != '{' || s[len(s)-1] != '}' {
		return false
	}
	inner := s[1 : len(s)-1]
	return !strings.ContainsAny(inner, "{}") && len(tokentree.ParseReference(s)) > 0
}

func invalidName(name string) string {
	switch {
	case name == "":
		return "names must not be empty"
	case strings.ContainsAny(name, ".{}"):
		return fmt.Sprintf("name %q must not contain '.', '{' or '}'", name)
	default:
		return ""
	}
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case *object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", value)
	}
}
