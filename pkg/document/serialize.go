package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-tokentree"
	"gopkg.in/yaml.v3"
)

// Serialize writes the tree visible through view as a token document. Nodes
// are emitted in sibling order starting from the roots, so parsing the output
// yields the same names, values and relative order. A token's "$type" is only
// written when it differs from the type its enclosing groups provide.
// Orphaned nodes are not reachable and are omitted.
func Serialize(view tokentree.View, format Format) ([]byte, error) {
	root := buildObject(view, tokentree.RootID, "")
	switch format {
	case FormatJSON, FormatJSONC, "":
		var buf bytes.Buffer
		if err := writeJSON(&buf, root); err != nil {
			return nil, err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
			return nil, fmt.Errorf("document: indent json: %w", err)
		}
		out.WriteByte('\n')
		return out.Bytes(), nil
	case FormatYAML:
		node, err := yamlNode(root)
		if err != nil {
			return nil, err
		}
		out, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("document: encode yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func buildObject(view tokentree.View, parentID, inheritedType string) *object {
	obj := &object{}
	for _, child := range view.GetChildren(parentID) {
		if token, ok := tokentree.AsToken(child.Meta); ok {
			obj.set(token.Name, tokenObject(token, inheritedType))
			continue
		}
		group, ok := tokentree.AsGroup(child.Meta)
		if !ok {
			continue
		}
		entry := &object{}
		childType := inheritedType
		if group.Type != "" {
			entry.set(keyType, group.Type)
			childType = group.Type
		}
		writeCommon(entry, group.Description, group.Deprecated, group.Extensions)
		nested := buildObject(view, child.ID, childType)
		entry.members = append(entry.members, nested.members...)
		obj.set(group.Name, entry)
	}
	return obj
}

func tokenObject(token tokentree.TokenMeta, inheritedType string) *object {
	entry := &object{}
	if token.Extends != "" {
		entry.set(keyValue, token.Extends)
	} else {
		entry.set(keyValue, token.Value)
	}
	if token.Type != "" && token.Type != inheritedType {
		entry.set(keyType, token.Type)
	}
	writeCommon(entry, token.Description, token.Deprecated, token.Extensions)
	return entry
}

func writeCommon(entry *object, description string, deprecated tokentree.Deprecation, extensions map[string]any) {
	if description != "" {
		entry.set(keyDescription, description)
	}
	if deprecated.IsDeprecated() {
		entry.set(keyDeprecated, deprecated.Value())
	}
	if len(extensions) > 0 {
		entry.set(keyExtensions, extensions)
	}
}

func writeJSON(buf *bytes.Buffer, value any) error {
	obj, ok := value.(*object)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("document: encode value: %w", err)
		}
		buf.Write(data)
		return nil
	}
	buf.WriteByte('{')
	for i, m := range obj.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(m.key)
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeJSON(buf, m.value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func yamlNode(value any) (*yaml.Node, error) {
	switch typed := value.(type) {
	case *object:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range typed.members {
			child, err := yamlNode(m.value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.key}, child)
		}
		return node, nil
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := &object{}
		for _, key := range keys {
			obj.set(key, typed[key])
		}
		return yamlNode(obj)
	default:
		node := &yaml.Node{}
		if err := node.Encode(value); err != nil {
			return nil, fmt.Errorf("document: encode yaml value: %w", err)
		}
		return node, nil
	}
}
