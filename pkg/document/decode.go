package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// decodeOrdered parses data into an ordered tree rooted at an object.
func decodeOrdered(data []byte, format Format) (*object, error) {
	var (
		root any
		err  error
	)
	switch format {
	case FormatJSON, "":
		root, err = decodeJSON(data)
	case FormatJSONC:
		root, err = decodeJSON(jsonc.ToJSON(data))
	case FormatYAML:
		root, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if root == nil {
		return &object{}, nil
	}
	obj, ok := root.(*object)
	if !ok {
		return nil, fmt.Errorf("document: top level must be an object, got %T", root)
	}
	return obj, nil
}

func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := readJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("document: parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("document: parse json: trailing data after top-level value")
	}
	return value, nil
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			obj := &object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				value, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				value, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", typed)
		}
	case json.Number:
		return normalizeNumber(typed)
	default:
		return typed, nil
	}
}

// normalizeNumber returns int for integer literals that fit and float64
// otherwise, matching what the YAML decoder produces.
func normalizeNumber(n json.Number) (any, error) {
	if i, err := strconv.ParseInt(string(n), 10, 0); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document: parse yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return readYAMLNode(doc.Content[0])
}

func readYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return readYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return readYAMLNode(node.Alias)
	case yaml.MappingNode:
		obj := &object{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("document: parse yaml: line %d: keys must be scalars", keyNode.Line)
			}
			value, err := readYAMLNode(valueNode)
			if err != nil {
				return nil, err
			}
			obj.set(keyNode.Value, value)
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := readYAMLNode(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("document: parse yaml: line %d: %w", node.Line, err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("document: parse yaml: line %d: unsupported node kind %d", node.Line, node.Kind)
	}
}
