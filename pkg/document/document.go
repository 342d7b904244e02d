// Package document reads and writes design token documents in the nested
// "$value" / "$type" layout and converts them to and from tree node records.
//
// Objects carrying "$value" are tokens; every other object is a group. Keys
// beginning with "$" are reserved for properties. A string "$value" written
// as a reference such as "{colors.primary}" becomes the token's alias.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-tokentree"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
)

// ErrUnsupportedFormat is returned for formats other than json, jsonc and yaml.
var ErrUnsupportedFormat = errors.New("document: unsupported format")

// DetectFormat picks a format from a file extension, defaulting to JSON.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".jsonc", ".json5":
		return FormatJSONC
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(name))); format {
	case FormatJSON, FormatJSONC, FormatYAML:
		return format, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Result holds the node records parsed from a document and the problems
// found along the way. Entries that produced an error are left out of Nodes.
type Result struct {
	Nodes  []tokentree.Node[tokentree.Meta]
	Errors []error
}

// Err joins Errors, or returns nil when there are none.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// EntryError reports a document entry that could not be converted.
type EntryError struct {
	Path   []string
	Reason string
}

func (e *EntryError) Error() string {
	if len(e.Path) == 0 {
		return "document: " + e.Reason
	}
	return fmt.Sprintf("document: %s: %s", strings.Join(e.Path, "."), e.Reason)
}

// Reserved property names.
const (
	keyValue       = "$value"
	keyType        = "$type"
	keyDescription = "$description"
	keyDeprecated  = "$deprecated"
	keyExtensions  = "$extensions"
)

// member is one key of an object, kept in document order.
type member struct {
	key   string
	value any
}

// object is a decoded mapping that remembers key order. Nested objects are
// *object; arrays are []any; scalars are string, bool, int, float64 or nil.
type object struct {
	members []member
}

func (o *object) get(key string) (any, bool) {
	for _, m := range o.members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func (o *object) set(key string, value any) {
	for i, m := range o.members {
		if m.key == key {
			o.members[i].value = value
			return
		}
	}
	o.members = append(o.members, member{key: key, value: value})
}

// plain converts ordered objects into map[string]any recursively.
func plain(value any) any {
	switch typed := value.(type) {
	case *object:
		out := make(map[string]any, len(typed.members))
		for _, m := range typed.members {
			out[m.key] = plain(m.value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = plain(item)
		}
		return out
	default:
		return value
	}
}
