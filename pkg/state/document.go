package state

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/goliatone/go-tokentree"
	"github.com/goliatone/go-tokentree/internal/clone"
)

// Record is the wire form of one tree node.
type Record struct {
	ID          string         `cbor:"1,keyasint" json:"id"`
	ParentID    string         `cbor:"2,keyasint,omitempty" json:"parentId,omitempty"`
	Index       string         `cbor:"3,keyasint" json:"index"`
	Kind        tokentree.Kind `cbor:"4,keyasint" json:"kind"`
	Name        string         `cbor:"5,keyasint" json:"name"`
	Type        string         `cbor:"6,keyasint,omitempty" json:"type,omitempty"`
	Value       any            `cbor:"7,keyasint,omitempty" json:"value,omitempty"`
	Extends     string         `cbor:"8,keyasint,omitempty" json:"extends,omitempty"`
	Description string         `cbor:"9,keyasint,omitempty" json:"description,omitempty"`
	Deprecated  any            `cbor:"10,keyasint,omitempty" json:"deprecated,omitempty"`
	Extensions  map[string]any `cbor:"11,keyasint,omitempty" json:"extensions,omitempty"`
}

// Document is a flattened tree. Records are ordered by id.
type Document struct {
	Version uint64   `cbor:"1,keyasint" json:"version"`
	Records []Record `cbor:"2,keyasint" json:"records"`
}

// FromSnapshot flattens every node of snap, orphans included.
func FromSnapshot(snap *tokentree.Snapshot[tokentree.Meta]) (Document, error) {
	if snap == nil {
		return Document{}, nil
	}
	nodes := snap.Values()
	doc := Document{Version: snap.Version(), Records: make([]Record, 0, len(nodes))}
	for _, node := range nodes {
		record, err := recordFromNode(node)
		if err != nil {
			return Document{}, err
		}
		doc.Records = append(doc.Records, record)
	}
	return doc, nil
}

func recordFromNode(node tokentree.Node[tokentree.Meta]) (Record, error) {
	record := Record{ID: node.ID, ParentID: node.ParentID, Index: node.Index}
	if token, ok := tokentree.AsToken(node.Meta); ok {
		record.Kind = tokentree.KindToken
		record.Name = token.Name
		record.Type = token.Type
		record.Value = clone.Value(token.Value)
		record.Extends = token.Extends
		record.Description = token.Description
		record.Deprecated = token.Deprecated.Value()
		record.Extensions = clone.Map(token.Extensions)
		return record, nil
	}
	if group, ok := tokentree.AsGroup(node.Meta); ok {
		record.Kind = tokentree.KindGroup
		record.Name = group.Name
		record.Type = group.Type
		record.Description = group.Description
		record.Deprecated = group.Deprecated.Value()
		record.Extensions = clone.Map(group.Extensions)
		return record, nil
	}
	return Record{}, fmt.Errorf("%w: node %q has unsupported meta %T", ErrInvalidDocument, node.ID, node.Meta)
}

// Node converts the record back into a tree node.
func (r Record) Node() (tokentree.Node[tokentree.Meta], error) {
	deprecated, err := tokentree.ParseDeprecation(r.Deprecated)
	if err != nil {
		return tokentree.Node[tokentree.Meta]{}, fmt.Errorf("%w: record %q: %v", ErrInvalidDocument, r.ID, err)
	}
	node := tokentree.Node[tokentree.Meta]{ID: r.ID, ParentID: r.ParentID, Index: r.Index}
	switch r.Kind {
	case tokentree.KindToken:
		node.Meta = tokentree.TokenMeta{
			Name:        r.Name,
			Type:        r.Type,
			Value:       normalizeValue(r.Value),
			Extends:     r.Extends,
			Description: r.Description,
			Deprecated:  deprecated,
			Extensions:  normalizeMap(r.Extensions),
		}
	case tokentree.KindGroup:
		node.Meta = tokentree.GroupMeta{
			Name:        r.Name,
			Type:        r.Type,
			Description: r.Description,
			Deprecated:  deprecated,
			Extensions:  normalizeMap(r.Extensions),
		}
	default:
		return tokentree.Node[tokentree.Meta]{}, fmt.Errorf("%w: record %q has unknown kind %q", ErrInvalidDocument, r.ID, r.Kind)
	}
	return node, nil
}

// Nodes converts every record into a tree node.
func (d Document) Nodes() ([]tokentree.Node[tokentree.Meta], error) {
	out := make([]tokentree.Node[tokentree.Meta], 0, len(d.Records))
	for _, record := range d.Records {
		node, err := record.Node()
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// Validate checks ids, kinds and token payloads.
func (d Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Records))
	for _, record := range d.Records {
		if record.ID == "" {
			return fmt.Errorf("%w: record with empty id", ErrInvalidDocument)
		}
		if _, dup := seen[record.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidDocument, record.ID)
		}
		seen[record.ID] = struct{}{}
		if record.ParentID == record.ID {
			return fmt.Errorf("%w: record %q is its own parent", ErrInvalidDocument, record.ID)
		}
		switch record.Kind {
		case tokentree.KindGroup:
			if record.Value != nil || record.Extends != "" {
				return fmt.Errorf("%w: group %q carries a value", ErrInvalidDocument, record.ID)
			}
		case tokentree.KindToken:
			if record.Value == nil && record.Extends == "" {
				return fmt.Errorf("%w: token %q has neither value nor extends", ErrInvalidDocument, record.ID)
			}
		default:
			return fmt.Errorf("%w: record %q has unknown kind %q", ErrInvalidDocument, record.ID, record.Kind)
		}
		if _, err := tokentree.ParseDeprecation(record.Deprecated); err != nil {
			return fmt.Errorf("%w: record %q: %v", ErrInvalidDocument, record.ID, err)
		}
	}
	return nil
}

// Sort orders records by id.
func (d *Document) Sort() {
	slices.SortFunc(d.Records, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{Version: d.Version}
	if d.Records == nil {
		return out
	}
	out.Records = make([]Record, len(d.Records))
	for i, record := range d.Records {
		record.Value = clone.Value(record.Value)
		record.Extensions = clone.Map(record.Extensions)
		out.Records[i] = record
	}
	return out
}

// Get returns the record with id.
func (d Document) Get(id string) (Record, bool) {
	for _, record := range d.Records {
		if record.ID == id {
			return record, true
		}
	}
	return Record{}, false
}

// Put inserts or replaces the record with the same id.
func (d *Document) Put(record Record) {
	for i := range d.Records {
		if d.Records[i].ID == record.ID {
			d.Records[i] = record
			return
		}
	}
	d.Records = append(d.Records, record)
}

// Remove deletes the record with id and reports whether it existed.
func (d *Document) Remove(id string) bool {
	before := len(d.Records)
	d.Records = slices.DeleteFunc(d.Records, func(r Record) bool { return r.ID == id })
	return len(d.Records) != before
}

// normalizeValue maps decoded CBOR integers onto int so values compare equal
// to what the document parser produces.
func normalizeValue(v any) any {
	switch typed := v.(type) {
	case uint64:
		if typed <= math.MaxInt {
			return int(typed)
		}
		return typed
	case int64:
		if typed >= math.MinInt && typed <= math.MaxInt {
			return int(typed)
		}
		return typed
	case map[string]any:
		return normalizeMap(typed)
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = normalizeValue(item)
	}
	return out
}
