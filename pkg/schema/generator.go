// Package schema describes a token tree as an OpenAPI components document or
// as a flat list of field descriptors. Token value schemas are inferred from
// resolved values, so aliases report the shape of what they point at.
package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-tokentree"
)

// Document is a generated schema.
type Document struct {
	Format   Format `json:"format"`
	Document any    `json:"document"`
}

// FieldDescriptor describes one token path and its inferred value type.
type FieldDescriptor struct {
	Path       string `json:"path"`
	Type       string `json:"type"`
	TokenType  string `json:"tokenType,omitempty"`
	Alias      string `json:"alias,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Generate walks view from the roots in sibling order.
func Generate(view tokentree.View, opts ...Option) (Document, error) {
	if view == nil {
		return Document{}, fmt.Errorf("schema: view is required")
	}
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch cfg.format {
	case FormatDescriptors:
		fields, err := describe(view, tokentree.RootID, nil)
		if err != nil {
			return Document{}, err
		}
		if fields == nil {
			fields = []FieldDescriptor{}
		}
		return Document{Format: FormatDescriptors, Document: fields}, nil
	case FormatOpenAPI:
		root, err := schemaForGroup(view, tokentree.RootID, tokentree.GroupMeta{})
		if err != nil {
			return Document{}, err
		}
		return Document{Format: FormatOpenAPI, Document: map[string]any{
			"openapi": cfg.openAPIVersion,
			"info":    buildInfo(cfg.info),
			"paths":   map[string]any{},
			"components": map[string]any{
				"schemas": map[string]any{cfg.rootComponent: root},
			},
		}}, nil
	default:
		return Document{}, fmt.Errorf("schema: unsupported format %q", cfg.format)
	}
}

func buildInfo(info openapiInfo) map[string]any {
	out := map[string]any{
		"title":   info.Title,
		"version": info.Version,
	}
	if info.Description != "" {
		out["description"] = info.Description
	}
	return out
}

func schemaForGroup(view tokentree.View, id string, group tokentree.GroupMeta) (map[string]any, error) {
	properties := map[string]any{}
	for _, child := range view.GetChildren(id) {
		name := child.Meta.MetaName()
		if _, dup := properties[name]; dup {
			continue
		}
		if token, ok := tokentree.AsToken(child.Meta); ok {
			schema, err := schemaForToken(view, token)
			if err != nil {
				return nil, err
			}
			properties[name] = schema
			continue
		}
		if nested, ok := tokentree.AsGroup(child.Meta); ok {
			schema, err := schemaForGroup(view, child.ID, nested)
			if err != nil {
				return nil, err
			}
			properties[name] = schema
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	annotate(out, group.Description, group.Deprecated, group.Type)
	return out, nil
}

func schemaForToken(view tokentree.View, token tokentree.TokenMeta) (map[string]any, error) {
	resolved, resolveErr := tokentree.Resolve(token, view)
	var out map[string]any
	if resolveErr != nil {
		out = map[string]any{"x-unresolved": resolveErr.Error()}
	} else {
		schema, err := buildSchema(reflect.ValueOf(resolved.Value))
		if err != nil {
			return nil, fmt.Errorf("schema: token %q: %w", token.Name, err)
		}
		out = schema
	}
	if token.IsAlias() {
		out["x-alias"] = token.Extends
	}
	tokenType := token.Type
	if tokenType == "" && resolveErr == nil {
		tokenType = resolved.Type
	}
	annotate(out, token.Description, token.Deprecated, tokenType)
	return out, nil
}

func annotate(schema map[string]any, description string, deprecated tokentree.Deprecation, tokenType string) {
	if description != "" {
		schema["description"] = description
	}
	if deprecated.IsDeprecated() {
		schema["deprecated"] = true
		if deprecated.Reason != "" {
			schema["x-deprecation-reason"] = deprecated.Reason
		}
	}
	if tokenType != "" {
		schema["x-token-type"] = tokenType
	}
}

func describe(view tokentree.View, id string, prefix []string) ([]FieldDescriptor, error) {
	var out []FieldDescriptor
	for _, child := range view.GetChildren(id) {
		path := append(prefix[:len(prefix):len(prefix)], child.Meta.MetaName())
		if _, ok := tokentree.AsGroup(child.Meta); ok {
			nested, err := describe(view, child.ID, path)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		token, ok := tokentree.AsToken(child.Meta)
		if !ok {
			continue
		}
		field := FieldDescriptor{
			Path:       strings.Join(path, "."),
			TokenType:  token.Type,
			Alias:      token.Extends,
			Deprecated: token.Deprecated.IsDeprecated(),
		}
		resolved, err := tokentree.Resolve(token, view)
		if err != nil {
			field.Type = "unknown"
			field.Error = err.Error()
			out = append(out, field)
			continue
		}
		if field.TokenType == "" {
			field.TokenType = resolved.Type
		}
		schema, err := buildSchema(reflect.ValueOf(resolved.Value))
		if err != nil {
			return nil, fmt.Errorf("schema: token %q: %w", field.Path, err)
		}
		field.Type, _ = schema["type"].(string)
		out = append(out, field)
	}
	return out, nil
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"type": "null"}, nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return map[string]any{"type": "null"}, nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return schemaForStruct(rv)
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv)
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", rv.Type().String()),
		}, nil
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map key type %s unsupported", rv.Type().Key())
	}
	properties := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		child, err := buildSchema(iter.Value())
		if err != nil {
			return nil, err
		}
		properties[iter.Key().String()] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	properties := map[string]any{}
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		child, err := buildSchema(rv.Field(i))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

// schemaForSlice merges item schemas; mixed item types yield an empty schema.
func schemaForSlice(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{"type": "string", "format": "byte"}, nil
	}

	types := map[string]struct{}{}
	var items map[string]any
	for i := 0; i < rv.Len(); i++ {
		child, err := buildSchema(rv.Index(i))
		if err != nil {
			return nil, err
		}
		name, _ := child["type"].(string)
		types[name] = struct{}{}
		if items == nil {
			items = child
		}
	}
	if items == nil || len(types) > 1 {
		items = map[string]any{}
		if len(types) > 1 {
			names := make([]string, 0, len(types))
			for name := range types {
				names = append(names, name)
			}
			sort.Strings(names)
			items["x-item-types"] = names
		}
	}
	return map[string]any{
		"type":  "array",
		"items": items,
	}, nil
}
