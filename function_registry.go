package tokentree

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from query expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores query helpers keyed by case-insensitive name.
// Expressions call a helper by the name it was registered with.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

type registeredFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// Register stores fn under name. Names are unique ignoring case.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("tokentree: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("tokentree: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("tokentree: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]registeredFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("tokentree: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tokentree: function %q not registered", name)
	}
	return entry.fn(args...)
}

// bound returns a closure calling the function registered for name.
func (r *FunctionRegistry) bound(name string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// TokenFunctions returns a registry preloaded with helpers for token
// predicates: hasPrefix(s, prefix), depth(path) and isAlias(alias).
func TokenFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("hasPrefix", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("hasPrefix expects 2 arguments, got %d", len(args))
		}
		s, _ := args[0].(string)
		prefix, _ := args[1].(string)
		return strings.HasPrefix(s, prefix), nil
	})
	_ = registry.Register("depth", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("depth expects 1 argument, got %d", len(args))
		}
		path, _ := args[0].(string)
		if path == "" {
			return 0, nil
		}
		return strings.Count(path, ".") + 1, nil
	})
	_ = registry.Register("isAlias", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("isAlias expects 1 argument, got %d", len(args))
		}
		ref, _ := args[0].(string)
		return len(ParseReference(ref)) > 0, nil
	})
	return registry
}
