package tokentree

import (
	"strings"
	"sync"
)

// ProgramCache stores compiled expression programs keyed by expression and
// engine.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapProgramCache is an unbounded ProgramCache safe for concurrent use.
type MapProgramCache struct {
	programs sync.Map
}

// NewProgramCache returns an empty MapProgramCache.
func NewProgramCache() *MapProgramCache {
	return &MapProgramCache{}
}

func (c *MapProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *MapProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// cachedProgram returns the program compiled for engine and expression,
// compiling and storing it on a miss. Entries of another type are ignored.
func cachedProgram[P any](cache ProgramCache, engine, expression string, compile func(string) (P, error)) (P, error) {
	if strings.TrimSpace(expression) == "" {
		var zero P
		return zero, compileFailure(engine, "", ErrEmptyExpression)
	}
	key := engine + ":" + expression
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile(expression)
	if err != nil {
		var zero P
		return zero, compileFailure(engine, expression, err)
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}
