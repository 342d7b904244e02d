package tokentree

import "time"

// DefaultJSTimeout bounds a single script run unless JSWithTimeout overrides it.
const DefaultJSTimeout = 250 * time.Millisecond

// jsSettings is shared by the goja build and the stub so callers compile with
// or without the js_eval tag.
type jsSettings struct {
	cache    ProgramCache
	registry *FunctionRegistry
	timeout  time.Duration
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsSettings)

// JSWithProgramCache shares compiled scripts through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(s *jsSettings) {
		s.cache = cache
	}
}

// JSWithFunctionRegistry exposes the registry functions as globals and
// through call(name, ...args).
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(s *jsSettings) {
		if registry != nil {
			s.registry = registry.Clone()
		}
	}
}

// JSWithTimeout interrupts a script that runs longer than d. Zero or a
// negative d disables the limit.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(s *jsSettings) {
		s.timeout = d
	}
}

func newJSSettings(opts []JSEvaluatorOption) jsSettings {
	s := jsSettings{timeout: DefaultJSTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
