//go:build js_eval

package tokentree

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	jsSettings
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return &jsEvaluator{jsSettings: newJSSettings(opts)}
}

// Engine names the evaluator for logs and errors.
func (e *jsEvaluator) Engine() string {
	return EngineJS
}

func (e *jsEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := cachedProgram(e.cache, EngineJS, expression, compileJS)
	if err != nil {
		return nil, err
	}
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

// compileJS wraps the predicate in a function so it may be a bare expression.
func compileJS(expression string) (*goja.Program, error) {
	return goja.Compile("predicate.js", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
}

// globals lists the values set on a fresh runtime before the predicate runs.
func (e *jsEvaluator) globals(ctx EvalContext) map[string]any {
	globals := make(map[string]any, len(ctx.Node)+4)
	for key, value := range ctx.Node {
		globals[key] = value
	}
	globals["now"] = ctx.timestamp()
	globals["args"] = ctx.Args
	globals["metadata"] = ctx.Metadata
	if e.registry != nil {
		globals["call"] = e.registry.Call
		for _, name := range e.registry.Names() {
			globals[name] = e.registry.bound(name)
		}
	}
	return globals
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

// Evaluate uses a fresh runtime per call; goja runtimes are not safe for
// concurrent use.
func (r *jsRule) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil || r.program == nil {
		return nil, matchFailure(EngineJS, r.expression, ctx.label(), ErrRuleDetached)
	}
	ctx = ctx.withDefaults()
	vm := goja.New()
	for key, value := range r.evaluator.globals(ctx) {
		if err := vm.Set(key, value); err != nil {
			return nil, matchFailure(EngineJS, r.expression, ctx.label(), err)
		}
	}
	if timeout := r.evaluator.timeout; timeout > 0 {
		timer := time.AfterFunc(timeout, func() {
			vm.Interrupt(fmt.Sprintf("predicate exceeded %s", timeout))
		})
		defer timer.Stop()
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, matchFailure(EngineJS, r.expression, ctx.label(), err)
	}
	return value.Export(), nil
}
