package tokentree

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache shares compiled programs through cache.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes the registry functions by name and through
// call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// exprEvaluator runs predicates with github.com/expr-lang/expr. Unknown
// identifiers evaluate to nil so a predicate can mention binding keys that a
// node lacks.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := cachedProgram(e.cache, EngineExpr, expression, e.compile)
	if err != nil {
		return nil, err
	}
	return &exprRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.registry.bound(name)))
		}
	}
	return exprlang.Compile(expression, options...)
}

// env flattens the node binding into top-level variables next to now, args
// and metadata.
func (e *exprEvaluator) env(ctx EvalContext) map[string]any {
	env := make(map[string]any, len(ctx.Node)+4)
	for key, value := range ctx.Node {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	if e.registry != nil {
		env["call"] = e.registry.Call
	}
	return env
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx EvalContext) (any, error) {
	if r.evaluator == nil || r.program == nil {
		return nil, matchFailure(EngineExpr, r.expression, ctx.label(), ErrRuleDetached)
	}
	ctx = ctx.withDefaults()
	out, err := exprlang.Run(r.program, r.evaluator.env(ctx))
	if err != nil {
		return nil, matchFailure(EngineExpr, r.expression, ctx.label(), err)
	}
	return out, nil
}
