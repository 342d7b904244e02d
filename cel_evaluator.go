package tokentree

import (
	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache shares compiled programs through cache.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes the registry as call(name, [args...]).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry != nil {
			e.registry = registry.Clone()
		}
	}
}

// celEvaluator declares the node binding variables as dyn. Keys of
// EvalContext.Node outside BindingKeys are not visible to CEL programs.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := cachedProgram(e.cache, EngineCEL, expression, e.compile)
	if err != nil {
		return nil, err
	}
	return &celRule{program: program, expression: expression}, nil
}

func (e *celEvaluator) compile(expression string) (celgo.Program, error) {
	env, err := celgo.NewEnv(e.envOptions()...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) envOptions() []celgo.EnvOption {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	for _, key := range BindingKeys {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_string_list",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(registryBinding(e.registry)),
		)))
	}
	return opts
}

type celRule struct {
	program    celgo.Program
	expression string
}

func (r *celRule) Evaluate(ctx EvalContext) (any, error) {
	if r.program == nil {
		return nil, matchFailure(EngineCEL, r.expression, ctx.label(), ErrRuleDetached)
	}
	ctx = ctx.withDefaults()
	out, _, err := r.program.Eval(celActivation(ctx))
	if err != nil {
		return nil, matchFailure(EngineCEL, r.expression, ctx.label(), err)
	}
	return out.Value(), nil
}

// celActivation binds every declared variable. Missing binding keys become
// null so predicates can test for them.
func celActivation(ctx EvalContext) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for _, key := range BindingKeys {
		if value, ok := ctx.Node[key]; ok && value != nil {
			activation[key] = value
			continue
		}
		activation[key] = types.NullValue
	}
	return activation
}

func registryBinding(registry *FunctionRegistry) functions.BinaryOp {
	return func(nameVal, argsVal ref.Val) ref.Val {
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("tokentree: call name must be a string")
		}
		var args []any
		if list, ok := argsVal.(traits.Lister); ok {
			size, _ := list.Size().Value().(int64)
			for i := int64(0); i < size; i++ {
				args = append(args, list.Get(types.Int(i)).Value())
			}
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
