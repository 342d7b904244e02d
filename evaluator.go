package tokentree

import (
	"errors"
	"time"
)

var (
	// ErrUnknownEngine is returned for engine names other than expr, cel and js.
	ErrUnknownEngine = errors.New("tokentree: unknown evaluator engine")
	// ErrEngineUnavailable is returned when an engine was compiled out.
	ErrEngineUnavailable = errors.New("tokentree: evaluator engine unavailable")
)

// Evaluator compiles and runs predicate expressions against a node binding.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// EvalContext carries the variables visible to an expression. Node holds the
// per-node binding built by BindNode; its keys become top-level variables.
type EvalContext struct {
	Node     map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Node == nil {
		ctx.Node = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// label names the node under evaluation for error reports.
func (ctx EvalContext) label() string {
	if ctx.Node == nil {
		return ""
	}
	id, _ := ctx.Node["id"].(string)
	return id
}

// NewEvaluator returns the evaluator for engine: "expr" (the default when
// engine is empty), "cel" or "js".
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, ErrEngineUnavailable
		}
		return evaluator, nil
	default:
		return nil, ErrUnknownEngine
	}
}

const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	default:
		if named, ok := e.(interface{ Engine() string }); ok {
			return named.Engine()
		}
		return "custom"
	}
}
