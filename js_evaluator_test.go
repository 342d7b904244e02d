//go:build js_eval

package tokentree

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJSEvaluatorInterruptsLongScripts(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithTimeout(20 * time.Millisecond))
	_, err := evaluator.Evaluate(EvalContext{Node: map[string]any{"id": "loop"}}, `(function(){ while (true) {} })()`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Phase != EvalPhaseMatch || evalErr.NodeID != "loop" {
		t.Fatalf("expected match failure for node loop, got %v", err)
	}
	if !strings.Contains(err.Error(), "predicate exceeded") {
		t.Fatalf("expected interrupt message, got %v", err)
	}
}

func TestJSEvaluatorRegistryGlobals(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithFunctionRegistry(TokenFunctions()))
	out, err := evaluator.Evaluate(EvalContext{Node: map[string]any{"path": "colors.brand.primary"}}, `depth(path) === 3 && call("hasPrefix", path, "colors")`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out != true {
		t.Fatalf("expected true, got %v", out)
	}
}
