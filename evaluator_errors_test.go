package tokentree

import (
	"errors"
	"strings"
	"testing"
)

func TestMatchFailureCarriesNode(t *testing.T) {
	base := errors.New("boom")
	err := matchFailure(EngineExpr, `kind == "token" && missing`, "colors.primary", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != EngineExpr || evalErr.NodeID != "colors.primary" || evalErr.Phase != EvalPhaseMatch {
		t.Fatalf("unexpected metadata: %+v", evalErr)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	if !strings.Contains(err.Error(), "at node colors.primary") || !strings.Contains(err.Error(), "expr match") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestAnnotateKeepsInnerEngine(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: EngineExpr, Err: base}

	err := matchFailure(EngineCEL, "name ==", "n1", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != EngineExpr {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "name ==" || existing.NodeID != "n1" || existing.Phase != EvalPhaseMatch {
		t.Fatalf("expected blanks to be filled, got %+v", existing)
	}
}

func TestCompileFailureMessage(t *testing.T) {
	if err := compileFailure(EngineExpr, "x", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := compileFailure(EngineCEL, "", ErrEmptyExpression)
	if !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}
	if got := err.Error(); got != "tokentree: cel compile: tokentree: predicate expression is empty" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestEmptyExpressionRejectedByEveryEngine(t *testing.T) {
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator()} {
		if _, err := evaluator.Compile(""); !errors.Is(err, ErrEmptyExpression) {
			t.Fatalf("%s: expected ErrEmptyExpression, got %v", evaluatorEngineName(evaluator), err)
		}
		if _, err := evaluator.Evaluate(EvalContext{}, "  "); !errors.Is(err, ErrEmptyExpression) {
			t.Fatalf("%s: expected ErrEmptyExpression for blank input, got %v", evaluatorEngineName(evaluator), err)
		}
	}
}
