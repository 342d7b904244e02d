package tokentree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPredicateNotBool is returned when a query predicate yields a non-boolean.
	ErrPredicateNotBool = errors.New("tokentree: predicate must evaluate to a boolean")
	// ErrEmptyExpression is returned when compiling a blank predicate.
	ErrEmptyExpression = errors.New("tokentree: predicate expression is empty")
	// ErrRuleDetached is returned by a compiled rule that lost its evaluator.
	ErrRuleDetached = errors.New("tokentree: compiled rule has no evaluator")
)

// EvalPhase tells whether a predicate failed while compiling or while
// matching a node.
type EvalPhase string

const (
	EvalPhaseCompile EvalPhase = "compile"
	EvalPhaseMatch   EvalPhase = "match"
)

// EvaluationError reports a predicate failure together with the engine, the
// source and, for match failures, the node being tested.
type EvaluationError struct {
	Engine string
	Phase  EvalPhase
	Expr   string
	NodeID string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("tokentree: ")
	if e.Engine != "" {
		b.WriteString(e.Engine)
		b.WriteByte(' ')
	}
	b.WriteString(string(e.Phase))
	if e.Expr != "" {
		fmt.Fprintf(&b, " %q", e.Expr)
	}
	if e.NodeID != "" {
		fmt.Fprintf(&b, " at node %s", e.NodeID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func compileFailure(engine, expr string, err error) error {
	return annotateFailure(EvalPhaseCompile, engine, expr, "", err)
}

func matchFailure(engine, expr, nodeID string, err error) error {
	return annotateFailure(EvalPhaseMatch, engine, expr, nodeID, err)
}

// annotateFailure wraps err in an EvaluationError. An EvaluationError already
// in the chain only has its blank fields filled, so the innermost engine wins.
func annotateFailure(phase EvalPhase, engine, expr, nodeID string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Phase: phase, Expr: expr, NodeID: nodeID, Err: err}
	}
	if existing.Engine == "" {
		existing.Engine = engine
	}
	if existing.Phase == "" {
		existing.Phase = phase
	}
	if existing.Expr == "" {
		existing.Expr = expr
	}
	if existing.NodeID == "" {
		existing.NodeID = nodeID
	}
	return existing
}
