package tokentree

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-tokentree/internal/clone"
)

// BindingKeys lists the variables a query predicate sees for each node.
//
//	id, parentId, index   node identity and placement
//	kind                  "group" or "token"
//	name, tokenType       Meta name and type
//	value, alias          token value and Extends reference
//	description, deprecated, extensions
//	path                  dotted names from the root, e.g. "colors.primary"
//	resolved              resolved value of a token, when WithResolvedValues is set
var BindingKeys = []string{
	"id", "parentId", "index", "kind", "name", "tokenType", "value", "alias",
	"description", "deprecated", "extensions", "path", "resolved",
}

// BindNode builds the predicate binding for node reached through path.
func BindNode(node Node[Meta], path []string) map[string]any {
	binding := map[string]any{
		"id":          node.ID,
		"parentId":    node.ParentID,
		"index":       node.Index,
		"kind":        "",
		"name":        "",
		"tokenType":   "",
		"value":       nil,
		"alias":       "",
		"description": "",
		"deprecated":  nil,
		"extensions":  map[string]any{},
		"path":        strings.Join(path, "."),
		"resolved":    nil,
	}
	if token, ok := AsToken(node.Meta); ok {
		binding["kind"] = "token"
		binding["name"] = token.Name
		binding["tokenType"] = token.Type
		binding["value"] = clone.Value(token.Value)
		binding["alias"] = token.Extends
		binding["description"] = token.Description
		binding["deprecated"] = token.Deprecated.Value()
		if token.Extensions != nil {
			binding["extensions"] = clone.Map(token.Extensions)
		}
	} else if group, ok := AsGroup(node.Meta); ok {
		binding["kind"] = "group"
		binding["name"] = group.Name
		binding["tokenType"] = group.Type
		binding["description"] = group.Description
		binding["deprecated"] = group.Deprecated.Value()
		if group.Extensions != nil {
			binding["extensions"] = clone.Map(group.Extensions)
		}
	}
	return binding
}

// QueryOption configures a Query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	engine    string
	evaluator Evaluator
	cache     ProgramCache
	functions *FunctionRegistry
	logger    EvaluatorLogger
	args      map[string]any
	metadata  map[string]any
	now       *time.Time
	resolve   bool
}

// WithEngine selects the evaluator engine: "expr" (default), "cel" or "js".
func WithEngine(engine string) QueryOption {
	return func(cfg *queryConfig) {
		cfg.engine = strings.ToLower(strings.TrimSpace(engine))
	}
}

// WithEvaluator supplies a custom evaluator; it takes precedence over
// WithEngine.
func WithEvaluator(evaluator Evaluator) QueryOption {
	return func(cfg *queryConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache shares compiled programs between queries.
func WithProgramCache(cache ProgramCache) QueryOption {
	return func(cfg *queryConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry makes registry's functions callable from predicates.
func WithFunctionRegistry(registry *FunctionRegistry) QueryOption {
	return func(cfg *queryConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the query.
func WithCustomFunction(name string, fn Function) QueryOption {
	return func(cfg *queryConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger records every predicate evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) QueryOption {
	return func(cfg *queryConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithQueryArgs exposes args to predicates as the "args" variable.
func WithQueryArgs(args map[string]any) QueryOption {
	return func(cfg *queryConfig) {
		cfg.args = clone.Map(args)
	}
}

// WithQueryMetadata exposes metadata to predicates as the "metadata" variable.
func WithQueryMetadata(metadata map[string]any) QueryOption {
	return func(cfg *queryConfig) {
		cfg.metadata = clone.Map(metadata)
	}
}

// WithQueryTime pins the "now" variable.
func WithQueryTime(now time.Time) QueryOption {
	return func(cfg *queryConfig) {
		cfg.now = &now
	}
}

// WithResolvedValues binds "resolved" to each token's resolved value. Tokens
// that fail to resolve bind nil.
func WithResolvedValues() QueryOption {
	return func(cfg *queryConfig) {
		cfg.resolve = true
	}
}

// Query is a compiled node predicate.
type Query struct {
	expression string
	engine     string
	rule       CompiledRule
	cfg        queryConfig
}

// QueryMatch is a node selected by a query and the names leading to it.
type QueryMatch struct {
	Node Node[Meta]
	Path []string
}

// Name returns the dotted path of the match.
func (m QueryMatch) Name() string {
	return strings.Join(m.Path, ".")
}

// NewQuery compiles expression with the configured engine.
func NewQuery(expression string, opts ...QueryOption) (*Query, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	cfg := queryConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	evaluator := cfg.evaluator
	if evaluator == nil {
		built, err := NewEvaluator(cfg.engine, cfg.cache, cfg.functions)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, cfg.engine)
		}
		evaluator = built
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expression)
	if err != nil {
		err = compileFailure(engine, expression, err)
		cfg.logger.LogEvaluation(EvaluatorLogEvent{Engine: engine, Expr: expression, Err: err})
		return nil, err
	}
	return &Query{
		expression: expression,
		engine:     engine,
		rule:       rule,
		cfg:        cfg,
	}, nil
}

// Expression returns the predicate source.
func (q *Query) Expression() string {
	return q.expression
}

// Engine names the evaluator running the predicate.
func (q *Query) Engine() string {
	return q.engine
}

// Match evaluates the predicate for node reached through path. view is only
// consulted when WithResolvedValues is set and may otherwise be nil.
func (q *Query) Match(view View, node Node[Meta], path []string) (bool, error) {
	binding := BindNode(node, path)
	if q.cfg.resolve && view != nil {
		if token, ok := AsToken(node.Meta); ok {
			if resolved, err := Resolve(token, view); err == nil {
				binding["resolved"] = resolved.Value
			}
		}
	}

	ctx := EvalContext{
		Node:     binding,
		Now:      q.cfg.now,
		Args:     q.cfg.args,
		Metadata: q.cfg.metadata,
	}
	start := time.Now()
	out, err := q.rule.Evaluate(ctx)
	var matched bool
	if err == nil {
		var ok bool
		if matched, ok = out.(bool); !ok {
			err = fmt.Errorf("%w, got %T", ErrPredicateNotBool, out)
		}
	}
	err = matchFailure(q.engine, q.expression, node.ID, err)
	q.cfg.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   q.engine,
		Expr:     q.expression,
		NodeID:   node.ID,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return false, err
	}
	return matched, nil
}

// Select evaluates the predicate for every node reachable from the roots of
// view, depth first in sibling order, and returns the matches in that order.
// Orphaned nodes are not visited. The first evaluation error aborts the walk.
func (q *Query) Select(view View) ([]QueryMatch, error) {
	if snapshotter, ok := view.(interface{ viewSnapshot() *Snapshot[Meta] }); ok {
		view = snapshotter.viewSnapshot()
	}
	children := childLookup(view)
	matches := []QueryMatch{}

	var visit func(parentID string, path []string) error
	visit = func(parentID string, path []string) error {
		for _, child := range children(parentID) {
			segment := child.ID
			if child.Meta != nil {
				segment = child.Meta.MetaName()
			}
			childPath := append(append([]string(nil), path...), segment)
			ok, err := q.Match(view, child, childPath)
			if err != nil {
				return err
			}
			if ok {
				matches = append(matches, QueryMatch{Node: clone.Value(child), Path: childPath})
			}
			if err := visit(child.ID, childPath); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(RootID, nil); err != nil {
		return nil, err
	}
	return matches, nil
}

// Select compiles expression and runs it over view.
func Select(view View, expression string, opts ...QueryOption) ([]QueryMatch, error) {
	query, err := NewQuery(expression, opts...)
	if err != nil {
		return nil, err
	}
	return query.Select(view)
}
