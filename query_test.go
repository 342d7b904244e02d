package tokentree

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func seedQueryStore(t *testing.T) *Store[Meta] {
	t.Helper()
	store := NewStore[Meta]()
	err := store.Transact(func(tx *Transaction[Meta]) error {
		tx.Set(Node[Meta]{ID: "colors", Index: "a0", Meta: GroupMeta{Name: "colors", Type: "color"}})
		tx.Set(Node[Meta]{ID: "colors.red", ParentID: "colors", Index: "a0", Meta: TokenMeta{Name: "red", Type: "color", Value: "#f00"}})
		tx.Set(Node[Meta]{ID: "colors.brand", ParentID: "colors", Index: "a1", Meta: TokenMeta{
			Name:       "brand",
			Type:       "color",
			Extends:    "{colors.red}",
			Deprecated: DeprecatedBecause("use semantic.brand"),
		}})
		tx.Set(Node[Meta]{ID: "space", Index: "a1", Meta: GroupMeta{Name: "space"}})
		tx.Set(Node[Meta]{ID: "space.md", ParentID: "space", Index: "a0", Meta: TokenMeta{
			Name:       "md",
			Type:       "number",
			Value:      16,
			Extensions: map[string]any{"com.example": map[string]any{"scale": "md"}},
		}})
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func matchNames(matches []QueryMatch) []string {
	out := make([]string, len(matches))
	for i, match := range matches {
		out[i] = match.Name()
	}
	return out
}

func queryEngines(t *testing.T) []string {
	t.Helper()
	engines := []string{EngineExpr, EngineCEL}
	if (NewJSEvaluator() != nil) {
		engines = append(engines, EngineJS)
	}
	return engines
}

func TestQuerySelectAcrossEngines(t *testing.T) {
	store := seedQueryStore(t)
	cases := []struct {
		name string
		expr map[string]string
		want []string
	}{
		{
			name: "tokens only",
			expr: map[string]string{
				EngineExpr: `kind == "token"`,
				EngineCEL:  `kind == "token"`,
				EngineJS:   `kind === "token"`,
			},
			want: []string{"colors.red", "colors.brand", "space.md"},
		},
		{
			name: "color tokens",
			expr: map[string]string{
				EngineExpr: `kind == "token" && tokenType == "color"`,
				EngineCEL:  `kind == "token" && tokenType == "color"`,
				EngineJS:   `kind === "token" && tokenType === "color"`,
			},
			want: []string{"colors.red", "colors.brand"},
		},
		{
			name: "aliases",
			expr: map[string]string{
				EngineExpr: `alias != ""`,
				EngineCEL:  `alias != ""`,
				EngineJS:   `alias !== ""`,
			},
			want: []string{"colors.brand"},
		},
		{
			name: "deprecated",
			expr: map[string]string{
				EngineExpr: `deprecated != nil`,
				EngineCEL:  `deprecated != null`,
				EngineJS:   `deprecated != null`,
			},
			want: []string{"colors.brand"},
		},
		{
			name: "path prefix",
			expr: map[string]string{
				EngineExpr: `path startsWith "space"`,
				EngineCEL:  `path.startsWith("space")`,
				EngineJS:   `path.startsWith("space")`,
			},
			want: []string{"space", "space.md"},
		},
	}

	for _, engine := range queryEngines(t) {
		for _, tc := range cases {
			t.Run(engine+"/"+tc.name, func(t *testing.T) {
				matches, err := Select(store, tc.expr[engine], WithEngine(engine))
				if err != nil {
					t.Fatalf("select: %v", err)
				}
				if got := matchNames(matches); !slices.Equal(got, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			})
		}
	}
}

func TestQueryNonBooleanPredicate(t *testing.T) {
	store := seedQueryStore(t)
	_, err := Select(store, `name`)
	if !errors.Is(err, ErrPredicateNotBool) {
		t.Fatalf("expected ErrPredicateNotBool, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.NodeID != "colors" || evalErr.Engine != EngineExpr || evalErr.Phase != EvalPhaseMatch {
		t.Fatalf("expected evaluation metadata, got %+v", evalErr)
	}
}

func TestQueryCompileErrors(t *testing.T) {
	if _, err := NewQuery("  "); !errors.Is(err, ErrEmptyExpression) {
		t.Fatalf("expected ErrEmptyExpression, got %v", err)
	}
	if _, err := NewQuery(`kind ==`, WithEngine(EngineCEL)); err == nil {
		t.Fatalf("expected CEL compile error")
	}
	if _, err := NewQuery(`true`, WithEngine("lua")); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected ErrUnknownEngine, got %v", err)
	}
	if !(NewJSEvaluator() != nil) {
		if _, err := NewQuery(`true`, WithEngine(EngineJS)); !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("expected ErrEngineUnavailable, got %v", err)
		}
	}
}

func TestQueryResolvedValues(t *testing.T) {
	store := seedQueryStore(t)
	matches, err := Select(store, `resolved == "#f00"`, WithResolvedValues())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := matchNames(matches); !slices.Equal(got, []string{"colors.red", "colors.brand"}) {
		t.Fatalf("unexpected matches: %v", got)
	}

	without, err := Select(store, `resolved == "#f00"`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(without) != 0 {
		t.Fatalf("expected resolved to stay nil without the option, got %v", matchNames(without))
	}
}

func TestQueryArgsFunctionsAndLogging(t *testing.T) {
	store := seedQueryStore(t)
	var events []EvaluatorLogEvent
	cache := NewProgramCache()
	opts := []QueryOption{
		WithQueryArgs(map[string]any{"min": 10}),
		WithFunctionRegistry(TokenFunctions()),
		WithCustomFunction("twice", func(args ...any) (any, error) {
			n, _ := args[0].(int)
			return n * 2, nil
		}),
		WithProgramCache(cache),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
		WithQueryTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	expr := `tokenType == "number" && twice(value) > args.min && depth(path) == 2`

	query, err := NewQuery(expr, opts...)
	if err != nil {
		t.Fatalf("new query: %v", err)
	}
	matches, err := query.Select(store.Snapshot())
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := matchNames(matches); !slices.Equal(got, []string{"space.md"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
	if len(events) != store.Len() {
		t.Fatalf("expected one log event per node, got %d", len(events))
	}
	if _, ok := cache.Get(EngineExpr + ":" + expr); !ok {
		t.Fatalf("expected compiled program to be cached")
	}
}

func TestQueryMatchSingleNode(t *testing.T) {
	query, err := NewQuery(`extensions["com.example"].scale == "md"`)
	if err != nil {
		t.Fatalf("new query: %v", err)
	}
	node := Node[Meta]{ID: "space.md", Meta: TokenMeta{
		Name:       "md",
		Value:      16,
		Extensions: map[string]any{"com.example": map[string]any{"scale": "md"}},
	}}
	ok, err := query.Match(nil, node, []string{"space", "md"})
	if err != nil || !ok {
		t.Fatalf("expected match, got %v err=%v", ok, err)
	}
	if query.Engine() != EngineExpr || query.Expression() == "" {
		t.Fatalf("unexpected query metadata")
	}
}

func TestBindNode(t *testing.T) {
	binding := BindNode(Node[Meta]{ID: "g", Index: "a0", Meta: GroupMeta{Name: "g", Type: "color"}}, []string{"g"})
	if binding["kind"] != "group" || binding["tokenType"] != "color" || binding["path"] != "g" {
		t.Fatalf("unexpected group binding: %+v", binding)
	}
	for _, key := range BindingKeys {
		if _, ok := binding[key]; !ok {
			t.Fatalf("binding missing %q", key)
		}
	}
}
