package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-tokentree"
	doc "github.com/goliatone/go-tokentree/pkg/document"
	"github.com/goliatone/go-tokentree/pkg/schema"
	"github.com/goliatone/go-tokentree/pkg/state"
)

func runTree(env *environment, args []string) error {
	var flags inputFlags
	set := newFlagSet(env, "tree", "[flags] FILE")
	flags.add(set)
	if ok, err := parseFlags(set, args); !ok {
		return err
	}
	path, err := singleFile(set)
	if err != nil {
		return err
	}
	store, err := loadTree(env, path, flags)
	if err != nil {
		return err
	}
	printChildren(env, store, tokentree.RootID, 0)
	return nil
}

func printChildren(env *environment, store *tokentree.Store[tokentree.Meta], parentID string, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, node := range store.GetChildren(parentID) {
		if token, ok := tokentree.AsToken(node.Meta); ok {
			detail := formatValue(token.Value)
			if token.IsAlias() {
				detail = "-> " + token.Extends
			}
			fmt.Fprintf(env.stdout, "%s%s = %s\n", indent, token.Name, detail)
			continue
		}
		fmt.Fprintf(env.stdout, "%s%s/\n", indent, node.Meta.MetaName())
		printChildren(env, store, node.ID, depth+1)
	}
}

func runResolve(env *environment, args []string) error {
	var flags inputFlags
	var trace bool
	set := newFlagSet(env, "resolve", "[flags] FILE [PATH...]")
	flags.add(set)
	set.BoolVar(&trace, "trace", false, "print the alias chain of each resolved path as JSON")
	if ok, err := parseFlags(set, args); !ok {
		return err
	}
	path, err := singleFile(set)
	if err != nil {
		return err
	}
	store, err := loadTree(env, path, flags)
	if err != nil {
		return err
	}

	if set.NArg() == 1 {
		failed := 0
		for _, result := range tokentree.NewResolver(store).ResolveAll() {
			if result.Err != nil {
				failed++
				fmt.Fprintf(env.stdout, "%s ! %v\n", result.Name(), result.Err)
				continue
			}
			fmt.Fprintf(env.stdout, "%s = %s\n", result.Name(), formatValue(result.Value.Value))
		}
		if failed > 0 {
			return fmt.Errorf("%d token(s) failed to resolve", failed)
		}
		return nil
	}

	for _, dotted := range set.Args()[1:] {
		probe := tokentree.TokenMeta{Name: dotted, Extends: tokentree.FormatReference(strings.Split(dotted, ".")...)}
		resolved, steps, err := tokentree.ResolveWithTrace(probe, store)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.stdout, "%s = %s\n", dotted, formatValue(resolved.Value))
		if trace {
			payload, err := steps.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "%s\n", payload)
		}
	}
	return nil
}

func runQuery(env *environment, args []string) error {
	var flags inputFlags
	var engine string
	var resolved bool
	set := newFlagSet(env, "query", "[flags] FILE EXPRESSION")
	flags.add(set)
	set.StringVarP(&engine, "engine", "e", tokentree.EngineExpr, "predicate engine: expr, cel or js")
	set.BoolVar(&resolved, "resolved", false, "bind each token's resolved value as `resolved`")
	if ok, err := parseFlags(set, args); !ok {
		return err
	}
	if set.NArg() != 2 {
		set.Usage()
		return fmt.Errorf("expected FILE and EXPRESSION")
	}
	store, err := loadTree(env, set.Arg(0), flags)
	if err != nil {
		return err
	}

	opts := []tokentree.QueryOption{
		tokentree.WithEngine(engine),
		tokentree.WithFunctionRegistry(tokentree.TokenFunctions()),
		tokentree.WithEvaluatorLogger(tokentree.EvaluatorLoggerFromLogger(tokentree.NewSlogLogger(env.logger))),
	}
	if resolved {
		opts = append(opts, tokentree.WithResolvedValues())
	}
	matches, err := tokentree.Select(store, set.Arg(1), opts...)
	if err != nil {
		return err
	}
	for _, match := range matches {
		fmt.Fprintln(env.stdout, match.Name())
	}
	return nil
}

func runExport(env *environment, args []string) error {
	var flags inputFlags
	var format, out string
	set := newFlagSet(env, "export", "[flags] FILE")
	flags.add(set)
	set.StringVarP(&format, "format", "f", string(doc.FormatJSON), "output format: json or yaml")
	set.StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	if ok, err := parseFlags(set, args); !ok {
		return err
	}
	path, err := singleFile(set)
	if err != nil {
		return err
	}
	outFormat, err := doc.ParseFormat(format)
	if err != nil {
		return err
	}
	store, err := loadTree(env, path, flags)
	if err != nil {
		return err
	}
	data, err := doc.Serialize(store, outFormat)
	if err != nil {
		return err
	}
	return writeOutput(env, out, data)
}

func runSchema(env *environment, args []string) error {
	var flags inputFlags
	var format, title string
	set := newFlagSet(env, "schema", "[flags] FILE")
	flags.add(set)
	set.StringVarP(&format, "format", "f", string(schema.FormatOpenAPI), "schema format: openapi or descriptors")
	set.StringVar(&title, "title", "", "OpenAPI info title")
	if ok, err := parseFlags(set, args); !ok {
		return err
	}
	path, err := singleFile(set)
	if err != nil {
		return err
	}
	store, err := loadTree(env, path, flags)
	if err != nil {
		return err
	}
	generated, err := schema.Generate(store, schema.WithFormat(schema.Format(format)), schema.WithInfo(title, "", ""))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(generated.Document, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(env, "", append(data, '\n'))
}

func runShare(env *environment, args []string) error {
	var flags inputFlags
	var decode, format string
	set := newFlagSet(env, "share", "[flags] FILE | --decode STRING")
	flags.add(set)
	set.StringVar(&decode, "decode", "", "decode a share string and print it as a document")
	set.StringVarP(&format, "format", "f", string(doc.FormatJSON), "output format for --decode: json or yaml")
	if ok, err := parseFlags(set, args); !ok {
		return err
	}

	if decode != "" {
		outFormat, err := doc.ParseFormat(format)
		if err != nil {
			return err
		}
		shared, err := state.ParseShareString(strings.TrimSpace(decode))
		if err != nil {
			return err
		}
		tree := tokentree.NewStore[tokentree.Meta]()
		if err := state.Apply(env.ctx, tree, shared); err != nil {
			return err
		}
		data, err := doc.Serialize(tree, outFormat)
		if err != nil {
			return err
		}
		return writeOutput(env, "", data)
	}

	path, err := singleFile(set)
	if err != nil {
		return err
	}
	store, err := loadTree(env, path, flags)
	if err != nil {
		return err
	}
	snapshot, err := state.FromSnapshot(store.Snapshot())
	if err != nil {
		return err
	}
	encoded, err := state.ShareString(snapshot)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, encoded)
	return nil
}

func writeOutput(env *environment, path string, data []byte) error {
	if path == "" {
		_, err := env.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
