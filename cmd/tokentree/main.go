// tokentree inspects design token documents: it prints the tree, resolves
// aliases, runs predicate queries, converts between formats, generates
// schemas and packs documents into share strings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-tokentree"
	doc "github.com/goliatone/go-tokentree/pkg/document"
)

type command struct {
	name    string
	summary string
	run     func(env *environment, args []string) error
}

type environment struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

var commands = []command{
	{name: "tree", summary: "print the node hierarchy", run: runTree},
	{name: "resolve", summary: "resolve every token, or the given dotted paths", run: runResolve},
	{name: "query", summary: "list nodes matching a predicate expression", run: runQuery},
	{name: "export", summary: "re-serialize a document as json or yaml", run: runExport},
	{name: "schema", summary: "describe the tree as OpenAPI or field descriptors", run: runSchema},
	{name: "share", summary: "encode a document as a share string, or decode one", run: runShare},
}

func main() {
	env := &environment{
		ctx:    context.Background(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	if err := dispatch(env, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(env *environment, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(env.stderr)
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(env, args[1:])
		}
	}
	printUsage(env.stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tokentree <command> [flags] FILE")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
}

// inputFlags are shared by every command reading a token document.
type inputFlags struct {
	format  string
	verbose bool
}

func (f *inputFlags) add(set *pflag.FlagSet) {
	set.StringVarP(&f.format, "input-format", "i", "", "input format: json, jsonc or yaml (default: from extension)")
	set.BoolVarP(&f.verbose, "verbose", "v", false, "log store activity to stderr")
}

func newFlagSet(env *environment, name, usage string) *pflag.FlagSet {
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	set.SetOutput(env.stderr)
	set.Usage = func() {
		fmt.Fprintf(env.stderr, "Usage: tokentree %s %s\n\nFlags:\n", name, usage)
		set.PrintDefaults()
	}
	return set
}

func parseFlags(set *pflag.FlagSet, args []string) (bool, error) {
	if err := set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// loadTree parses path into a fresh store. Entry errors are reported as
// warnings; the valid part of the document is still loaded.
func loadTree(env *environment, path string, flags inputFlags) (*tokentree.Store[tokentree.Meta], error) {
	format := doc.DetectFormat(path)
	if flags.format != "" {
		parsed, err := doc.ParseFormat(flags.format)
		if err != nil {
			return nil, err
		}
		format = parsed
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result, err := doc.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, entryErr := range result.Errors {
		env.logger.Warn("skipped document entry", "file", path, "error", entryErr)
	}

	opts := []tokentree.Option{}
	if flags.verbose {
		opts = append(opts, tokentree.WithLogger(tokentree.NewSlogLogger(
			slog.New(slog.NewTextHandler(env.stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		)))
	}
	store := tokentree.NewStore[tokentree.Meta](opts...)
	if err := doc.Load(env.ctx, store, result); err != nil {
		return nil, err
	}
	return store, nil
}

func singleFile(set *pflag.FlagSet) (string, error) {
	if set.NArg() < 1 {
		set.Usage()
		return "", fmt.Errorf("missing document path")
	}
	return set.Arg(0), nil
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return strings.TrimSpace(string(encoded))
	}
}
