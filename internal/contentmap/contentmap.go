// Package contentmap implements the typed JSON traversal capability spec.md
// §9 calls for: API Patterns' ContentMapping field-paths and Discovery
// parsers' response-schema walks both need to pull a value out of an
// arbitrary JSON document by a small query string, without hand-rolling a
// recursive-descent walker per call site. Grounded on kubernaut's go.mod
// (itchyny/gojq is a direct dependency there); no non-test source file in
// the pack demonstrates its use, so the query construction here follows
// gojq's own documented API rather than an in-pack call site.
package contentmap

import (
	"context"
	"fmt"

	"github.com/itchyny/gojq"
)

// Walker compiles and caches gojq queries so repeated evaluation against
// many documents (e.g. once per candidate API Pattern) doesn't re-parse the
// query string every time.
type Walker struct {
	compiled map[string]*gojq.Code
}

func NewWalker() *Walker {
	return &Walker{compiled: make(map[string]*gojq.Code)}
}

// Walk evaluates a gojq query string (e.g. ".data.user.name", ".items[].title")
// against an arbitrary decoded JSON value (map[string]any, []any, or a
// scalar) and returns the first emitted result.
func (w *Walker) Walk(query string, input any) (any, error) {
	code, err := w.compile(query)
	if err != nil {
		return nil, err
	}

	iter := code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("contentmap: query %q failed: %w", query, err)
	}
	return v, nil
}

// WalkAll evaluates a query and collects every emitted result, for queries
// that iterate (".items[]").
func (w *Walker) WalkAll(ctx context.Context, query string, input any) ([]any, error) {
	code, err := w.compile(query)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return out, fmt.Errorf("contentmap: query %q failed: %w", query, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (w *Walker) compile(query string) (*gojq.Code, error) {
	if code, ok := w.compiled[query]; ok {
		return code, nil
	}
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("contentmap: invalid query %q: %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("contentmap: cannot compile query %q: %w", query, err)
	}
	w.compiled[query] = code
	return code, nil
}

// StringAt walks query against input and coerces the result to a string,
// the common case for ContentMapping.Title/Body field paths.
func (w *Walker) StringAt(query string, input any) (string, bool) {
	v, err := w.Walk(query, input)
	if err != nil || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
