package auth

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
)

const evaluatorCacheSize = 256

// evaluatorCache stores compiled go-bexpr evaluators keyed by expression
var evaluatorCache, _ = lru.New[string, *bexpr.Evaluator](evaluatorCacheSize)

// CompileFilter parses a go-bexpr expression, reusing a cached evaluator
// when the same expression was seen before.
func CompileFilter(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := evaluatorCache.Get(expr); ok {
		return cached, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	evaluatorCache.Add(expr, evaluator)
	return evaluator, nil
}

// FilterRows keeps the rows whose attributes satisfy expr. An empty expr
// keeps everything. A row whose attributes lack a referenced field is dropped.
func FilterRows[T any](expr string, rows []T, attrs func(T) map[string]any) ([]T, error) {
	if strings.TrimSpace(expr) == "" {
		return rows, nil
	}
	evaluator, err := CompileFilter(expr)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		ok, err := evaluator.Evaluate(attrs(row))
		if err != nil {
			continue
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// BexprMatchFunction returns the bexprMatch function for Casbin.
// It evaluates a policy scope against the request attributes.
func BexprMatchFunction() func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("bexprMatch requires 2 arguments: scope, attrs")
		}

		scope, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("bexprMatch: first argument must be string (scope)")
		}

		attrs, ok := args[1].(map[string]any)
		if !ok {
			return false, fmt.Errorf("bexprMatch: second argument must be map[string]any (attrs)")
		}

		return EvaluateScope(scope, attrs), nil
	}
}

// EvaluateScope evaluates a policy scope. An empty scope is unconstrained;
// an invalid scope or a failed evaluation denies.
func EvaluateScope(scope string, attrs map[string]any) bool {
	if strings.TrimSpace(scope) == "" {
		return true
	}
	evaluator, err := CompileFilter(scope)
	if err != nil {
		return false
	}
	matches, err := evaluator.Evaluate(attrs)
	if err != nil {
		return false
	}
	return matches
}
