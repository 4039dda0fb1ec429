// Package filter holds filter expressions (fq) in the engine's query-string syntax.
package filter

import (
	"fmt"
	"strings"
)

// MaxExpressions is the maximum number of filter expressions per request.
const MaxExpressions = 32

// Expressions is an ordered list of filter expressions such as "region:CH" or
// "published_at:[2024-01-01 TO *]". Each one restricts the match set without
// affecting relevance.
type Expressions struct {
	items []string
}

// New trims fq, drops blank entries and enforces MaxExpressions.
func New(fq []string) (Expressions, error) {
	items := make([]string, 0, len(fq))
	for _, raw := range fq {
		if s := strings.TrimSpace(raw); s != "" {
			items = append(items, s)
		}
	}
	if len(items) > MaxExpressions {
		return Expressions{}, fmt.Errorf("too many filter expressions (max %d)", MaxExpressions)
	}
	return Expressions{items: items}, nil
}

// Items returns the expressions in request order.
func (e Expressions) Items() []string { return e.items }

// IsEmpty reports whether there are no expressions.
func (e Expressions) IsEmpty() bool { return len(e.items) == 0 }

// Fields returns the left-hand side of every "field:value" expression, split on
// the first ':' and trimmed, deduplicated in first-seen order. Expressions
// without ':' contribute nothing.
func (e Expressions) Fields() []string {
	seen := make(map[string]bool, len(e.items))
	var out []string
	for _, expr := range e.items {
		lhs, _, ok := strings.Cut(expr, ":")
		if !ok {
			continue
		}
		lhs = strings.TrimSpace(lhs)
		if lhs == "" || seen[lhs] {
			continue
		}
		seen[lhs] = true
		out = append(out, lhs)
	}
	return out
}

// Clauses renders each expression as a query_string filter clause.
func (e Expressions) Clauses() []any {
	out := make([]any, 0, len(e.items))
	for _, expr := range e.items {
		out = append(out, map[string]any{
			"query_string": map[string]any{"query": expr},
		})
	}
	return out
}
