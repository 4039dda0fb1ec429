// Package sortspec parses compact sort directives such as "title desc, created_at".
package sortspec

import "strings"

// Direction is a sort order.
type Direction string

const (
	// Asc sorts ascending (the default).
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// ScoreField is the engine's relevance pseudo-field.
const ScoreField = "_score"

const keywordSuffix = ".keyword"

var relevanceAliases = map[string]bool{"relevance": true, "score": true, ScoreField: true}

// Directive is one (field, direction) pair.
type Directive struct {
	Field     string
	Direction Direction
}

// Parse tokenizes s on commas and whitespace. A field token is followed by an
// optional asc/desc token (case-insensitive); anything else starts a new field
// sorted asc. Parse never fails: "title ascending" yields two asc fields,
// "title" and "ascending".
func Parse(s string) []Directive {
	tokens := strings.Fields(strings.ReplaceAll(s, ",", " "))
	out := make([]Directive, 0, len(tokens))

	for i := 0; i < len(tokens); {
		d := Directive{Field: tokens[i], Direction: Asc}
		if i+1 < len(tokens) {
			if dir, ok := direction(tokens[i+1]); ok {
				d.Direction = dir
				i += 2
				out = append(out, d)
				continue
			}
		}
		i++
		out = append(out, d)
	}
	return out
}

func direction(tok string) (Direction, bool) {
	switch strings.ToLower(tok) {
	case string(Asc):
		return Asc, true
	case string(Desc):
		return Desc, true
	}
	return "", false
}

// IsRelevance reports whether the field names the relevance score.
func (d Directive) IsRelevance() bool {
	return relevanceAliases[strings.ToLower(d.Field)]
}

// Clause renders the directive as an engine sort clause. Relevance always sorts desc.
func (d Directive) Clause() map[string]any {
	if d.IsRelevance() {
		return map[string]any{ScoreField: map[string]any{"order": string(Desc)}}
	}
	return map[string]any{d.Field: map[string]any{"order": string(d.Direction)}}
}

// Clauses renders directives in order.
func Clauses(ds []Directive) []any {
	out := make([]any, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Clause())
	}
	return out
}

// KeywordFallback points every sortable field at its keyword subfield.
// Relevance, underscore-prefixed and already-keyword fields are left alone.
func KeywordFallback(ds []Directive) []Directive {
	out := make([]Directive, len(ds))
	for i, d := range ds {
		if !d.IsRelevance() && !strings.HasPrefix(d.Field, "_") && !strings.HasSuffix(d.Field, keywordSuffix) {
			d.Field += keywordSuffix
		}
		out[i] = d
	}
	return out
}

// SuspectDirections returns fields that look like misspelled directions
// ("ascending", "des"), which Parse treated as field names.
func SuspectDirections(ds []Directive) []string {
	var out []string
	for i, d := range ds {
		if i == 0 {
			continue
		}
		f := strings.ToLower(d.Field)
		if len(f) < 3 {
			continue
		}
		if strings.HasPrefix("ascending", f) || strings.HasPrefix("descending", f) {
			out = append(out, d.Field)
		}
	}
	return out
}
