package sortspec

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want []Directive
	}{
		{"title desc, created_at", []Directive{{"title", Desc}, {"created_at", Asc}}},
		{"title DESC", []Directive{{"title", Desc}}},
		{"a,b,c", []Directive{{"a", Asc}, {"b", Asc}, {"c", Asc}}},
		{"  a   Asc ,, b desc ", []Directive{{"a", Asc}, {"b", Desc}}},
		{"title ascending", []Directive{{"title", Asc}, {"ascending", Asc}}},
		{"title asc desc", []Directive{{"title", Asc}, {"desc", Asc}}},
		{"score", []Directive{{"score", Asc}}},
		{"", []Directive{}},
		{" , ", []Directive{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Parse(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClause_Relevance(t *testing.T) {
	want := map[string]any{"_score": map[string]any{"order": "desc"}}
	for _, f := range []string{"relevance", "score", "_score", "Score", "RELEVANCE"} {
		d := Directive{Field: f, Direction: Asc}
		if got := d.Clause(); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: Clause() = %v, want %v", f, got, want)
		}
	}
}

func TestClauses(t *testing.T) {
	got := Clauses(Parse("title desc, created_at"))
	want := []any{
		map[string]any{"title": map[string]any{"order": "desc"}},
		map[string]any{"created_at": map[string]any{"order": "asc"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Clauses() = %v, want %v", got, want)
	}
}

func TestKeywordFallback(t *testing.T) {
	in := []Directive{
		{"title", Desc},
		{"score", Asc},
		{"_id", Asc},
		{"name.keyword", Asc},
		{"created_at", Asc},
	}
	want := []Directive{
		{"title.keyword", Desc},
		{"score", Asc},
		{"_id", Asc},
		{"name.keyword", Asc},
		{"created_at.keyword", Asc},
	}
	got := KeywordFallback(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeywordFallback() = %v, want %v", got, want)
	}
	if in[0].Field != "title" {
		t.Error("input must not be modified")
	}
}

func TestSuspectDirections(t *testing.T) {
	got := SuspectDirections(Parse("title ascending, created_at des, description, title asc desc"))
	want := []string{"ascending", "des", "desc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuspectDirections() = %v, want %v", got, want)
	}
	if got := SuspectDirections(Parse("description desc")); got != nil {
		t.Errorf("leading field should never be suspect, got %v", got)
	}
}
