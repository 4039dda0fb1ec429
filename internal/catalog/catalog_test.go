package catalog

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

func TestDefinition_AllCollectionsBuild(t *testing.T) {
	c := New(384)
	for _, name := range c.Names() {
		t.Run(name, func(t *testing.T) {
			def, err := c.Definition(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			vec := def.Mappings.Properties["embedding"]
			if vec.Type != engine.TypeDenseVector || vec.Dims != 384 || vec.Similarity != "cosine" {
				t.Errorf("embedding = %+v", vec)
			}
			if def.Settings["analysis"] == nil {
				t.Error("settings should declare analysis")
			}
		})
	}
}

func TestDefinition_TitleSubfields(t *testing.T) {
	def, err := New(8).Definition(Articles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	title := def.Mappings.Properties["title"]
	if title.Type != engine.TypeText || title.Analyzer != AnalyzerDefault {
		t.Errorf("title = %+v", title)
	}
	if !title.HasSubfield(engine.KeywordSubfield) || !title.HasSubfield(engine.AutocompleteSubfield) {
		t.Errorf("title subfields = %v", title.Fields)
	}
	if def.Mappings.Properties["description"].HasSubfield(engine.KeywordSubfield) {
		t.Error("description must not have a keyword subfield")
	}
	if got := def.Mappings.Properties["created_at"].Format; got != engine.DefaultDateFormat {
		t.Errorf("created_at format = %q", got)
	}
	if def.Mappings.Properties["artifacts"].Type != engine.TypeNested {
		t.Error("artifacts should be nested")
	}
}

func TestDefinition_NamesUseNameField(t *testing.T) {
	c := New(8)
	for _, name := range []string{Organizations, Persons} {
		def, err := c.Definition(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !def.Mappings.Properties["name"].HasSubfield(engine.AutocompleteSubfield) {
			t.Errorf("%s.name should have autocomplete", name)
		}
	}
}

func TestDefinition_Unknown(t *testing.T) {
	c := New(8)
	_, err := c.Definition("widgets")
	if err == nil || !strings.Contains(err.Error(), `unknown collection "widgets"`) {
		t.Fatalf("error = %v", err)
	}
	if c.Has("widgets") || !c.Has(RAGChunks) {
		t.Error("Has() mismatch")
	}
}

func TestSettings_EdgeNGram(t *testing.T) {
	analysis := Settings()["analysis"].(map[string]any)
	ngram := analysis["filter"].(map[string]any)["edge_ngram_filter"].(map[string]any)
	if ngram["min_gram"] != 2 || ngram["max_gram"] != 20 {
		t.Errorf("edge_ngram_filter = %v", ngram)
	}
}
