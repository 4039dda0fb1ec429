// Package catalog defines the known collections and their index mappings.
package catalog

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// Collection names.
const (
	Recipes       = "recipes"
	Guides        = "guides"
	Artifacts     = "artifacts"
	Articles      = "articles"
	Organizations = "organizations"
	Persons       = "persons"
	FCTables      = "fctables"
	RAGChunks     = "rag_chunks"
)

// Analyzer names declared in Settings.
const (
	AnalyzerDefault      = "default_text"
	AnalyzerAutocomplete = "autocomplete"
)

// VectorSimilarity is the similarity used by every embedding field.
const VectorSimilarity = "cosine"

// Catalog builds index definitions for the known collections.
type Catalog struct {
	dims     int
	builders map[string]func(dims int) *engine.MappingBuilder
}

// New creates a catalog whose embedding fields have dims dimensions.
func New(dims int) *Catalog {
	return &Catalog{
		dims: dims,
		builders: map[string]func(int) *engine.MappingBuilder{
			Recipes:       recipes,
			Guides:        guides,
			Artifacts:     artifacts,
			Articles:      articles,
			Organizations: organizations,
			Persons:       persons,
			FCTables:      fctables,
			RAGChunks:     ragChunks,
		},
	}
}

// Names returns the known collections in bootstrap order.
func (c *Catalog) Names() []string {
	return []string{Recipes, Guides, Artifacts, Articles, Organizations, Persons, FCTables, RAGChunks}
}

// Has reports whether name is a known collection.
func (c *Catalog) Has(name string) bool {
	_, ok := c.builders[name]
	return ok
}

// Definition returns the mapping and settings for collection name.
func (c *Catalog) Definition(name string) (*engine.IndexDefinition, error) {
	build, ok := c.builders[name]
	if !ok {
		known := make([]string, 0, len(c.builders))
		for n := range c.builders {
			known = append(known, n)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown collection %q (known: %v)", name, known)
	}
	def, err := build(c.dims).Settings(Settings()).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s mapping: %w", name, err)
	}
	return def, nil
}

// Settings returns the shared analysis settings.
func Settings() map[string]any {
	return map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				AnalyzerDefault: map[string]any{
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "asciifolding"},
				},
				AnalyzerAutocomplete: map[string]any{
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "asciifolding", "edge_ngram_filter"},
				},
			},
			"filter": map[string]any{
				"edge_ngram_filter": map[string]any{
					"type":     "edge_ngram",
					"min_gram": 2,
					"max_gram": 20,
				},
			},
		},
	}
}
