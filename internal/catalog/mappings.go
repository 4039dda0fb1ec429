package catalog

import "github.com/kailas-cloud/docsearch/internal/engine"

var analyzed = engine.WithAnalyzer(AnalyzerDefault)

// title adds a display field: analyzed text plus keyword and autocomplete subfields.
func title(b *engine.MappingBuilder, name string) *engine.MappingBuilder {
	return b.Text(name, analyzed, engine.WithKeyword(),
		engine.WithAutocomplete(AnalyzerAutocomplete, AnalyzerDefault))
}

func prose(b *engine.MappingBuilder, names ...string) *engine.MappingBuilder {
	for _, n := range names {
		b.Text(n, analyzed)
	}
	return b
}

func embedding(b *engine.MappingBuilder, dims int) *engine.MappingBuilder {
	return b.DenseVector("embedding", dims, VectorSimilarity)
}

func nestedArtifacts() *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "id", "file_url", "file_type", "type").
		Long("file_size").
		Date("created_at", "updated_at")
	return prose(b, "title", "description")
}

func recipes(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "tags").
		Date("created_at", "updated_at").
		Nested("ingredients", engine.NewMapping().
			Text("name", analyzed, engine.WithKeyword()).
			Text("quantity"))
	title(b, "title")
	prose(b, "description", "instructions")
	return embedding(b, dims)
}

func artifacts(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("id", "urn", "parent_urn", "type", "creator", "language",
			"file_url", "file_s3_url", "file_type").
		Long("file_size").
		Date("created_at", "updated_at").
		Text("title", analyzed, engine.WithKeyword())
	prose(b, "description", "content")
	return embedding(b, dims)
}

func guides(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "id", "creator", "organization_urn", "tags", "status", "url",
			"license", "region", "language", "topic", "audience", "type").
		Date("created_at", "updated_at", "publication_date").
		Nested("artifacts", nestedArtifacts())
	title(b, "title")
	prose(b, "description", "content")
	return embedding(b, dims)
}

func articles(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "id", "tags", "status", "creator", "url", "license", "region",
			"language", "external_id", "category", "type", "authors", "organization_urn",
			"venue", "ai_generated_fields").
		Date("created_at", "updated_at").
		DateFormat("publication_year", "yyyy||"+engine.DefaultDateFormat).
		Nested("artifacts", nestedArtifacts())
	title(b, "title")
	prose(b, "description", "abstract", "content")
	return embedding(b, dims)
}

func organizations(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "id", "industry", "image_url", "location", "tags", "url",
			"contact_email", "status", "type").
		Date("created_at", "updated_at")
	title(b, "name")
	prose(b, "description")
	return embedding(b, dims)
}

func persons(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "role", "organization", "image_url", "tags")
	title(b, "name")
	prose(b, "bio")
	return embedding(b, dims)
}

func fctables(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("urn", "category", "language", "region", "tags").
		Nested("nutritional_mappings", engine.NewMapping().
			Text("name", analyzed, engine.WithKeyword()).
			Keyword("serving_size").
			Float("amount", "calories", "protein", "carbs", "fat", "fiber", "sugar", "sodium").
			Object("vitamins", nil))
	title(b, "title")
	prose(b, "description")
	return embedding(b, dims)
}

func ragChunks(dims int) *engine.MappingBuilder {
	b := engine.NewMapping().
		Keyword("chunk_id", "base_urn", "base_type", "organization_urn", "url", "language", "region").
		Integer("paragraph_start", "paragraph_end").
		Date("created_at", "updated_at").
		Text("title", analyzed, engine.WithKeyword())
	prose(b, "section", "anchor_start", "text", "snippet")
	return embedding(b, dims)
}
