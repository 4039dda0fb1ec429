package enrichment

import (
	"fmt"
	"regexp"
	"strings"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
)

const (
	paragraphsPerChunk = 3
	anchorWords        = 20
	snippetRunes       = 300
	baseTypeArticle    = "article"
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// chunk is a run of consecutive paragraphs. End is inclusive.
type chunk struct {
	Start      int
	End        int
	Paragraphs []string
}

// splitParagraphs splits text on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range blankLines.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// groupParagraphs groups paragraphs into chunks of at most size.
func groupParagraphs(paragraphs []string, size int) []chunk {
	var out []chunk
	for start := 0; start < len(paragraphs); start += size {
		end := min(start+size, len(paragraphs))
		out = append(out, chunk{Start: start, End: end - 1, Paragraphs: paragraphs[start:end]})
	}
	return out
}

// chunkID is the document id of chunk n of urn.
func chunkID(urn string, n int) string {
	return fmt.Sprintf("%s::chunk-%d", urn, n)
}

// chunkText renders the text that gets embedded and served to retrieval.
func chunkText(title, language string, c chunk) string {
	return fmt.Sprintf("Article title: %s\nType: %s\nLanguage: %s\n\nContent:\n%s",
		title, baseTypeArticle, language, strings.Join(c.Paragraphs, "\n\n"))
}

// metaText renders the single chunk of a document without content.
func metaText(title, description string) string {
	return fmt.Sprintf("Article title: %s\n\n%s", title, description)
}

func anchor(paragraph string) string {
	words := strings.Fields(paragraph)
	if len(words) > anchorWords {
		words = words[:anchorWords]
	}
	return strings.Join(words, " ")
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > snippetRunes {
		r = r[:snippetRunes]
	}
	return string(r)
}

// chunkDraft is a chunk document waiting for its embedding.
type chunkDraft struct {
	doc  domdoc.Document
	text string
}

// draftChunks builds the chunk documents of source. A source without content
// yields one meta chunk built from title and description.
func draftChunks(urn string, source domdoc.Document, now string) []chunkDraft {
	title := source.String(domdoc.FieldTitle)
	language := source.String("language")
	if language == "" {
		language = "en"
	}

	base := func(n int) domdoc.Document {
		id := chunkID(urn, n)
		return domdoc.Document{
			domdoc.FieldID:     id,
			"chunk_id":         id,
			"base_urn":         urn,
			"base_type":        baseTypeArticle,
			"organization_urn": source["organization_urn"],
			"title":            title,
			"url":              source["url"],
			"section":          nil,
			"language":         language,
			"region":           source["region"],
			"created_at":       now,
			"updated_at":       now,
		}
	}

	groups := groupParagraphs(splitParagraphs(source.String(domdoc.FieldContent)), paragraphsPerChunk)
	if len(groups) == 0 {
		description := source.String(domdoc.FieldDescription)
		doc := base(0)
		text := metaText(title, description)
		doc["paragraph_start"] = 0
		doc["paragraph_end"] = 0
		doc["anchor_start"] = ""
		doc["text"] = text
		doc["snippet"] = snippet(description)
		return []chunkDraft{{doc: doc, text: text}}
	}

	drafts := make([]chunkDraft, 0, len(groups))
	for n, g := range groups {
		doc := base(n)
		text := chunkText(title, language, g)
		doc["paragraph_start"] = g.Start
		doc["paragraph_end"] = g.End
		doc["anchor_start"] = anchor(g.Paragraphs[0])
		doc["text"] = text
		doc["snippet"] = snippet(g.Paragraphs[0])
		drafts = append(drafts, chunkDraft{doc: doc, text: text})
	}
	return drafts
}
