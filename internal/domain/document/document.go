// Package document models the opaque JSON records stored in collections.
package document

import (
	"fmt"
	"strings"
)

// System and well-known field names.
const (
	FieldURN               = "urn"
	FieldID                = "id"
	FieldCreatedAt         = "created_at"
	FieldUpdatedAt         = "updated_at"
	FieldStatus            = "status"
	FieldEmbedding         = "embedding"
	FieldEmbeddedAt        = "embedded_at"
	FieldEnhancements      = "enhancements"
	FieldAIGeneratedFields = "ai_generated_fields"
	FieldTitle             = "title"
	FieldAbstract          = "abstract"
	FieldContent           = "content"
	FieldDescription       = "description"
)

// StatusDeleted marks soft-deleted documents hidden from list and fetch.
const StatusDeleted = "deleted"

// embeddingSources are concatenated, in order, to form the text embedded for a document.
var embeddingSources = []string{FieldTitle, FieldAbstract, FieldContent}

// Document is a JSON-like record. Values are whatever the engine returned.
type Document map[string]any

// Key returns the unique key: urn, falling back to id.
func (d Document) Key() (string, bool) {
	for _, name := range []string{FieldURN, FieldID} {
		if s := d.String(name); s != "" {
			return s, true
		}
	}
	return "", false
}

// String returns field name rendered as a string, empty when absent or nil.
func (d Document) String(name string) string {
	v, ok := d[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IsSystemOnly reports whether the key set is exactly {updated_at, urn}.
// Such partial updates carry no content and are skipped.
func (d Document) IsSystemOnly() bool {
	if len(d) != 2 {
		return false
	}
	_, hasURN := d[FieldURN]
	_, hasUpdated := d[FieldUpdatedAt]
	return hasURN && hasUpdated
}

// EmbeddingText joins title, abstract and content (skipping empty parts) with newlines.
func (d Document) EmbeddingText() string {
	parts := make([]string, 0, len(embeddingSources))
	for _, name := range embeddingSources {
		if s := d.String(name); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// TouchesEmbeddingText reports whether any of fields feeds EmbeddingText.
func TouchesEmbeddingText(fields []string) bool {
	for _, f := range fields {
		for _, src := range embeddingSources {
			if f == src {
				return true
			}
		}
	}
	return false
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
