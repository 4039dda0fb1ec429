// Package patch implements the merge-on-update contract for documents.
package patch

import "github.com/kailas-cloud/docsearch/internal/domain/document"

// Apply merges partial over existing and returns a new document.
// Precedence: partial wins on every top-level key it carries, including
// explicit nulls. Nested objects are replaced, not merged. Neither input is modified.
func Apply(existing, partial document.Document) document.Document {
	merged := make(document.Document, len(existing)+len(partial))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}
