// Package field describes mapped collection fields as seen by the facet resolver.
package field

import "sort"

// Type is the primitive engine type of a field.
type Type string

// Primitive types that can be faceted on.
const (
	Keyword Type = "keyword"
	Text    Type = "text"
	Integer Type = "integer"
	Long    Type = "long"
	Float   Type = "float"
	Boolean Type = "boolean"
	Date    Type = "date"
)

// KeywordSuffix addresses the exact-match subfield of a text field.
const KeywordSuffix = ".keyword"

var aggregatable = map[Type]bool{
	Keyword: true, Integer: true, Long: true, Float: true, Boolean: true, Date: true,
}

// Field is a mapping entry: name, primitive type and, for text, whether a
// keyword subfield exists. An empty Type means "unknown, use the name as is".
type Field struct {
	name       string
	fieldType  Type
	hasKeyword bool
}

// New creates a Field.
func New(name string, t Type, hasKeyword bool) Field {
	return Field{name: name, fieldType: t, hasKeyword: hasKeyword}
}

// Untyped creates a Field whose type is not known (explicit or inferred facets).
func Untyped(name string) Field {
	return Field{name: name}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the primitive type, empty when unknown.
func (f Field) FieldType() Type { return f.fieldType }

// HasKeyword reports whether a text field carries a keyword subfield.
func (f Field) HasKeyword() bool { return f.hasKeyword }

// Facetable reports whether terms aggregations work on this field:
// aggregatable primitives, or text backed by a keyword subfield.
func (f Field) Facetable() bool {
	if aggregatable[f.fieldType] {
		return true
	}
	return f.fieldType == Text && f.hasKeyword
}

// AggregationTarget returns the field path a terms aggregation should use.
// Only text fields are redirected to their keyword subfield.
func (f Field) AggregationTarget() string {
	if f.fieldType == Text {
		return f.name + KeywordSuffix
	}
	return f.name
}

// Catalog is the live field mapping of a collection.
type Catalog map[string]Field

// Names returns field names in lexical order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
