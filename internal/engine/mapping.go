package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Field types understood by the mapping builder and the facet resolver.
const (
	TypeKeyword     = "keyword"
	TypeText        = "text"
	TypeInteger     = "integer"
	TypeLong        = "long"
	TypeFloat       = "float"
	TypeBoolean     = "boolean"
	TypeDate        = "date"
	TypeNested      = "nested"
	TypeObject      = "object"
	TypeDenseVector = "dense_vector"
)

// DefaultDateFormat accepts ISO-8601 strings and epoch milliseconds.
const DefaultDateFormat = "strict_date_optional_time||epoch_millis"

// Subfield names produced by the Text options.
const (
	KeywordSubfield      = "keyword"
	AutocompleteSubfield = "autocomplete"
)

// IndexDefinition is the body of an index creation request.
type IndexDefinition struct {
	Settings map[string]any `json:"settings,omitempty"`
	Mappings Mapping        `json:"mappings"`
}

// Mapping is the mappings section of an index.
type Mapping struct {
	Dynamic    string              `json:"dynamic,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Property is one mapped field. It is used both to build mappings and to
// decode live mappings returned by the engine.
type Property struct {
	Type           string              `json:"type,omitempty"`
	Analyzer       string              `json:"analyzer,omitempty"`
	SearchAnalyzer string              `json:"search_analyzer,omitempty"`
	Format         string              `json:"format,omitempty"`
	Dims           int                 `json:"dims,omitempty"`
	Index          *bool               `json:"index,omitempty"`
	Similarity     string              `json:"similarity,omitempty"`
	IgnoreAbove    int                 `json:"ignore_above,omitempty"`
	Fields         map[string]Property `json:"fields,omitempty"`
	Properties     map[string]Property `json:"properties,omitempty"`
}

// HasSubfield reports whether the property declares a multi-field named name.
func (p Property) HasSubfield(name string) bool {
	_, ok := p.Fields[name]
	return ok
}

// Validate checks the definition for structural errors.
func (d *IndexDefinition) Validate() error {
	if d == nil {
		return errors.New("index definition is nil")
	}
	if len(d.Mappings.Properties) == 0 {
		return errors.New("mapping has no properties")
	}
	return validateProperties("", d.Mappings.Properties)
}

// Body serializes the definition for an index creation request.
func (d *IndexDefinition) Body() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal index definition: %w", err)
	}
	return b, nil
}

func validateProperties(prefix string, props map[string]Property) error {
	for name, p := range props {
		path := prefix + name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("field name is empty under %q", prefix)
		}
		if p.Type == "" && len(p.Properties) == 0 {
			return fmt.Errorf("field %q has no type", path)
		}
		if p.Type == TypeDenseVector && p.Dims <= 0 {
			return fmt.Errorf("field %q: dense_vector dims must be positive, got %d", path, p.Dims)
		}
		if err := validateProperties(path+".", p.Properties); err != nil {
			return err
		}
	}
	return nil
}

// MappingBuilder is a fluent builder for index definitions.
type MappingBuilder struct {
	settings map[string]any
	props    map[string]Property
	errs     []error
}

// NewMapping starts building an index definition.
func NewMapping() *MappingBuilder {
	return &MappingBuilder{props: make(map[string]Property)}
}

// Settings sets the index settings section.
func (b *MappingBuilder) Settings(settings map[string]any) *MappingBuilder {
	b.settings = settings
	return b
}

// TextOption customizes a text field.
type TextOption func(*Property)

// WithAnalyzer uses name at both index and search time.
func WithAnalyzer(name string) TextOption {
	return func(p *Property) {
		p.Analyzer = name
		p.SearchAnalyzer = name
	}
}

// WithKeyword adds a keyword subfield for exact match, sort and aggregation.
func WithKeyword() TextOption {
	return func(p *Property) {
		p.Fields[KeywordSubfield] = Property{Type: TypeKeyword}
	}
}

// WithAutocomplete adds an edge n-gram subfield indexed with analyzer and
// searched with searchAnalyzer.
func WithAutocomplete(analyzer, searchAnalyzer string) TextOption {
	return func(p *Property) {
		p.Fields[AutocompleteSubfield] = Property{
			Type:           TypeText,
			Analyzer:       analyzer,
			SearchAnalyzer: searchAnalyzer,
		}
	}
}

// Text adds a text field.
func (b *MappingBuilder) Text(name string, opts ...TextOption) *MappingBuilder {
	p := Property{Type: TypeText, Fields: map[string]Property{}}
	for _, opt := range opts {
		opt(&p)
	}
	if len(p.Fields) == 0 {
		p.Fields = nil
	}
	return b.add(name, p)
}

// Keyword adds keyword fields.
func (b *MappingBuilder) Keyword(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeKeyword}, names)
}

// Integer adds integer fields.
func (b *MappingBuilder) Integer(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeInteger}, names)
}

// Long adds long fields.
func (b *MappingBuilder) Long(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeLong}, names)
}

// Float adds float fields.
func (b *MappingBuilder) Float(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeFloat}, names)
}

// Boolean adds boolean fields.
func (b *MappingBuilder) Boolean(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeBoolean}, names)
}

// Date adds date fields with DefaultDateFormat.
func (b *MappingBuilder) Date(names ...string) *MappingBuilder {
	return b.addAll(Property{Type: TypeDate, Format: DefaultDateFormat}, names)
}

// DateFormat adds a date field with a custom format.
func (b *MappingBuilder) DateFormat(name, format string) *MappingBuilder {
	return b.add(name, Property{Type: TypeDate, Format: format})
}

// DenseVector adds an indexed vector field.
func (b *MappingBuilder) DenseVector(name string, dims int, similarity string) *MappingBuilder {
	indexed := true
	return b.add(name, Property{
		Type:       TypeDenseVector,
		Dims:       dims,
		Index:      &indexed,
		Similarity: similarity,
	})
}

// Nested adds a nested field whose properties come from inner.
func (b *MappingBuilder) Nested(name string, inner *MappingBuilder) *MappingBuilder {
	return b.add(name, b.compound(TypeNested, inner))
}

// Object adds an object field. inner may be nil for a dynamic object.
func (b *MappingBuilder) Object(name string, inner *MappingBuilder) *MappingBuilder {
	return b.add(name, b.compound(TypeObject, inner))
}

func (b *MappingBuilder) compound(t string, inner *MappingBuilder) Property {
	p := Property{Type: t}
	if inner != nil {
		b.errs = append(b.errs, inner.errs...)
		if len(inner.props) > 0 {
			p.Properties = inner.props
		}
	}
	return p
}

// Build validates and returns the index definition.
func (b *MappingBuilder) Build() (*IndexDefinition, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	def := &IndexDefinition{
		Settings: b.settings,
		Mappings: Mapping{Properties: b.props},
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// MustBuild calls Build and panics on error.
func (b *MappingBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

func (b *MappingBuilder) addAll(p Property, names []string) *MappingBuilder {
	for _, name := range names {
		b.add(name, p)
	}
	return b
}

func (b *MappingBuilder) add(name string, p Property) *MappingBuilder {
	if _, dup := b.props[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate field %q", name))
		return b
	}
	b.props[name] = p
	return b
}
