// Package classifier partitions document text into confidential and keep
// candidates using a registry.
package classifier

import "github.com/raaihank/packlist-sanitizer/internal/registry"

// Info is the classification of one document. A field name never appears
// in both mappings.
type Info struct {
	Confidential *Values
	Keep         *Values
}

// Classifier runs registry rules over text. It holds no mutable state and
// may be shared between goroutines.
type Classifier struct {
	registry *registry.Registry
}

// New creates a Classifier bound to reg.
func New(reg *registry.Registry) *Classifier {
	return &Classifier{registry: reg}
}

// Classify applies every confidential and keep rule to the full text.
// Fields without matches are absent from the result.
func (c *Classifier) Classify(text string) *Info {
	return &Info{
		Confidential: c.collect(c.registry.Confidential(), text, confidentialCandidates),
		Keep:         c.collect(c.registry.Keep(), text, keepCandidates),
	}
}

// Matches returns the raw results of every rule of one field, before
// flattening or deduplication.
func (c *Classifier) Matches(field *registry.Field, text string) []MatchResult {
	var out []MatchResult
	for _, rule := range field.Rules {
		out = append(out, apply(rule, text)...)
	}
	return out
}

func (c *Classifier) collect(fields []*registry.Field, text string, flatten func(MatchResult) []string) *Values {
	values := NewValues()
	for _, field := range fields {
		for _, res := range c.Matches(field, text) {
			for _, candidate := range flatten(res) {
				values.Add(field.Name, candidate)
			}
		}
	}
	return values
}
