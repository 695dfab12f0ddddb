// Package registry holds the field catalog the sanitizer matches against.
//
// A Registry is built once and never mutated afterwards, so a single value
// can be shared by every request. Confidential and keep fields live in two
// separate ordered lists: confidential detection depends on the confidential
// list alone.
package registry

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registry is an immutable, ordered collection of compiled fields.
type Registry struct {
	confidential []*Field
	keep         []*Field
	byName       map[string]*Field
}

// New compiles the given definitions into a Registry. Definition order is
// preserved within each category.
func New(defs ...FieldDefinition) (*Registry, error) {
	reg := &Registry{
		byName: make(map[string]*Field, len(defs)),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("field %d: name is required", i)
		}
		if _, exists := reg.byName[def.Name]; exists {
			return nil, fmt.Errorf("field %s: defined more than once", def.Name)
		}
		if len(def.Rules) == 0 {
			return nil, fmt.Errorf("field %s: at least one rule is required", def.Name)
		}

		field := &Field{
			Name:     def.Name,
			Category: def.Category,
			Rules:    make([]*Rule, 0, len(def.Rules)),
		}

		for j, mr := range def.Rules {
			rule, err := compileRule(mr)
			if err != nil {
				return nil, fmt.Errorf("field %s: rule %d: %w", def.Name, j, err)
			}
			field.Rules = append(field.Rules, rule)
		}

		switch def.Category {
		case Confidential:
			reg.confidential = append(reg.confidential, field)
		case Keep:
			reg.keep = append(reg.keep, field)
		default:
			return nil, fmt.Errorf("field %s: unknown category %d", def.Name, def.Category)
		}
		reg.byName[def.Name] = field
	}

	return reg, nil
}

// MustNew is New that panics on error. Used for the build-time catalog.
func MustNew(defs ...FieldDefinition) *Registry {
	reg, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return reg
}

func compileRule(mr MatchRule) (*Rule, error) {
	if mr.Pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}

	var flags string
	if mr.CaseInsensitive {
		flags += "i"
	}
	if mr.MultiLine {
		flags += "m"
	}
	expr := mr.Pattern
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	groups := re.NumSubexp()
	switch mr.Yield {
	case YieldWhole:
		if groups != 0 {
			return nil, fmt.Errorf("whole-match rule has %d capture groups", groups)
		}
	case YieldGroup:
		if groups != 1 {
			return nil, fmt.Errorf("single-group rule has %d capture groups", groups)
		}
	case YieldGroups:
		if groups < 1 {
			return nil, fmt.Errorf("multi-group rule has no capture groups")
		}
	default:
		return nil, fmt.Errorf("unknown yield %d", mr.Yield)
	}

	return &Rule{MatchRule: mr, re: re}, nil
}

// Confidential returns the confidential fields in definition order.
// Callers must not modify the returned slice.
func (r *Registry) Confidential() []*Field {
	return r.confidential
}

// Keep returns the keep fields in definition order.
// Callers must not modify the returned slice.
func (r *Registry) Keep() []*Field {
	return r.keep
}

// Fields returns the fields of one category.
func (r *Registry) Fields(c Category) []*Field {
	if c == Confidential {
		return r.confidential
	}
	return r.keep
}

// Lookup finds a field by name within a category.
func (r *Registry) Lookup(c Category, name string) (*Field, bool) {
	f, ok := r.byName[name]
	if !ok || f.Category != c {
		return nil, false
	}
	return f, true
}

// ConfidentialLabels returns the human-readable labels of every
// confidential field, in definition order.
func (r *Registry) ConfidentialLabels() []string {
	labels := make([]string, 0, len(r.confidential))
	for _, f := range r.confidential {
		labels = append(labels, Label(f.Name))
	}
	return labels
}

// Label turns a field name into its display label: underscores become
// spaces and every word is title-cased ("customer_po" -> "Customer Po").
func Label(name string) string {
	// cases.Caser is stateful, so one per call.
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}
