package registry

import "regexp"

// Category partitions fields into what must never leave the process and
// what the factory document is built from.
type Category int

const (
	// Confidential fields are detected only so they can be withheld.
	Confidential Category = iota
	// Keep fields feed the canonical fact set.
	Keep
)

// String returns the category name used in logs and API responses
func (c Category) String() string {
	switch c {
	case Confidential:
		return "confidential"
	case Keep:
		return "keep"
	default:
		return "unknown"
	}
}

// Yield describes what a rule contributes per match
type Yield int

const (
	// YieldWhole records the entire match. The pattern has no capture group.
	YieldWhole Yield = iota
	// YieldGroup records the single capture group.
	YieldGroup
	// YieldGroups records every participating capture group.
	YieldGroups
)

// MatchRule is one pattern plus its match semantics
type MatchRule struct {
	Pattern         string
	CaseInsensitive bool
	MultiLine       bool
	Yield           Yield
}

// FieldDefinition binds a named field to a category and its rules
type FieldDefinition struct {
	Name     string
	Category Category
	Rules    []MatchRule
}

// Rule is a compiled MatchRule.
type Rule struct {
	MatchRule
	re *regexp.Regexp
}

// Regexp returns the compiled pattern. Compiled patterns are safe for
// concurrent use.
func (r *Rule) Regexp() *regexp.Regexp {
	return r.re
}

// Field is a compiled FieldDefinition.
type Field struct {
	Name     string
	Category Category
	Rules    []*Rule
}
