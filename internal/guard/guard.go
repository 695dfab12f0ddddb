// Package guard verifies that a resolved fact set carries nothing that
// looks confidential before it reaches presentation.
//
// The check is independent of the classifier and resolver: every fact
// string is re-matched against every confidential rule, and every fact
// string and redacted label is scanned for the confidential values that
// were detected in the source document.
package guard

import (
	"strings"

	"github.com/raaihank/packlist-sanitizer/internal/classifier"
	"github.com/raaihank/packlist-sanitizer/internal/registry"
	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

// Detected values shorter than this are ignored by the containment check;
// they identify nothing and collide with size tokens.
const minContainmentLen = 3

// Guard holds the confidential rule set. Safe for concurrent use.
type Guard struct {
	registry *registry.Registry
	labels   map[string]struct{}
}

// New creates a Guard over the confidential fields of reg.
func New(reg *registry.Registry) *Guard {
	labels := make(map[string]struct{}, len(reg.Confidential()))
	for _, l := range reg.ConfidentialLabels() {
		labels[l] = struct{}{}
	}
	return &Guard{registry: reg, labels: labels}
}

// Verify returns facts unchanged when nothing leaks, otherwise a
// *LeakageError. confidential may be nil when only rule checks are wanted.
func (g *Guard) Verify(facts *resolver.Facts, confidential *classifier.Values) (*resolver.Facts, error) {
	for _, sv := range facts.Values() {
		if err := g.checkRules(sv); err != nil {
			return nil, err
		}
		if err := g.checkContainment(sv, confidential); err != nil {
			return nil, err
		}
	}

	for _, label := range facts.RedactedFields {
		sv := resolver.SlotValue{Slot: resolver.SlotRedactedField, Value: label}
		// Registry labels are build-time constants, not document text. The
		// customer name rule matches its own "Customer ..." labels, so only
		// labels outside the registry go through the rule check.
		if _, known := g.labels[label]; !known {
			if err := g.checkRules(sv); err != nil {
				return nil, err
			}
		}
		if err := g.checkContainment(sv, confidential); err != nil {
			return nil, err
		}
	}

	return facts, nil
}

func (g *Guard) checkRules(sv resolver.SlotValue) error {
	for _, field := range g.registry.Confidential() {
		for _, rule := range field.Rules {
			if rule.Regexp().MatchString(sv.Value) {
				return &LeakageError{
					Slot:  sv.Slot,
					Field: field.Name,
					Rule:  rule.Pattern,
					Value: sv.Value,
				}
			}
		}
	}
	return nil
}

func (g *Guard) checkContainment(sv resolver.SlotValue, confidential *classifier.Values) error {
	if confidential == nil {
		return nil
	}
	upper := strings.ToUpper(sv.Value)
	for _, field := range confidential.Fields() {
		for _, v := range confidential.Get(field) {
			needle := strings.ToUpper(strings.TrimSpace(v))
			if len(needle) < minContainmentLen {
				continue
			}
			if strings.Contains(upper, needle) {
				return &LeakageError{
					Slot:  sv.Slot,
					Field: field,
					Value: sv.Value,
				}
			}
		}
	}
	return nil
}
