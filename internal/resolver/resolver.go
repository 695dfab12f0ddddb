// Package resolver picks one canonical value per fact slot from the keep
// candidates of a classification.
//
// Every selection is explicit: first-seen after normalization, largest
// numeric value, or the fixed size taxonomy. Nothing depends on map order.
package resolver

import (
	"slices"
	"strconv"
	"strings"

	"github.com/raaihank/packlist-sanitizer/internal/classifier"
	"github.com/raaihank/packlist-sanitizer/internal/registry"
)

// styleFalsePositive is produced when the style rule collides with
// carton counts.
const styleFalsePositive = "CARTON"

// SizeOrder is the garment size taxonomy. Sizes outside it sort last.
var SizeOrder = []string{"S", "S/P", "M", "M/M", "L", "L/G", "XL", "XL/TG", "XXL"}

// Resolve derives the canonical facts from keep candidates.
func Resolve(keep *classifier.Values) *Facts {
	return &Facts{
		VendorStyle:    resolveStyle(keep.Get(registry.FieldVendorStyle)),
		Colors:         resolveColors(keep.Get(registry.FieldColors)),
		Sizes:          resolveSizes(keep.Get(registry.FieldSizes)),
		TotalUnits:     largest(keep.Get(registry.FieldTotalUnits)),
		UnitsPerCarton: first(keep.Get(registry.FieldUnitsPerCarton)),
		TotalCartons:   first(keep.Get(registry.FieldTotalCartons)),
		PrepackRatio:   first(keep.Get(registry.FieldPackConfig)),
		RedactedFields: []string{},
	}
}

// ResolveInfo resolves the keep side of info and attaches the labels of
// the confidential fields that were detected. No confidential value is read.
func ResolveInfo(reg *registry.Registry, info *classifier.Info) *Facts {
	facts := Resolve(info.Keep)
	facts.RedactedFields = RedactedLabels(reg, info.Confidential)
	return facts
}

// RedactedLabels returns the labels of confidential fields with at least one
// detection, in registry order.
func RedactedLabels(reg *registry.Registry, confidential *classifier.Values) []string {
	labels := []string{}
	for _, f := range reg.Confidential() {
		if confidential.Has(f.Name) {
			labels = append(labels, registry.Label(f.Name))
		}
	}
	return labels
}

func resolveStyle(candidates []string) string {
	for _, c := range candidates {
		if !strings.EqualFold(c, styleFalsePositive) {
			return c
		}
	}
	return ""
}

// NormalizeColor collapses whitespace runs and upper-cases.
func NormalizeColor(c string) string {
	return strings.ToUpper(strings.Join(strings.Fields(c), " "))
}

func resolveColors(candidates []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		n := NormalizeColor(c)
		// two characters or fewer are rule artifacts
		if len(n) <= 2 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func sizeRank(s string) int {
	if i := slices.Index(SizeOrder, s); i >= 0 {
		return i
	}
	return len(SizeOrder)
}

func resolveSizes(candidates []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		s := strings.ToUpper(strings.TrimSpace(c))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	// stable: unknown sizes keep encounter order
	slices.SortStableFunc(out, func(a, b string) int {
		return sizeRank(a) - sizeRank(b)
	})
	return out
}

// ParseCount parses a count with optional thousands separators.
// Non-numeric input yields 0.
func ParseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// largest returns the candidate with the largest count; ties keep the
// first-seen candidate.
func largest(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	bestN := ParseCount(best)
	for _, c := range candidates[1:] {
		if n := ParseCount(c); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func first(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
