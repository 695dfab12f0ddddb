package classifier

import "github.com/raaihank/packlist-sanitizer/internal/registry"

// MatchResult is one rule application result. It is either a ScalarMatch
// or a GroupMatch.
type MatchResult interface {
	isMatchResult()
}

// ScalarMatch is the whole match or the single capture group of a rule.
type ScalarMatch struct {
	Value string
}

// Group is one optional capture group. Matched is false when the group did
// not take part in the match.
type Group struct {
	Value   string
	Matched bool
}

// GroupMatch carries every capture group of a multi-group rule.
type GroupMatch struct {
	Groups []Group
}

func (ScalarMatch) isMatchResult() {}
func (GroupMatch) isMatchResult()  {}

// apply runs a compiled rule over text and returns its results in match order.
func apply(rule *registry.Rule, text string) []MatchResult {
	re := rule.Regexp()

	switch rule.Yield {
	case registry.YieldWhole:
		found := re.FindAllString(text, -1)
		results := make([]MatchResult, 0, len(found))
		for _, m := range found {
			results = append(results, ScalarMatch{Value: m})
		}
		return results

	case registry.YieldGroup:
		found := re.FindAllStringSubmatch(text, -1)
		results := make([]MatchResult, 0, len(found))
		for _, m := range found {
			results = append(results, ScalarMatch{Value: m[1]})
		}
		return results

	default:
		found := re.FindAllStringSubmatchIndex(text, -1)
		results := make([]MatchResult, 0, len(found))
		for _, loc := range found {
			groups := make([]Group, 0, len(loc)/2-1)
			for i := 2; i+1 < len(loc); i += 2 {
				if loc[i] < 0 {
					groups = append(groups, Group{})
					continue
				}
				groups = append(groups, Group{Value: text[loc[i]:loc[i+1]], Matched: true})
			}
			results = append(results, GroupMatch{Groups: groups})
		}
		return results
	}
}

// keepCandidates flattens a result into keep-field candidates: every
// matched, non-empty group becomes its own candidate.
func keepCandidates(res MatchResult) []string {
	switch m := res.(type) {
	case ScalarMatch:
		if m.Value == "" {
			return nil
		}
		return []string{m.Value}
	case GroupMatch:
		out := make([]string, 0, len(m.Groups))
		for _, g := range m.Groups {
			if g.Matched && g.Value != "" {
				out = append(out, g.Value)
			}
		}
		return out
	}
	return nil
}

// confidentialCandidates records the scalar value or the first participating
// group of a multi-group rule.
func confidentialCandidates(res MatchResult) []string {
	switch m := res.(type) {
	case ScalarMatch:
		if m.Value == "" {
			return nil
		}
		return []string{m.Value}
	case GroupMatch:
		for _, g := range m.Groups {
			if g.Matched && g.Value != "" {
				return []string{g.Value}
			}
		}
	}
	return nil
}
