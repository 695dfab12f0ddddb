package sanitizer

import (
	"github.com/raaihank/packlist-sanitizer/internal/registry"
	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

// Finding summarizes the detections of one field. It never carries values.
type Finding struct {
	Field    string            `json:"field"`
	Label    string            `json:"label"`
	Category registry.Category `json:"-"`
	Kind     string            `json:"category"`
	Count    int               `json:"count"`
}

// Result is everything that may leave the engine for one document.
type Result struct {
	Facts    *resolver.Facts `json:"facts"`
	Redacted []string        `json:"redacted"`
	Kept     []string        `json:"kept"`
	Findings []Finding       `json:"findings"`
}

// ConfidentialFindings returns the findings of confidential fields only.
func (r *Result) ConfidentialFindings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == registry.Confidential {
			out = append(out, f)
		}
	}
	return out
}
