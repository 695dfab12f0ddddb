// Package render turns verified facts into the factory packing instructions.
// Renderers only ever see resolver.Facts; no document text reaches them.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

// DefaultFactory is printed when no factory was assigned.
const DefaultFactory = "As Assigned"

// NoneDetected replaces the redaction list when nothing was withheld.
const NoneDetected = "None detected"

// ErrUnknownFormat is returned by ForFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// Document is the input of a renderer
type Document struct {
	InternalPO  string
	FactoryName string
	CompanyName string
	GeneratedAt time.Time
	Facts       *resolver.Facts
}

// Factory returns the factory name or DefaultFactory.
func (d Document) Factory() string {
	if strings.TrimSpace(d.FactoryName) == "" {
		return DefaultFactory
	}
	return d.FactoryName
}

// CartonMarking is the reference printed on every carton.
func (d Document) CartonMarking() string {
	return "PO# " + d.InternalPO
}

// RedactionNotice lists the withheld field labels.
func (d Document) RedactionNotice() string {
	if len(d.Facts.RedactedFields) == 0 {
		return NoneDetected
	}
	return strings.Join(d.Facts.RedactedFields, ", ")
}

// Renderer produces one artifact format
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for "html" or "xlsx". Empty selects html.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "html":
		return HTML{}, nil
	case "xlsx":
		return XLSX{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Filename is the download name of an artifact for internalPO.
func Filename(internalPO, id string, r Renderer) string {
	return fmt.Sprintf("factory_packing_%s_%s.%s", safeName(internalPO), id, r.Extension())
}

func safeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "po"
	}
	return b.String()
}

func display(v string) string {
	return resolver.Display(v)
}
