package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/factory.html
var templateFS embed.FS

var factoryTemplate = template.Must(
	template.New("factory.html").
		Funcs(template.FuncMap{"display": display}).
		ParseFS(templateFS, "templates/factory.html"),
)

// HTML renders a printable HTML page
type HTML struct{}

func (HTML) ContentType() string { return "text/html; charset=utf-8" }
func (HTML) Extension() string   { return "html" }

// Render executes the factory template
func (HTML) Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := factoryTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
