package templates

import (
	"bytes"
	"fmt"
	"text/template"
)

// Renderer renders small text templates for outbound messaging.
type Renderer struct{}

// Render compiles the provided template text with strict missing-key semantics.
func (Renderer) Render(name, tmpl string, data any) (string, error) {
	t, err := parse(name, tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func parse(name, tmpl string) (*template.Template, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("templates: template text required for %s", name)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", name, err)
	}
	return t, nil
}
