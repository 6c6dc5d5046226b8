// Package template renders notification templates with pongo2.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// Renderer loads templates from a directory by ID. Template IDs map to
// files, so "sla_breach_email" resolves to sla_breach_email.html in the
// template directory.
type Renderer struct {
	templateSet *pongo2.TemplateSet

	mu     sync.RWMutex
	inline map[string]*pongo2.Template
}

// NewRenderer creates a renderer rooted at templateDir.
func NewRenderer(templateDir string) (*Renderer, error) {
	if templateDir == "" {
		return nil, fmt.Errorf("template directory is required")
	}
	if _, err := os.Stat(templateDir); err != nil {
		return nil, fmt.Errorf("template directory not found: %w", err)
	}

	abs, err := filepath.Abs(templateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template directory: %w", err)
	}
	templateSet := pongo2.NewSet("ticketflow", pongo2.MustNewLocalFileSystemLoader(abs))

	return &Renderer{
		templateSet: templateSet,
		inline:      make(map[string]*pongo2.Template),
	}, nil
}

// Render renders the template identified by templateID with vars.
func (r *Renderer) Render(templateID string, vars map[string]interface{}) (string, error) {
	tmpl, err := r.templateSet.FromCache(templateID + ".html")
	if err != nil {
		return "", fmt.Errorf("template %q not found: %w", templateID, err)
	}
	out, err := tmpl.Execute(pongo2.Context(vars))
	if err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", templateID, err)
	}
	return out, nil
}

// RenderString renders an inline template source, caching the compiled form.
func (r *Renderer) RenderString(source string, vars map[string]interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.inline[source]
	r.mu.RUnlock()

	if !ok {
		compiled, err := pongo2.FromString(source)
		if err != nil {
			return "", fmt.Errorf("invalid template: %w", err)
		}
		r.mu.Lock()
		r.inline[source] = compiled
		r.mu.Unlock()
		tmpl = compiled
	}

	out, err := tmpl.Execute(pongo2.Context(vars))
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}
