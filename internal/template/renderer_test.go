package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	dir := t.TempDir()
	source := "Ticket #{{ ticket_id }} breached its {{ sla_type }} SLA"
	if err := os.WriteFile(filepath.Join(dir, "breach.html"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewRenderer(dir)
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	return r
}

func TestRender(t *testing.T) {
	r := newTestRenderer(t)
	out, err := r.Render("breach", map[string]interface{}{
		"ticket_id": 42,
		"sla_type":  "response",
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(out, "Ticket #42") || !strings.Contains(out, "response SLA") {
		t.Errorf("out = %q", out)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := newTestRenderer(t)
	if _, err := r.Render("nonexistent", nil); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestRenderString(t *testing.T) {
	r := newTestRenderer(t)
	out, err := r.RenderString("hello {{ name }}", map[string]interface{}{"name": "ops"})
	if err != nil {
		t.Fatalf("RenderString error: %v", err)
	}
	if out != "hello ops" {
		t.Errorf("out = %q", out)
	}
}

func TestNewRendererMissingDir(t *testing.T) {
	if _, err := NewRenderer("/does/not/exist"); err == nil {
		t.Error("expected error for missing template directory")
	}
}
