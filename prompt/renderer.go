// Package prompt implements the Prompt Renderer: named
// templates, loaded from disk or from the copies embedded in the binary,
// resolved against variables into a plain string. Grounded on the
// teacher's orchestration/template_prompt_builder.go use of Go's
// text/template, generalized from one hard-coded "planning" template to
// an arbitrary named set loaded from a directory or the embedded set.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

// Renderer holds a set of named, parsed templates.
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewRenderer builds an empty renderer; use LoadDir, LoadEmbedded or
// Register to add templates.
func NewRenderer() *Renderer {
	return &Renderer{templates: make(map[string]*template.Template)}
}

// LoadDir parses every "*.tmpl" file in dir, indexing each by its base
// filename without extension (e.g. "task_decomposition.tmpl" becomes
// "task_decomposition"). Fails fast on the first unparseable template —
// template assets are operator-managed, not user input (same trust
// boundary the teacher documents for TemplatePromptBuilder).
func (r *Renderer) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("prompt: read template dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("prompt: read template %q: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		if err := r.Register(name, string(content)); err != nil {
			return fmt.Errorf("prompt: parse template %q: %w", path, err)
		}
	}
	return nil
}

// Register parses and stores a single named template (used for LoadDir
// and directly by tests that want an in-memory template set).
func (r *Renderer) Register(name, body string) error {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[name] = tmpl
	return nil
}

// Render resolves the named template against vars. A name that was
// never registered returns core.ErrTemplateNotFound; a variable the
// template references but vars doesn't supply returns
// core.ErrTemplateVariable.
func (r *Renderer) Render(name string, vars map[string]interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q: %w", name, core.ErrTemplateNotFound)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("template %q: %w: %v", name, core.ErrTemplateVariable, err)
	}
	return buf.String(), nil
}

// Names returns the currently registered template names (for
// diagnostics/tests).
func (r *Renderer) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for n := range r.templates {
		names = append(names, n)
	}
	return names
}
