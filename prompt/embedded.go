package prompt

import "embed"

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// LoadEmbedded parses every template shipped inside the binary via
// go:embed (teacher's examples/registry-viewer-app/main.go pattern for
// bundling static assets), so the engine needs no on-disk template
// directory to run.
func (r *Renderer) LoadEmbedded() error {
	entries, err := embeddedTemplates.ReadDir("templates")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		content, err := embeddedTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return err
		}
		name := entry.Name()
		name = name[:len(name)-len(".tmpl")]
		if err := r.Register(name, string(content)); err != nil {
			return err
		}
	}
	return nil
}
