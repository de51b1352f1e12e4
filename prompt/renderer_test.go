package prompt

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrianMills2718/OSINT-sub007/core"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	r := NewRenderer()
	require.NoError(t, r.Register("greeting", "Hello, {{.Name}}!"))

	out, err := r.Render("greeting", map[string]interface{}{"Name": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out)
}

func TestRenderMissingTemplateReturnsErrTemplateNotFound(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render("does_not_exist", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTemplateNotFound))
}

func TestRenderMissingVariableReturnsErrTemplateVariable(t *testing.T) {
	r := NewRenderer()
	require.NoError(t, r.Register("greeting", "Hello, {{.Name}}!"))

	_, err := r.Render("greeting", map[string]interface{}{"WrongKey": "World"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTemplateVariable))
}

func TestLoadDirIndexesByBaseName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/task_decomposition.tmpl", "Question: {{.Question}}")

	r := NewRenderer()
	require.NoError(t, r.LoadDir(dir))
	assert.Contains(t, r.Names(), "task_decomposition")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
