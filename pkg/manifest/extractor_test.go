package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestParseFieldDerivation(t *testing.T) {
	data := `{
		"project_name": "demo",
		"use_docker": false,
		"license": ["MIT", "Apache-2.0"],
		"_private": "x"
	}`

	fields, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "project_name", fields[0].Name)
	assert.Equal(t, TypeString, fields[0].Type)
	assert.Equal(t, "demo", fields[0].Default)
	assert.Equal(t, "Enter value for project_name", fields[0].HelpText)

	assert.Equal(t, "use_docker", fields[1].Name)
	assert.Equal(t, TypeBoolean, fields[1].Type)
	assert.Equal(t, false, fields[1].Default)

	assert.Equal(t, "license", fields[2].Name)
	assert.Equal(t, TypeSelect, fields[2].Type)
	assert.Equal(t, []any{"MIT", "Apache-2.0"}, fields[2].Options)
	assert.Equal(t, "MIT", fields[2].Default)
}

func TestParseIntegerField(t *testing.T) {
	fields, err := Parse([]byte(`{"port": 8080, "ratio": 1.5}`))
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, TypeInteger, fields[0].Type)
	assert.Equal(t, 8080, fields[0].Default)

	// Fractional numbers fall back to string-typed fields.
	assert.Equal(t, TypeString, fields[1].Type)
}

func TestParseExcludesTemplatedDefaults(t *testing.T) {
	data := `{
		"project_name": "demo",
		"project_slug": "{{ cookiecutter.project_name|lower }}",
		"half_marker": "{{ not closed"
	}`

	fields, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "project_name", fields[0].Name)
	assert.Equal(t, "half_marker", fields[1].Name)
}

func TestParseEmptySelect(t *testing.T) {
	fields, err := Parse([]byte(`{"choices": []}`))
	require.NoError(t, err)
	require.Len(t, fields, 1)

	assert.Equal(t, TypeSelect, fields[0].Type)
	assert.Empty(t, fields[0].Options)
	assert.Equal(t, "", fields[0].Default)
}

func TestParsePreservesManifestOrder(t *testing.T) {
	data := `{"zebra": "z", "alpha": "a", "mike": "m"}`

	fields, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "zebra", fields[0].Name)
	assert.Equal(t, "alpha", fields[1].Name)
	assert.Equal(t, "mike", fields[2].Name)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"broken":`))
	assert.ErrorIs(t, err, ErrManifestInvalid)

	// Top-level arrays are not manifest objects.
	_, err = Parse([]byte(`["a", "b"]`))
	assert.ErrorIs(t, err, ErrManifestInvalid)
}

func TestExtractManifestAtRoot(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"name": "demo"}`)

	fields, effectiveDir, err := Extract(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, effectiveDir)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Name)
}

func TestExtractManifestInSingleSubdir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "my-template")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeManifest(t, sub, `{"name": "demo"}`)

	_, effectiveDir, err := Extract(dir)
	require.NoError(t, err)
	assert.Equal(t, sub, effectiveDir)
}

func TestExtractManifestNotFound(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name:  "empty working directory",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name: "two subdirectories, neither with a manifest",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "one"), 0o755))
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "two"), 0o755))
			},
		},
		{
			name: "single subdirectory without a manifest",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "only"), 0o755))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			_, _, err := Extract(dir)
			assert.ErrorIs(t, err, ErrManifestNotFound)
		})
	}
}
