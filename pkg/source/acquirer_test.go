package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAcquirer(t *testing.T, runner GitRunner) (*Acquirer, string) {
	t.Helper()
	scratch := t.TempDir()
	a, err := New(Config{
		ScratchRoot: scratch,
		Runner:      runner,
		Logger:      zerolog.New(os.Stdout).Level(zerolog.Disabled),
	})
	require.NoError(t, err)
	return a, scratch
}

func scratchEntries(t *testing.T, scratch string) int {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	return len(entries)
}

func TestValidateRejectsBadSources(t *testing.T) {
	a, scratch := newTestAcquirer(t, nil)

	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"http URL", "http://example.com/repo.git"},
		{"relative path", "templates/my-template"},
		{"absolute path that does not exist", filepath.Join(t.TempDir(), "missing")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Acquire(context.Background(), tt.source)
			assert.ErrorIs(t, err, ErrInvalidSource)
		})
	}

	// Validation failures must leave the scratch root untouched.
	assert.Equal(t, 0, scratchEntries(t, scratch))
}

func TestValidateRejectsFileAsPath(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := a.Validate(file)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestAcquireCopiesLocalDirectory(t *testing.T) {
	a, scratch := newTestAcquirer(t, nil)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "cookiecutter.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deep", "file.txt"), []byte("hello"), 0o600))

	workDir, err := a.Acquire(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, scratch, filepath.Dir(workDir))
	assert.FileExists(t, filepath.Join(workDir, "cookiecutter.json"))

	content, err := os.ReadFile(filepath.Join(workDir, "nested", "deep", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	info, err := os.Stat(filepath.Join(workDir, "nested", "deep", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAcquireTrimsSourceWhitespace(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644))

	workDir, err := a.Acquire(context.Background(), "  "+src+"  ")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(workDir, "f"))
}

func TestAcquireClonesHTTPSURL(t *testing.T) {
	var gotArgs []string
	runner := func(ctx context.Context, args ...string) (string, error) {
		gotArgs = args
		// Simulate a successful clone by creating the target directory.
		target := args[len(args)-1]
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", err
		}
		return "", os.WriteFile(filepath.Join(target, "cookiecutter.json"), []byte(`{}`), 0o644)
	}

	a, scratch := newTestAcquirer(t, runner)

	workDir, err := a.Acquire(context.Background(), "https://example.com/template.git")
	require.NoError(t, err)

	assert.Equal(t, scratch, filepath.Dir(workDir))
	require.Len(t, gotArgs, 5)
	assert.Equal(t, []string{"clone", "--depth", "1", "https://example.com/template.git", workDir}, gotArgs)
}

func TestAcquireCloneFailureCarriesDiagnostic(t *testing.T) {
	runner := func(ctx context.Context, args ...string) (string, error) {
		return "fatal: repository not found", fmt.Errorf("exit status 128")
	}

	a, _ := newTestAcquirer(t, runner)

	workDir, err := a.Acquire(context.Background(), "https://example.com/missing.git")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.Contains(t, err.Error(), "repository not found")
	// The caller owns removal of the allocated directory on error.
	assert.NotEmpty(t, workDir)
}
