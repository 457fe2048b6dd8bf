// Package engine renders a template directory plus a value context into a
// concrete project directory. Templates use Jinja-style syntax with values
// namespaced under "cookiecutter", so a template authored for the original
// cookiecutter tool renders unchanged.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/kavindra/stencil/pkg/manifest"
)

// ContextKey is the namespace template expressions resolve values under.
const ContextKey = "cookiecutter"

// Engine renders template trees.
type Engine struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates a new Engine. A zero timeout disables the per-render deadline.
func New(timeout time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{timeout: timeout, logger: logger}
}

// Render generates a project from templateDir into outputDir using the
// supplied field values and returns the path of the generated project
// directory. templateDir must directly contain the manifest and a single
// templated project directory (one whose name carries interpolation
// markers).
func (e *Engine) Render(ctx context.Context, templateDir string, values map[string]any, outputDir string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	full, err := e.buildContext(templateDir, values)
	if err != nil {
		return "", err
	}

	srcRoot, err := findProjectTemplate(templateDir)
	if err != nil {
		return "", err
	}

	projectName, err := renderString(filepath.Base(srcRoot), full)
	if err != nil {
		return "", fmt.Errorf("%w: rendering project directory name: %v", ErrGenerationFailed, err)
	}
	projectName = strings.TrimSpace(projectName)
	if projectName == "" || strings.ContainsAny(projectName, "/\\") {
		return "", fmt.Errorf("%w: project directory name %q is not usable", ErrGenerationFailed, projectName)
	}

	projectDir := filepath.Join(outputDir, projectName)

	e.logger.Info().
		Str("template_dir", templateDir).
		Str("project_dir", projectDir).
		Msg("Rendering project")

	if err := e.renderTree(ctx, srcRoot, projectDir, full); err != nil {
		return "", err
	}

	info, err := os.Stat(projectDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: generated path %q is not a directory", ErrGenerationFailed, projectDir)
	}

	return projectDir, nil
}

// buildContext merges manifest defaults under user-supplied values in
// manifest document order. Templated string defaults are resolved against
// the values accumulated so far, mirroring how the manifest's own computed
// fields reference earlier ones.
func (e *Engine) buildContext(templateDir string, values map[string]any) (pongo2.Context, error) {
	data, err := os.ReadFile(filepath.Join(templateDir, manifest.FileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: manifest is not valid JSON", ErrGenerationFailed)
	}

	merged := map[string]any{}
	var renderErr error

	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		name := key.String()

		if v, ok := values[name]; ok {
			merged[name] = v
			return true
		}

		switch {
		case value.IsArray():
			opts, _ := value.Value().([]any)
			if len(opts) > 0 {
				merged[name] = opts[0]
			} else {
				merged[name] = ""
			}
		case value.Type == gjson.String:
			rendered, err := renderString(value.String(), pongo2.Context{ContextKey: merged})
			if err != nil {
				renderErr = fmt.Errorf("%w: computing default for %q: %v", ErrGenerationFailed, name, err)
				return false
			}
			merged[name] = rendered
		default:
			merged[name] = value.Value()
		}
		return true
	})

	if renderErr != nil {
		return nil, renderErr
	}

	return pongo2.Context{ContextKey: merged}, nil
}

// findProjectTemplate locates the single templated project directory inside
// the template root.
func findProjectTemplate(templateDir string) (string, error) {
	entries, err := os.ReadDir(templateDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && strings.Contains(name, "{{") && strings.Contains(name, "}}") {
			return filepath.Join(templateDir, name), nil
		}
	}

	return "", fmt.Errorf("%w: no templated project directory found in %q", ErrGenerationFailed, templateDir)
}

// renderTree walks srcRoot rendering every path segment and file content
// into dstRoot.
func (e *Engine) renderTree(ctx context.Context, srcRoot, dstRoot string, full pongo2.Context) error {
	return filepath.Walk(srcRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		target := dstRoot
		if rel != "." {
			renderedRel, err := renderString(filepath.ToSlash(rel), full)
			if err != nil {
				return fmt.Errorf("%w: rendering path %q: %v", ErrGenerationFailed, rel, err)
			}
			target = filepath.Join(dstRoot, filepath.FromSlash(renderedRel))
		}

		if info.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
			}
			return nil
		}

		return e.renderFile(path, target, info.Mode(), full)
	})
}

// renderFile renders a single file's content. Content that does not parse as
// a template (binary payloads, braces in unrelated syntaxes) is copied
// verbatim.
func (e *Engine) renderFile(src, dst string, mode os.FileMode, full pongo2.Context) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	out := raw
	if tpl, err := pongo2.FromBytes(raw); err == nil {
		rendered, err := tpl.ExecuteBytes(full)
		if err != nil {
			return fmt.Errorf("%w: rendering %q: %v", ErrGenerationFailed, src, err)
		}
		out = rendered
	} else {
		e.logger.Debug().Str("file", src).Msg("Copying file verbatim, content is not a template")
	}

	if err := os.WriteFile(dst, out, mode.Perm()); err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return nil
}

func renderString(s string, full pongo2.Context) (string, error) {
	if !strings.Contains(s, "{{") && !strings.Contains(s, "{%") {
		return s, nil
	}
	tpl, err := pongo2.FromString(s)
	if err != nil {
		return "", err
	}
	return tpl.Execute(full)
}
