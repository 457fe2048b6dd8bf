package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// FileName is the manifest file describing a template's configurable fields.
const FileName = "cookiecutter.json"

// Field types inferred from the manifest's default values.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeSelect  = "select"
)

// Field describes a single user-fillable template variable.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Default  any    `json:"default"`
	Options  []any  `json:"options,omitempty"`
	HelpText string `json:"help_text"`
}

// Extract locates the manifest under workDir (at the root, or one level down
// when the root holds exactly one subdirectory) and derives the field list in
// manifest document order. It returns the effective template directory, the
// one actually containing the manifest, since downstream rendering must
// target that directory.
func Extract(workDir string) ([]Field, string, error) {
	manifestPath, effectiveDir, err := locate(workDir)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	fields, err := Parse(data)
	if err != nil {
		return nil, "", err
	}

	return fields, effectiveDir, nil
}

// locate resolves the manifest path per the lookup order: the working
// directory itself, then its single immediate subdirectory.
func locate(workDir string) (manifestPath, effectiveDir string, err error) {
	direct := filepath.Join(workDir, FileName)
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, workDir, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrManifestNotFound, err)
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		}
	}

	if len(subdirs) == 1 {
		sub := filepath.Join(workDir, subdirs[0])
		nested := filepath.Join(sub, FileName)
		if info, err := os.Stat(nested); err == nil && !info.IsDir() {
			return nested, sub, nil
		}
	}

	return "", "", ErrManifestNotFound
}

// Parse derives fields from raw manifest content, preserving the manifest's
// key order. Keys with an underscore prefix are internal and skipped; fields
// whose resulting default is a string carrying both interpolation markers are
// computed by the engine from other fields and are not surfaced.
func Parse(data []byte) ([]Field, error) {
	// Probe with encoding/json first for a real parse diagnostic; gjson is
	// lenient and reports nothing useful about malformed input.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	fields := []Field{}
	root := gjson.ParseBytes(data)

	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if strings.HasPrefix(name, "_") {
			return true
		}

		field := Field{
			Name:     name,
			Type:     TypeString,
			Default:  value.Value(),
			HelpText: fmt.Sprintf("Enter value for %s", name),
		}

		switch {
		case value.IsArray():
			field.Type = TypeSelect
			options, _ := value.Value().([]any)
			if options == nil {
				options = []any{}
			}
			field.Options = options
			if len(options) > 0 {
				field.Default = options[0]
			} else {
				field.Default = ""
			}
		case value.Type == gjson.True || value.Type == gjson.False:
			field.Type = TypeBoolean
		case value.Type == gjson.Number && isIntegerLiteral(value.Raw):
			field.Type = TypeInteger
			field.Default = int(value.Int())
		}

		if isTemplatedDefault(field.Default) {
			return true
		}

		fields = append(fields, field)
		return true
	})

	return fields, nil
}

// isIntegerLiteral reports whether a JSON number literal has no fractional
// or exponent part.
func isIntegerLiteral(raw string) bool {
	return !strings.ContainsAny(raw, ".eE")
}

// isTemplatedDefault reports whether a default is a string carrying both
// interpolation markers, meaning the engine computes it from other fields.
func isTemplatedDefault(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return strings.Contains(s, "{{") && strings.Contains(s, "}}")
}
