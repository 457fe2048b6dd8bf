package manifest

import "errors"

var (
	// ErrManifestNotFound is returned when cookiecutter.json is absent from
	// both the working directory and its single immediate subdirectory
	ErrManifestNotFound = errors.New("cookiecutter.json not found in the template root or its immediate subdirectory")

	// ErrManifestInvalid is returned when cookiecutter.json is not a valid JSON object
	ErrManifestInvalid = errors.New("invalid cookiecutter.json")
)
