package engine

import "errors"

// ErrGenerationFailed is returned when rendering a template into a concrete
// project directory fails.
var ErrGenerationFailed = errors.New("project generation failed")
