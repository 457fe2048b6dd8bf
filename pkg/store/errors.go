package store

import "errors"

// ErrSessionNotFound is returned when a template id is unknown, expired and
// swept, or already consumed by a previous generation.
var ErrSessionNotFound = errors.New("template ID not found or expired, please load again")
