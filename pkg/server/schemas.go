package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas, validated before any filesystem or network work.
const loadRequestSchema = `{
	"type": "object",
	"required": ["source"],
	"properties": {
		"source": {"type": "string", "minLength": 1}
	}
}`

const generateRequestSchema = `{
	"type": "object",
	"required": ["template_id", "context"],
	"properties": {
		"template_id": {"type": "string", "minLength": 1},
		"context": {"type": "object"}
	}
}`

var (
	loadSchema     = gojsonschema.NewStringLoader(loadRequestSchema)
	generateSchema = gojsonschema.NewStringLoader(generateRequestSchema)
)

// validateBody checks a raw JSON body against a schema and returns a
// human-readable message for the first violation.
func validateBody(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
