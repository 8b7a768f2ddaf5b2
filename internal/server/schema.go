package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Inbound payloads are validated against compiled schemas before anything
// reaches the core. A payload that fails here is MalformedInput: rejected at
// the boundary, never recorded in the log.

const inputSchemaJSON = `{
	"type": "object",
	"required": ["content"],
	"additionalProperties": false,
	"properties": {
		"content": {"type": "string", "minLength": 1}
	}
}`

const selectModelSchemaJSON = `{
	"type": "object",
	"required": ["model"],
	"additionalProperties": false,
	"properties": {
		"model": {"type": "string", "minLength": 1}
	}
}`

const saveArtifactSchemaJSON = `{
	"type": "object",
	"required": ["path", "content"],
	"additionalProperties": false,
	"properties": {
		"path": {"type": "string", "minLength": 1},
		"content": {"type": "string"}
	}
}`

var (
	inputSchema        = mustCompileSchema("input.json", inputSchemaJSON)
	selectModelSchema  = mustCompileSchema("select_model.json", selectModelSchemaJSON)
	saveArtifactSchema = mustCompileSchema("save_artifact.json", saveArtifactSchemaJSON)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return c.MustCompile(name)
}

// validateAndDecode checks raw JSON against a schema and, on success, decodes
// it into out.
func validateAndDecode(schema *jsonschema.Schema, raw []byte, out any) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
