package contentapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Structural schemas for remote entity payloads. The API is consumed, not
// owned, so these only pin down what the engine actually relies on: a
// non-empty string id and the right types on the fields it reads.
const (
	courseSchema = `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"titulo": {"type": "string"},
			"descripcion": {"type": "string"},
			"materias": {"type": "array", "items": {"type": "string"}},
			"documentos": {"type": "array"}
		}
	}`

	subjectSchema = `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"nombre": {"type": "string"},
			"descripcion": {"type": "string"},
			"modulos": {"type": "array", "items": {"type": "string"}}
		}
	}`

	moduleSchema = `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"titulo": {"type": "string"},
			"video": {"type": "string"},
			"documento": {"type": "string"},
			"miniatura": {"type": "string"},
			"id_materia": {"type": "string"}
		}
	}`
)

var (
	compiledCourseSchema  = mustCompileSchema(courseSchema)
	compiledSubjectSchema = mustCompileSchema(subjectSchema)
	compiledModuleSchema  = mustCompileSchema(moduleSchema)
)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("contentapi: bad schema: %v", err))
	}
	return s
}

// validateEntity checks a raw payload against a compiled schema and wraps
// failures as ErrMalformed so callers can treat them as per-id fetch
// failures.
func validateEntity(schema *gojsonschema.Schema, doc json.RawMessage) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Valid() {
		return nil
	}
	var reasons []string
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(reasons, "; "))
}
