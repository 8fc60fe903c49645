package manifest

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/registry_manifest.schema.json
var registrySchemaJSON []byte

//go:embed schemas/plugin_manifest.schema.json
var pluginSchemaJSON []byte

var (
	schemaOnce     sync.Once
	registrySchema *jsonschema.Schema
	pluginSchema   *jsonschema.Schema
	schemaErr      error
)

// compileSchemas compiles the embedded JSON Schemas once per process.
func compileSchemas() error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		registrySchema, schemaErr = compiler.Compile(registrySchemaJSON)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling registry manifest schema: %w", schemaErr)
			return
		}

		pluginSchema, schemaErr = compiler.Compile(pluginSchemaJSON)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compiling plugin manifest schema: %w", schemaErr)
		}
	})
	return schemaErr
}

// checkSchema runs data against a compiled schema and reports failures
// as a single coarse validation error. Precise field-level errors come
// from the structural validators afterwards.
func checkSchema(schema *jsonschema.Schema, data []byte) *ValidationError {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return &ValidationError{Message: fmt.Sprintf("schema validation failed: %v", result.Errors)}
}
