// Package contracts holds the versioned JSON documents plotsearch persists or
// publishes, together with the schemas they are validated against.
package contracts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFS embed.FS

var compiledSchemas = mustCompileSchemas()

// mustCompileSchemas registers every embedded schema under its path
// without the "schemas/" prefix and ".json" suffix, e.g. "criteria/v1".
func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		f, err := schemaFS.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := compiler.AddResource(path, f); err != nil {
			return fmt.Errorf("add schema %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("contracts: %v", err))
	}

	out := make(map[string]*jsonschema.Schema, len(paths))
	for _, path := range paths {
		schema, err := compiler.Compile(path)
		if err != nil {
			panic(fmt.Sprintf("contracts: compile %s: %v", path, err))
		}
		out[schemaKey(path)] = schema
	}
	return out
}

func schemaKey(path string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, "schemas/"), ".json")
}

// Validate checks body against the schema registered as name/v<version>.
func Validate(name string, version int, body []byte) error {
	key := fmt.Sprintf("%s/v%d", name, version)
	schema, ok := compiledSchemas[key]
	if !ok {
		return fmt.Errorf("no schema for %s", key)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", key, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", key, err)
	}
	return nil
}

type versionProbe struct {
	SchemaVersion int `json:"schema_version"`
}

func peekVersion(body []byte) (int, error) {
	var probe versionProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return 0, err
	}
	return probe.SchemaVersion, nil
}
