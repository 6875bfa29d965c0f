// Package schema provides JSON schema generation for the SDK's boundary
// types (manifests, module option structs), so host applications can
// document and validate what guests may send.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generate creates a JSON schema from a Go struct. It uses the
// invopop/jsonschema library to reflect on the struct and produce a
// standard JSON Schema (Draft 2020-12).
func Generate(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
	}
	s := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}
