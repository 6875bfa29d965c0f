package config

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is
// recommended.
var validate = validator.New()

// Decode converts a loosely-typed options map into a struct with
// validation tags and validates it. It marshals the map to JSON,
// unmarshals it into the target struct, and runs the validator.
func Decode(opts map[string]any, targetStruct any) error {
	jsonBytes, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal options map: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, targetStruct); err != nil {
		return fmt.Errorf("failed to unmarshal options into struct: %w", err)
	}

	return ValidateStruct(targetStruct)
}

// ValidateStruct runs the shared validator over a tagged struct.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
