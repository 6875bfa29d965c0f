package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GoAskAway/askit-sdk/domain/entities"
)

// ParseManifest decodes a guest manifest from YAML (or JSON, which YAML
// subsumes) and validates it.
func ParseManifest(data []byte) (entities.Manifest, error) {
	var m entities.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return entities.Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := ValidateManifest(m); err != nil {
		return entities.Manifest{}, err
	}
	return m, nil
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (entities.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ValidateManifest checks a manifest against its validation tags.
func ValidateManifest(m entities.Manifest) error {
	if err := ValidateStruct(&m); err != nil {
		return fmt.Errorf("manifest %q: %w", m.Name, err)
	}
	return nil
}
