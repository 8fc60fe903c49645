package manifest

import (
	"encoding/json"
	"os"

	"github.com/forge-stack/forge/internal/errors"
)

// ParseRegistryManifest parses and validates a registry manifest document.
// It performs no network I/O; anything that fails validation never reaches
// other components.
func ParseRegistryManifest(data []byte) (*RegistryManifest, error) {
	if err := compileSchemas(); err != nil {
		return nil, err
	}

	var m RegistryManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ManifestParse("registry manifest", err)
	}

	result := ValidateRegistryManifest(&m)
	if verr := checkSchema(registrySchema, data); verr != nil && !result.HasErrors() {
		// Structural validation passed but the schema caught something
		// the field checks cannot express (e.g., wrong JSON types).
		result.Errors = append(result.Errors, *verr)
	}
	if result.HasErrors() {
		return nil, errors.ManifestInvalid("registry manifest", result)
	}

	return &m, nil
}

// ParsePluginManifest parses and validates a plugin manifest document.
// Dependency names are validated for shape only; the installer checks
// that they resolve.
func ParsePluginManifest(data []byte) (*PluginManifest, error) {
	if err := compileSchemas(); err != nil {
		return nil, err
	}

	var m PluginManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ManifestParse("plugin manifest", err)
	}

	result := ValidatePluginManifest(&m)
	if verr := checkSchema(pluginSchema, data); verr != nil && !result.HasErrors() {
		result.Errors = append(result.Errors, *verr)
	}
	if result.HasErrors() {
		return nil, errors.ManifestInvalid("plugin manifest", result)
	}

	return &m, nil
}

// LoadRegistryManifest reads and parses a registry manifest from disk.
func LoadRegistryManifest(path string) (*RegistryManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IORead(path, err)
	}
	return ParseRegistryManifest(data)
}

// LoadPluginManifest reads and parses a plugin manifest from disk.
func LoadPluginManifest(path string) (*PluginManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IORead(path, err)
	}
	return ParsePluginManifest(data)
}
