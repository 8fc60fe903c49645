package manifest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// namePattern matches valid plugin/item names, optionally @-scoped
// (e.g., "git-flow", "@acme/git-flow").
var namePattern = regexp.MustCompile(`^@?[a-z0-9-]+(/[a-z0-9-]+)?$`)

// semverPattern matches plain x.y.z versions.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// checksumPattern matches prefixed SHA-256 checksums.
var checksumPattern = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidationResult holds validation errors and warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// AddError appends a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning appends a validation warning.
func (r *ValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Error implements the error interface.
func (r *ValidationResult) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var messages []string
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("validation failed with %d error(s):\n  - %s",
		len(r.Errors), strings.Join(messages, "\n  - "))
}

// ValidName reports whether name is a valid plugin or item name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidSemver reports whether v is a plain x.y.z version.
func ValidSemver(v string) bool {
	return semverPattern.MatchString(v)
}

// ValidChecksum reports whether c is a prefixed SHA-256 checksum.
func ValidChecksum(c string) bool {
	return checksumPattern.MatchString(c)
}

// validateURL checks field is an absolute https:// URL.
func validateURL(result *ValidationResult, field, raw string) {
	if raw == "" {
		result.AddError(field, "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		result.AddError(field, fmt.Sprintf("is not a valid URL: %v", err))
		return
	}
	if u.Scheme != "https" {
		result.AddError(field, fmt.Sprintf("must use https:// (got %q)", u.Scheme))
	}
}

// ValidateRegistryManifest validates a registry manifest structure.
func ValidateRegistryManifest(m *RegistryManifest) *ValidationResult {
	result := &ValidationResult{}

	if m.Name == "" {
		result.AddError("name", "is required")
	}
	if m.Version == "" {
		result.AddError("version", "is required")
	} else if !ValidSemver(m.Version) {
		result.AddError("version", fmt.Sprintf("%q is not valid semver", m.Version))
	}

	if len(m.Plugins) == 0 {
		result.AddWarning("registry manifest lists no plugins")
	}

	// Duplicate name@version pairs are rejected; duplicate names with
	// distinct versions are multi-version listings and allowed.
	seen := make(map[string]int)
	for i, p := range m.Plugins {
		fieldPrefix := fmt.Sprintf("plugins[%d]", i)

		if p.Name == "" {
			result.AddError(fieldPrefix+".name", "is required")
		} else if !ValidName(p.Name) {
			result.AddError(fieldPrefix+".name", fmt.Sprintf("%q must be lowercase, hyphens, optionally @scoped", p.Name))
		}

		if p.Version == "" {
			result.AddError(fieldPrefix+".version", "is required")
		} else if !ValidSemver(p.Version) {
			result.AddError(fieldPrefix+".version", fmt.Sprintf("%q is not valid semver", p.Version))
		}

		if p.Name != "" && p.Version != "" {
			key := p.Name + "@" + p.Version
			if prev, ok := seen[key]; ok {
				result.AddError(fieldPrefix, fmt.Sprintf("duplicate entry %s (first at index %d)", key, prev))
			} else {
				seen[key] = i
			}
		}

		validateURL(result, fieldPrefix+".manifest_url", p.ManifestURL)

		if p.Checksum == "" {
			result.AddError(fieldPrefix+".checksum", "is required")
		} else if !ValidChecksum(p.Checksum) {
			result.AddError(fieldPrefix+".checksum", `must match "sha256:<64 hex chars>"`)
		}

		if p.Description == "" {
			result.AddWarning(fmt.Sprintf("%s (%s): missing description", fieldPrefix, p.Name))
		}
	}

	return result
}

// ValidatePluginManifest validates a plugin manifest structure.
// Dependency names are checked for shape only; whether they resolve is
// the installer's concern.
func ValidatePluginManifest(m *PluginManifest) *ValidationResult {
	result := &ValidationResult{}

	if m.Name == "" {
		result.AddError("name", "is required")
	} else if !ValidName(m.Name) {
		result.AddError("name", fmt.Sprintf("%q must be lowercase, hyphens, optionally @scoped", m.Name))
	}

	if m.Version == "" {
		result.AddError("version", "is required")
	} else if !ValidSemver(m.Version) {
		result.AddError("version", fmt.Sprintf("%q is not valid semver", m.Version))
	}

	if m.Author != nil && m.Author.Name == "" {
		result.AddError("author.name", "is required when author is present")
	}

	groups := []struct {
		name  string
		items []PluginItem
	}{
		{"agents", m.Agents},
		{"tools", m.Tools},
		{"workflows", m.Workflows},
		{"templates", m.Templates},
	}
	for _, g := range groups {
		for i, item := range g.items {
			validateItem(result, fmt.Sprintf("%s[%d]", g.name, i), item)
		}
	}

	for i, h := range m.Hooks {
		fieldPrefix := fmt.Sprintf("hooks[%d]", i)
		validateItem(result, fieldPrefix, h.PluginItem)
		if !validHookType(h.Type) {
			result.AddError(fieldPrefix+".type", fmt.Sprintf("%q is not a known hook type", h.Type))
		}
	}

	for i, c := range m.Commands {
		validateItem(result, fmt.Sprintf("commands[%d]", i), PluginItem{
			Name:     c.Name,
			Version:  c.Version,
			Source:   c.Source,
			Checksum: c.Checksum,
		})
	}

	if len(m.Items()) == 0 {
		result.AddWarning("plugin manifest declares no installable items")
	}

	return result
}

// validateItem checks the common PluginItem fields.
func validateItem(result *ValidationResult, fieldPrefix string, item PluginItem) {
	if item.Name == "" {
		result.AddError(fieldPrefix+".name", "is required")
	} else if !ValidName(item.Name) {
		result.AddError(fieldPrefix+".name", fmt.Sprintf("%q must be lowercase, hyphens, optionally @scoped", item.Name))
	}

	if item.Version == "" {
		result.AddError(fieldPrefix+".version", "is required")
	} else if !ValidSemver(item.Version) {
		result.AddError(fieldPrefix+".version", fmt.Sprintf("%q is not valid semver", item.Version))
	}

	validateURL(result, fieldPrefix+".source", item.Source)

	if item.Checksum == "" {
		result.AddError(fieldPrefix+".checksum", "is required")
	} else if !ValidChecksum(item.Checksum) {
		result.AddError(fieldPrefix+".checksum", `must match "sha256:<64 hex chars>"`)
	}

	for j, dep := range item.Dependencies {
		if strings.TrimSpace(dep) == "" {
			result.AddError(fmt.Sprintf("%s.dependencies[%d]", fieldPrefix, j), "must be a non-empty string")
		}
	}
}

func validHookType(t HookType) bool {
	for _, known := range HookTypes {
		if t == known {
			return true
		}
	}
	return false
}
