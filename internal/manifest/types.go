// Package manifest provides types and parsing for forge's registry and
// plugin distribution documents.
//
// The distribution system uses a two-level hierarchy:
//   - RegistryManifest: a registry's index of available plugins
//   - PluginManifest: a plugin's own manifest listing its installable items
//     (agents, tools, workflows, templates, hooks, commands)
package manifest

import "time"

// RegistryManifest is the document served by a manifest-kind registry.
// It lists every plugin the registry can resolve.
type RegistryManifest struct {
	// Name is the registry identifier.
	Name string `json:"name"`

	// Version is the registry manifest version (semver).
	Version string `json:"version"`

	// Description provides a brief human-readable description.
	Description string `json:"description,omitempty"`

	// Updated is when the manifest was last published.
	Updated time.Time `json:"updated,omitempty"`

	// Plugins lists the plugins available from this registry.
	// A registry may list multiple versions of the same plugin name.
	Plugins []PluginReference `json:"plugins"`
}

// PluginReference is a registry manifest entry pointing at a plugin.
type PluginReference struct {
	// Name is the plugin identifier, optionally scoped (e.g., "@acme/git-flow").
	Name string `json:"name"`

	// Version is the plugin version (semver).
	Version string `json:"version"`

	// Description provides a brief human-readable description.
	Description string `json:"description,omitempty"`

	// ManifestURL points at the plugin's own manifest document.
	ManifestURL string `json:"manifest_url"`

	// Repository is the source code repository URL.
	Repository string `json:"repository,omitempty"`

	// License is the SPDX license identifier.
	License string `json:"license,omitempty"`

	// Tags are keywords for discovery and filtering.
	Tags []string `json:"tags,omitempty"`

	// Checksum is the SHA-256 of the plugin manifest document,
	// formatted "sha256:<64 hex chars>".
	Checksum string `json:"checksum"`
}

// PluginManifest is a plugin's own manifest, fetched via a
// PluginReference.ManifestURL. It lists the plugin's installable items.
type PluginManifest struct {
	// Name is the plugin identifier. Must match the registry entry.
	Name string `json:"name"`

	// Version is the plugin version (semver).
	Version string `json:"version"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty"`

	// Author describes the plugin author (optional).
	Author *Author `json:"author,omitempty"`

	// Repository is the source code repository URL.
	Repository string `json:"repository,omitempty"`

	// License is the SPDX license identifier.
	License string `json:"license,omitempty"`

	// Tags are keywords for search and discovery.
	Tags []string `json:"tags,omitempty"`

	// Agents, Tools, Workflows, and Templates are the plugin's item groups.
	Agents    []PluginItem `json:"agents,omitempty"`
	Tools     []PluginItem `json:"tools,omitempty"`
	Workflows []PluginItem `json:"workflows,omitempty"`
	Templates []PluginItem `json:"templates,omitempty"`

	// Hooks are items bound to a lifecycle hook point.
	Hooks []PluginHook `json:"hooks,omitempty"`

	// Commands are standalone command items.
	Commands []PluginCommand `json:"commands,omitempty"`

	// Config carries free-form plugin configuration defaults.
	Config map[string]any `json:"config,omitempty"`
}

// Author describes a plugin author.
type Author struct {
	// Name is the author name (required when Author is present).
	Name string `json:"name"`

	// Email is the contact email (optional).
	Email string `json:"email,omitempty"`

	// URL is the website or profile URL (optional).
	URL string `json:"url,omitempty"`
}

// PluginItem is one installable unit within a plugin manifest.
type PluginItem struct {
	// Name is the item identifier.
	Name string `json:"name"`

	// Version is the item version (semver).
	Version string `json:"version"`

	// Description provides a brief human-readable description.
	Description string `json:"description,omitempty"`

	// Source is the HTTPS URL of the item's content.
	Source string `json:"source"`

	// Checksum is the SHA-256 of the item content,
	// formatted "sha256:<64 hex chars>".
	Checksum string `json:"checksum"`

	// Size is the content size in bytes.
	Size int64 `json:"size,omitempty"`

	// Dependencies names other items (or plugins) this item needs.
	// Names are resolved at install time, not at parse time.
	Dependencies []string `json:"dependencies,omitempty"`
}

// HookType is a lifecycle point a hook item is bound to.
type HookType string

// Lifecycle hook points.
const (
	HookPreCommit    HookType = "pre-commit"
	HookPostCommit   HookType = "post-commit"
	HookPrePush      HookType = "pre-push"
	HookPostPush     HookType = "post-push"
	HookSessionStart HookType = "session-start"
	HookSessionEnd   HookType = "session-end"
)

// HookTypes lists all valid lifecycle hook points.
var HookTypes = []HookType{
	HookPreCommit, HookPostCommit,
	HookPrePush, HookPostPush,
	HookSessionStart, HookSessionEnd,
}

// PluginHook is a PluginItem bound to a lifecycle hook point.
type PluginHook struct {
	PluginItem

	// Type is the lifecycle point this hook runs at.
	Type HookType `json:"type"`
}

// PluginCommand is a standalone command item. Commands carry no dependencies.
type PluginCommand struct {
	// Name is the command identifier.
	Name string `json:"name"`

	// Version is the command version (semver).
	Version string `json:"version"`

	// Description provides a brief human-readable description.
	Description string `json:"description,omitempty"`

	// Source is the HTTPS URL of the command's content.
	Source string `json:"source"`

	// Checksum is the SHA-256 of the command content.
	Checksum string `json:"checksum"`

	// Size is the content size in bytes.
	Size int64 `json:"size,omitempty"`
}

// ItemType identifies which group of a plugin manifest an item belongs to.
type ItemType string

// Item type constants. Values double as install directory names.
const (
	TypeAgent    ItemType = "agents"
	TypeTool     ItemType = "tools"
	TypeWorkflow ItemType = "workflows"
	TypeTemplate ItemType = "templates"
	TypeHook     ItemType = "hooks"
	TypeCommand  ItemType = "commands"
)

// ItemTypes lists all item groups in manifest order.
var ItemTypes = []ItemType{
	TypeAgent, TypeTool, TypeWorkflow, TypeTemplate, TypeHook, TypeCommand,
}

// TypedItem pairs a PluginItem with its group for iteration.
type TypedItem struct {
	Type ItemType
	Item PluginItem
}

// Items returns every installable item in the manifest, in manifest order.
// Hooks and commands are flattened into plain items.
func (m *PluginManifest) Items() []TypedItem {
	var out []TypedItem
	for _, it := range m.Agents {
		out = append(out, TypedItem{TypeAgent, it})
	}
	for _, it := range m.Tools {
		out = append(out, TypedItem{TypeTool, it})
	}
	for _, it := range m.Workflows {
		out = append(out, TypedItem{TypeWorkflow, it})
	}
	for _, it := range m.Templates {
		out = append(out, TypedItem{TypeTemplate, it})
	}
	for _, h := range m.Hooks {
		out = append(out, TypedItem{TypeHook, h.PluginItem})
	}
	for _, c := range m.Commands {
		out = append(out, TypedItem{TypeCommand, PluginItem{
			Name:        c.Name,
			Version:     c.Version,
			Description: c.Description,
			Source:      c.Source,
			Checksum:    c.Checksum,
			Size:        c.Size,
		}})
	}
	return out
}

// HasItem reports whether the manifest declares an item with the given name.
// Dependencies naming an item in the same manifest need no further resolution.
func (m *PluginManifest) HasItem(name string) bool {
	for _, ti := range m.Items() {
		if ti.Item.Name == name {
			return true
		}
	}
	return false
}

// VersionsOf collects every listed version for a plugin name,
// in manifest order.
func (m *RegistryManifest) VersionsOf(name string) []string {
	var versions []string
	for _, p := range m.Plugins {
		if p.Name == name {
			versions = append(versions, p.Version)
		}
	}
	return versions
}

// Find returns the reference for an exact name and version pair.
func (m *RegistryManifest) Find(name, version string) *PluginReference {
	for i := range m.Plugins {
		if m.Plugins[i].Name == name && m.Plugins[i].Version == version {
			return &m.Plugins[i]
		}
	}
	return nil
}
