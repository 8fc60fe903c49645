// Package registry provides the pluggable registry resolver backends and
// the on-disk stores for installed packages.
//
// Persisted state lives under a scope root:
//   - global: ~/.forge/registry/
//   - local:  <project>/.forge/registry/
//
// Each root holds installed.json, a cache/ directory of registry manifest
// snapshots, and one directory per item type (agents, tools, ...).
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forge-stack/forge/internal/manifest"
)

const (
	// MetaDir is the hidden directory holding forge state.
	MetaDir = ".forge"

	// RegistrySubdir is the registry state directory within MetaDir.
	RegistrySubdir = "registry"

	// CacheSubdir holds cached registry manifests within a scope root.
	CacheSubdir = "cache"

	// PluginsSubdir holds installed plugin manifests within a scope root.
	PluginsSubdir = "plugins"
)

// GlobalRoot returns the user-scoped registry root (~/.forge/registry).
func GlobalRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, MetaDir, RegistrySubdir), nil
}

// ProjectRoot returns the project-scoped registry root
// (<dir>/.forge/registry).
func ProjectRoot(dir string) string {
	return filepath.Join(dir, MetaDir, RegistrySubdir)
}

// CacheDir returns the manifest cache directory under a scope root.
func CacheDir(root string) string {
	return filepath.Join(root, CacheSubdir)
}

// PluginDir returns where a plugin's own manifest is kept under a root.
// Scoped names ("@acme/git-flow") nest naturally.
func PluginDir(root, name, version string) string {
	return filepath.Join(root, PluginsSubdir, filepath.FromSlash(name), version)
}

// ItemDir returns the install directory for one item under a root.
func ItemDir(root string, typ manifest.ItemType, name, version string) string {
	return filepath.Join(root, string(typ), filepath.FromSlash(name), version)
}
