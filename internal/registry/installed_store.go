package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forge-stack/forge/internal/fsx"
	"github.com/forge-stack/forge/internal/manifest"
	"github.com/forge-stack/forge/internal/version"
)

// InstalledFileName is the install record file within a scope root.
const InstalledFileName = "installed.json"

// InstalledPiece records one item written to disk for a package.
type InstalledPiece struct {
	// Type is the item group (agents, tools, ...).
	Type manifest.ItemType `json:"type"`

	// Name is the item identifier.
	Name string `json:"name"`

	// Version is the item version.
	Version string `json:"version"`

	// Path is the file the item content was written to.
	Path string `json:"path"`
}

// InstalledItem is the on-disk record of an installed package.
// Records are keyed by (name, version, scope) and never mutated in
// place; an upgrade installs a new record.
type InstalledItem struct {
	// Name is the package identifier.
	Name string `json:"name"`

	// Version is the installed version.
	Version string `json:"version"`

	// Scope is "global" or "local".
	Scope string `json:"scope"`

	// Registry is the source registry name. Empty for local overrides
	// placed by hand.
	Registry string `json:"registry,omitempty"`

	// SourceChecksum is the plugin manifest checksum at install time.
	SourceChecksum string `json:"source_checksum"`

	// InstallPath is where the plugin manifest copy lives.
	InstallPath string `json:"install_path"`

	// InstalledAt is when the package was installed.
	InstalledAt time.Time `json:"installed_at"`

	// Items are the individual pieces written for this package.
	Items []InstalledPiece `json:"items,omitempty"`
}

// Key returns the record key for a name/version pair.
func Key(name, versionStr string) string {
	return name + "@" + versionStr
}

// InstalledFile is the installed.json document.
type InstalledFile struct {
	// Items maps "name@version" to installation records.
	Items map[string]InstalledItem `json:"items"`
}

// InstalledStore manages installed.json for one scope.
type InstalledStore struct {
	path  string
	scope string
}

// NewInstalledStore creates a store under the given scope root.
func NewInstalledStore(root, scope string) *InstalledStore {
	return &InstalledStore{
		path:  filepath.Join(root, InstalledFileName),
		scope: scope,
	}
}

// Scope returns the store's scope ("global" or "local").
func (s *InstalledStore) Scope() string {
	return s.scope
}

// Path returns the store's file path.
func (s *InstalledStore) Path() string {
	return s.path
}

// Load reads the installed file, returning an empty struct if not exists.
func (s *InstalledStore) Load() (*InstalledFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &InstalledFile{Items: make(map[string]InstalledItem)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading installed file: %w", err)
	}

	var f InstalledFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing installed file: %w", err)
	}

	if f.Items == nil {
		f.Items = make(map[string]InstalledItem)
	}

	return &f, nil
}

// Save writes the installed file atomically.
func (s *InstalledStore) Save(f *InstalledFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling installed: %w", err)
	}

	if err := fsx.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing installed file: %w", err)
	}

	return nil
}

// Add tracks a newly installed package.
func (s *InstalledStore) Add(item InstalledItem) error {
	f, err := s.Load()
	if err != nil {
		return err
	}

	item.Scope = s.scope
	if item.InstalledAt.IsZero() {
		item.InstalledAt = time.Now()
	}
	f.Items[Key(item.Name, item.Version)] = item

	return s.Save(f)
}

// Remove untracks an installed package. Returns false if it was absent.
func (s *InstalledStore) Remove(name, versionStr string) (bool, error) {
	f, err := s.Load()
	if err != nil {
		return false, err
	}

	key := Key(name, versionStr)
	if _, exists := f.Items[key]; !exists {
		return false, nil
	}

	delete(f.Items, key)
	return true, s.Save(f)
}

// Get returns the record for an exact name/version pair, or nil.
func (s *InstalledStore) Get(name, versionStr string) (*InstalledItem, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}

	item, exists := f.Items[Key(name, versionStr)]
	if !exists {
		return nil, nil // Not an error, just not installed
	}

	return &item, nil
}

// Latest returns the highest installed version of a package, or nil.
func (s *InstalledStore) Latest(name string) (*InstalledItem, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}

	var best *InstalledItem
	for key := range f.Items {
		item := f.Items[key]
		if item.Name != name {
			continue
		}
		if best == nil {
			best = &item
			continue
		}
		cmp, err := version.Compare(item.Version, best.Version)
		if err != nil {
			return nil, fmt.Errorf("comparing installed versions: %w", err)
		}
		if cmp > 0 {
			best = &item
		}
	}

	return best, nil
}

// All returns every installed version of a package.
func (s *InstalledStore) All(name string) ([]InstalledItem, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}

	var out []InstalledItem
	for _, item := range f.Items {
		if item.Name == name {
			out = append(out, item)
		}
	}
	return out, nil
}

// List returns all installed packages.
func (s *InstalledStore) List() (map[string]InstalledItem, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	return f.Items, nil
}
