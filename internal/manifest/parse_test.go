package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forge-stack/forge/internal/errors"
)

func registryManifestJSON(t *testing.T) []byte {
	t.Helper()
	m := goodRegistryManifest()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	return data
}

func pluginManifestJSON(t *testing.T) []byte {
	t.Helper()
	m := goodPluginManifest()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	return data
}

func TestParseRegistryManifest(t *testing.T) {
	m, err := ParseRegistryManifest(registryManifestJSON(t))
	if err != nil {
		t.Fatalf("ParseRegistryManifest() error: %v", err)
	}

	if m.Name != "acme" {
		t.Errorf("Name = %q, want acme", m.Name)
	}
	if len(m.Plugins) != 1 {
		t.Fatalf("len(Plugins) = %d, want 1", len(m.Plugins))
	}
	if m.Plugins[0].Name != "@acme/git-flow" {
		t.Errorf("Plugins[0].Name = %q, want @acme/git-flow", m.Plugins[0].Name)
	}
}

func TestParseRegistryManifest_InvalidJSON(t *testing.T) {
	_, err := ParseRegistryManifest([]byte("{not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !errors.HasCode(err, errors.CodeManifestParse) {
		t.Errorf("error code = %q, want %q", errors.CodeOf(err), errors.CodeManifestParse)
	}
}

func TestParseRegistryManifest_ValidationFailure(t *testing.T) {
	m := goodRegistryManifest()
	m.Plugins[0].Checksum = "sha256:short"
	data, _ := json.Marshal(m)

	_, err := ParseRegistryManifest(data)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.HasCode(err, errors.CodeManifestInvalid) {
		t.Errorf("error code = %q, want %q", errors.CodeOf(err), errors.CodeManifestInvalid)
	}
	if !strings.Contains(err.Error(), "checksum") {
		t.Errorf("error should name the offending field, got %v", err)
	}
}

func TestParseRegistryManifest_WrongFieldType(t *testing.T) {
	raw := `{"name": "acme", "version": "1.0.0", "plugins": [
		{"name": 42, "version": "1.0.0",
		 "manifest_url": "https://plugins.acme.dev/m.json",
		 "checksum": "sha256:` + strings.Repeat("a", 64) + `"}
	]}`

	_, err := ParseRegistryManifest([]byte(raw))
	if err == nil {
		t.Fatal("expected error for wrong field type")
	}
	if errors.KindOf(err) != errors.KindValidation {
		t.Errorf("error kind = %q, want validation", errors.KindOf(err))
	}
}

func TestParsePluginManifest(t *testing.T) {
	m, err := ParsePluginManifest(pluginManifestJSON(t))
	if err != nil {
		t.Fatalf("ParsePluginManifest() error: %v", err)
	}

	if m.Name != "@acme/git-flow" {
		t.Errorf("Name = %q, want @acme/git-flow", m.Name)
	}
	items := m.Items()
	if len(items) != 1 {
		t.Fatalf("len(Items()) = %d, want 1", len(items))
	}
	if items[0].Type != TypeAgent {
		t.Errorf("Items()[0].Type = %q, want %q", items[0].Type, TypeAgent)
	}
}

func TestParsePluginManifest_DependenciesKeptForInstaller(t *testing.T) {
	// Unresolvable dependency names are accepted at parse time;
	// existence is the installer's concern.
	m := goodPluginManifest()
	m.Agents[0].Dependencies = []string{"no-such-item"}
	data, _ := json.Marshal(m)

	parsed, err := ParsePluginManifest(data)
	if err != nil {
		t.Fatalf("ParsePluginManifest() error: %v", err)
	}
	if len(parsed.Agents[0].Dependencies) != 1 {
		t.Errorf("dependencies should be preserved, got %v", parsed.Agents[0].Dependencies)
	}
}

func TestLoadRegistryManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.json")
	if err := os.WriteFile(path, registryManifestJSON(t), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	m, err := LoadRegistryManifest(path)
	if err != nil {
		t.Fatalf("LoadRegistryManifest() error: %v", err)
	}
	if m.Name != "acme" {
		t.Errorf("Name = %q, want acme", m.Name)
	}

	_, err = LoadRegistryManifest(filepath.Join(dir, "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.HasCode(err, errors.CodeIORead) {
		t.Errorf("error code = %q, want %q", errors.CodeOf(err), errors.CodeIORead)
	}
}

func TestRegistryManifest_VersionsOf(t *testing.T) {
	m := goodRegistryManifest()
	second := goodReference()
	second.Version = "1.3.0"
	m.Plugins = append(m.Plugins, second)

	versions := m.VersionsOf("@acme/git-flow")
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}
	if versions[0] != "1.2.0" || versions[1] != "1.3.0" {
		t.Errorf("versions = %v, want [1.2.0 1.3.0]", versions)
	}

	if got := m.VersionsOf("unknown"); got != nil {
		t.Errorf("VersionsOf(unknown) = %v, want nil", got)
	}
}

func TestRegistryManifest_Find(t *testing.T) {
	m := goodRegistryManifest()

	if ref := m.Find("@acme/git-flow", "1.2.0"); ref == nil {
		t.Error("Find should locate the listed version")
	}
	if ref := m.Find("@acme/git-flow", "9.9.9"); ref != nil {
		t.Error("Find should return nil for unlisted version")
	}
}

func TestPluginManifest_HasItem(t *testing.T) {
	m := goodPluginManifest()
	m.Commands = []PluginCommand{{
		Name:     "sync",
		Version:  "1.0.0",
		Source:   "https://plugins.acme.dev/sync.sh",
		Checksum: goodChecksum,
	}}

	if !m.HasItem("branch-agent") {
		t.Error("HasItem should find agent items")
	}
	if !m.HasItem("sync") {
		t.Error("HasItem should find command items")
	}
	if m.HasItem("missing") {
		t.Error("HasItem should not find unknown names")
	}
}
