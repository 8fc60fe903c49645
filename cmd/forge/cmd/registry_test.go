package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/forge-stack/forge/internal/config"
)

// setTestHome isolates the global config and registry state.
func setTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func resetRegistryAddFlags() {
	registryAddKind = string(config.KindManifest)
	registryAddPriority = 0
	registryAddTTL = 0
	registryAddAuthEnv = ""
	registryAddDisabled = false
	registryAddProject = false
}

func TestRegistryAddAndList(t *testing.T) {
	setTestHome(t)
	resetRegistryAddFlags()
	registryAddPriority = 5

	var buf bytes.Buffer
	registryAddCmd.SetOut(&buf)
	if err := runRegistryAdd(registryAddCmd, []string{"acme", "https://plugins.acme.dev/registry.json"}); err != nil {
		t.Fatalf("runRegistryAdd failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Added registry") {
		t.Errorf("unexpected output: %q", buf.String())
	}

	path, err := config.GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	reg := cfg.FindRegistry("acme")
	if reg == nil {
		t.Fatal("registry not persisted")
	}
	if reg.Priority != 5 || !reg.Enabled {
		t.Errorf("persisted registry = %+v", reg)
	}

	buf.Reset()
	registryListCmd.SetOut(&buf)
	if err := runRegistryList(registryListCmd, nil); err != nil {
		t.Fatalf("runRegistryList failed: %v", err)
	}
	if !strings.Contains(buf.String(), "acme") {
		t.Errorf("list output missing registry: %q", buf.String())
	}
}

func TestRegistryAddRejectsPlainHTTP(t *testing.T) {
	setTestHome(t)
	resetRegistryAddFlags()

	err := runRegistryAdd(registryAddCmd, []string{"acme", "http://plugins.acme.dev/registry.json"})
	if err == nil {
		t.Fatal("plain HTTP registry URL should be rejected")
	}
}

func TestRegistryAddUpdatesExisting(t *testing.T) {
	setTestHome(t)
	resetRegistryAddFlags()

	var buf bytes.Buffer
	registryAddCmd.SetOut(&buf)
	if err := runRegistryAdd(registryAddCmd, []string{"acme", "https://old.acme.dev/registry.json"}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	buf.Reset()
	if err := runRegistryAdd(registryAddCmd, []string{"acme", "https://new.acme.dev/registry.json"}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Updated registry") {
		t.Errorf("expected update message, got: %q", buf.String())
	}

	path, _ := config.GlobalPath()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Registries) != 1 {
		t.Errorf("got %d registries, want 1 (upsert, not append)", len(cfg.Registries))
	}
	if cfg.Registries[0].URL != "https://new.acme.dev/registry.json" {
		t.Errorf("URL = %q, want the updated one", cfg.Registries[0].URL)
	}
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	setTestHome(t)

	oldProject := registryRemoveProject
	defer func() { registryRemoveProject = oldProject }()
	registryRemoveProject = false

	var buf bytes.Buffer
	registryRemoveCmd.SetOut(&buf)
	if err := runRegistryRemove(registryRemoveCmd, []string{"ghost"}); err != nil {
		t.Fatalf("removing an unconfigured registry should not fail: %v", err)
	}
	if !strings.Contains(buf.String(), "nothing to remove") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestRegistryRemove(t *testing.T) {
	setTestHome(t)
	resetRegistryAddFlags()

	var buf bytes.Buffer
	registryAddCmd.SetOut(&buf)
	if err := runRegistryAdd(registryAddCmd, []string{"acme", "https://plugins.acme.dev/registry.json"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	buf.Reset()
	registryRemoveCmd.SetOut(&buf)
	if err := runRegistryRemove(registryRemoveCmd, []string{"acme"}); err != nil {
		t.Fatalf("runRegistryRemove failed: %v", err)
	}

	path, _ := config.GlobalPath()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FindRegistry("acme") != nil {
		t.Error("registry still configured after remove")
	}
}
