package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forge-stack/forge/internal/cache"
	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/manifest"
)

func testRegistryManifest() manifest.RegistryManifest {
	checksum := "sha256:" + repeat64("a")
	return manifest.RegistryManifest{
		Name:    "acme",
		Version: "1.0.0",
		Plugins: []manifest.PluginReference{
			{
				Name:        "@acme/git-flow",
				Version:     "1.0.0",
				Description: "Git workflow helpers",
				ManifestURL: "https://plugins.acme.dev/git-flow/1.0.0/manifest.json",
				Tags:        []string{"git", "workflow"},
				Checksum:    checksum,
			},
			{
				Name:        "@acme/git-flow",
				Version:     "1.2.0",
				Description: "Git workflow helpers",
				ManifestURL: "https://plugins.acme.dev/git-flow/1.2.0/manifest.json",
				Tags:        []string{"git", "workflow"},
				Checksum:    checksum,
			},
			{
				Name:        "release-notes",
				Version:     "2.0.0",
				Description: "Changelog generation",
				ManifestURL: "https://plugins.acme.dev/release-notes/2.0.0/manifest.json",
				Tags:        []string{"release"},
				Checksum:    checksum,
			},
		},
	}
}

// newTestResolver serves the given manifest from an httptest server and
// returns a resolver backed by a fresh cache, plus a fetch counter.
func newTestResolver(t *testing.T, man manifest.RegistryManifest) (*ManifestResolver, *atomic.Int32) {
	t.Helper()

	var fetches atomic.Int32
	data, err := json.Marshal(man)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	cfg := config.RegistryConfig{
		Name:            "acme",
		Kind:            config.KindManifest,
		URL:             srv.URL,
		Enabled:         true,
		CacheTTLSeconds: 3600,
	}
	mgr := cache.NewManager(cache.NewStore(t.TempDir()))
	return NewManifestResolver(cfg, mgr, Options{Client: srv.Client()}), &fetches
}

func TestManifestResolver_FetchManifestCaches(t *testing.T) {
	r, fetches := newTestResolver(t, testRegistryManifest())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		man, err := r.FetchManifest(ctx)
		if err != nil {
			t.Fatalf("FetchManifest() error: %v", err)
		}
		if man.Name != "acme" {
			t.Errorf("manifest name = %q", man.Name)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("fetch count = %d, want 1 (cache should absorb repeats)", n)
	}
}

func TestManifestResolver_FetchManifestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.RegistryConfig{Name: "acme", Kind: config.KindManifest, URL: srv.URL}
	mgr := cache.NewManager(cache.NewStore(t.TempDir()))
	r := NewManifestResolver(cfg, mgr, Options{Client: srv.Client()})

	_, err := r.FetchManifest(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !errors.IsNetwork(err) {
		t.Errorf("expected network error kind, got %v", errors.KindOf(err))
	}
	if !errors.HasCode(err, errors.CodeNetworkStatus) {
		t.Errorf("expected code %s, got %s", errors.CodeNetworkStatus, errors.CodeOf(err))
	}
}

func TestManifestResolver_AuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		data, _ := json.Marshal(testRegistryManifest())
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	t.Setenv("ACME_REGISTRY_TOKEN", "s3cret")

	cfg := config.RegistryConfig{
		Name:         "acme",
		Kind:         config.KindManifest,
		URL:          srv.URL,
		AuthTokenEnv: "ACME_REGISTRY_TOKEN",
	}
	mgr := cache.NewManager(cache.NewStore(t.TempDir()))
	r := NewManifestResolver(cfg, mgr, Options{Client: srv.Client()})

	if _, err := r.FetchManifest(context.Background()); err != nil {
		t.Fatalf("FetchManifest() error: %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization header = %q, want bearer token from env", gotAuth)
	}
}

func TestManifestResolver_Search(t *testing.T) {
	r, _ := newTestResolver(t, testRegistryManifest())
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		filters SearchFilters
		want    int
	}{
		{name: "empty query matches all", query: "", want: 3},
		{name: "name substring", query: "git-flow", want: 2},
		{name: "description substring", query: "changelog", want: 1},
		{name: "tag match", query: "release", want: 1},
		{name: "no match", query: "nonexistent", want: 0},
		{name: "tag filter", query: "", filters: SearchFilters{Tag: "git"}, want: 2},
		{name: "query and tag filter", query: "helpers", filters: SearchFilters{Tag: "release"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Search(ctx, tt.query, tt.filters)
			if err != nil {
				t.Fatalf("Search() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Search(%q) returned %d results, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}

func TestManifestResolver_ResolveItem(t *testing.T) {
	r, _ := newTestResolver(t, testRegistryManifest())
	ctx := context.Background()

	tests := []struct {
		name       string
		item       string
		constraint string
		want       string
		wantCode   string
	}{
		{name: "caret picks highest compatible", item: "@acme/git-flow", constraint: "^1.0.0", want: "1.2.0"},
		{name: "tilde pins minor", item: "@acme/git-flow", constraint: "~1.0.0", want: "1.0.0"},
		{name: "exact version", item: "@acme/git-flow", constraint: "1.0.0", want: "1.0.0"},
		{name: "wildcard picks latest", item: "@acme/git-flow", constraint: "*", want: "1.2.0"},
		{name: "empty constraint means latest", item: "release-notes", constraint: "", want: "2.0.0"},
		{name: "unknown name", item: "missing", constraint: "*", wantCode: errors.CodeItemNotFound},
		{name: "unsatisfiable constraint", item: "@acme/git-flow", constraint: "^3.0.0", wantCode: errors.CodeVersionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := r.ResolveItem(ctx, tt.item, tt.constraint)
			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("expected error code %s, got ref %+v", tt.wantCode, ref)
				}
				if !errors.HasCode(err, tt.wantCode) {
					t.Errorf("error code = %s, want %s", errors.CodeOf(err), tt.wantCode)
				}
				if !errors.IsNotFound(err) {
					t.Errorf("resolution misses should be not-found kind, got %v", errors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveItem() error: %v", err)
			}
			if ref.Version != tt.want {
				t.Errorf("resolved version = %s, want %s", ref.Version, tt.want)
			}
		})
	}
}

func TestManifestResolver_AllowStaleServesExpired(t *testing.T) {
	var failing atomic.Bool
	data, _ := json.Marshal(testRegistryManifest())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	cfg := config.RegistryConfig{
		Name:            "acme",
		Kind:            config.KindManifest,
		URL:             srv.URL,
		CacheTTLSeconds: 1,
	}
	mgr := cache.NewManager(cache.NewStore(t.TempDir()))
	r := NewManifestResolver(cfg, mgr, Options{Client: srv.Client(), AllowStale: true})
	ctx := context.Background()

	if _, err := r.FetchManifest(ctx); err != nil {
		t.Fatalf("priming fetch error: %v", err)
	}

	// Let the entry expire, then take the registry down.
	time.Sleep(1100 * time.Millisecond)
	failing.Store(true)

	man, err := r.FetchManifest(ctx)
	if err != nil {
		t.Fatalf("expected stale manifest when refresh fails, got error: %v", err)
	}
	if man.Name != "acme" {
		t.Errorf("stale manifest name = %q", man.Name)
	}
}

func TestManifestResolver_Download(t *testing.T) {
	r, _ := newTestResolver(t, testRegistryManifest())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("plugin manifest bytes"))
	}))
	defer srv.Close()

	got, err := r.Download(context.Background(), srv.URL+"/manifest.json")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(got) != "plugin manifest bytes" {
		t.Errorf("Download() = %q", got)
	}
}

func TestNew_DispatchesOnKind(t *testing.T) {
	mgr := cache.NewManager(cache.NewStore(t.TempDir()))

	r, err := New(config.RegistryConfig{Name: "acme", Kind: config.KindManifest, URL: "https://x.dev/m.json"}, mgr, Options{})
	if err != nil {
		t.Fatalf("New(manifest) error: %v", err)
	}
	if r.Name() != "acme" {
		t.Errorf("Name() = %q", r.Name())
	}

	_, err = New(config.RegistryConfig{Name: "other", Kind: config.KindAPI}, mgr, Options{})
	if err == nil {
		t.Fatal("New(api) should fail until the backend exists")
	}
	if !errors.HasCode(err, errors.CodeRegistryUnsupported) {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.CodeRegistryUnsupported)
	}
}
