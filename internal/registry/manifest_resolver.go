package registry

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/forge-stack/forge/internal/cache"
	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/manifest"
	"github.com/forge-stack/forge/internal/version"
)

// ManifestResolver queries a registry that serves a static manifest
// document over HTTPS. Manifest reads go through the cache layer;
// downloads always hit the network.
type ManifestResolver struct {
	cfg        config.RegistryConfig
	cache      *cache.Manager
	client     *http.Client
	allowStale bool
}

// NewManifestResolver creates a manifest-backed resolver.
func NewManifestResolver(cfg config.RegistryConfig, mgr *cache.Manager, opts Options) *ManifestResolver {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &ManifestResolver{
		cfg:        cfg,
		cache:      mgr,
		client:     client,
		allowStale: opts.AllowStale,
	}
}

// Name returns the configured registry name.
func (r *ManifestResolver) Name() string {
	return r.cfg.Name
}

// FetchManifest returns the registry manifest through the cache layer.
func (r *ManifestResolver) FetchManifest(ctx context.Context) (*manifest.RegistryManifest, error) {
	return r.cache.Get(ctx, r.cfg.Name, r.cfg.URL, r.cfg.TTL(), r.fetchRemote, cache.GetOptions{
		AllowStale: r.allowStale,
	})
}

// fetchRemote retrieves the raw manifest document from the registry URL.
func (r *ManifestResolver) fetchRemote(ctx context.Context) ([]byte, error) {
	return r.get(ctx, r.cfg.URL)
}

// get performs one authenticated GET, translating transport failures
// into the network error taxonomy.
func (r *ManifestResolver) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NetworkRequest(url, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.AuthTokenEnv != "" {
		if token := os.Getenv(r.cfg.AuthTokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.NetworkRequest(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NetworkStatus(url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NetworkRequest(url, err)
	}
	return data, nil
}

// Search returns references whose name, description, or tags match the
// query. An empty query matches everything.
func (r *ManifestResolver) Search(ctx context.Context, query string, filters SearchFilters) ([]manifest.PluginReference, error) {
	man, err := r.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var out []manifest.PluginReference
	for _, ref := range man.Plugins {
		if !matchesQuery(ref, q) {
			continue
		}
		if filters.Tag != "" && !hasTag(ref.Tags, filters.Tag) {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

func matchesQuery(ref manifest.PluginReference, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(ref.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(ref.Description), q) {
		return true
	}
	return hasTag(ref.Tags, q)
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// ResolveItem returns the best listed version of a package satisfying
// the constraint. A registry may list several versions of one name; a
// single-version listing degenerates to checking that one version.
func (r *ManifestResolver) ResolveItem(ctx context.Context, name, constraint string) (*manifest.PluginReference, error) {
	man, err := r.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	versions := man.VersionsOf(name)
	if len(versions) == 0 {
		return nil, errors.ItemNotFound(name).WithContext("registry", r.cfg.Name)
	}

	best, err := version.Resolve(versions, constraint)
	if err != nil {
		return nil, errors.ManifestInvalid(r.cfg.Name, err)
	}
	if best == "" {
		return nil, errors.VersionNotFound(name, constraint).WithContext("registry", r.cfg.Name)
	}

	ref := man.Find(name, best)
	if ref == nil {
		// VersionsOf and Find disagree only if the manifest mutated
		// underneath us, which the cache layer prevents.
		return nil, errors.ItemNotFound(name).WithContext("registry", r.cfg.Name)
	}
	return ref, nil
}

// Download fetches raw content bytes. Checksum verification is the
// installer's job.
func (r *ManifestResolver) Download(ctx context.Context, url string) ([]byte, error) {
	return r.get(ctx, url)
}
