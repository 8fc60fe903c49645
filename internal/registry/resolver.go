package registry

import (
	"context"
	"net/http"
	"time"

	"github.com/forge-stack/forge/internal/cache"
	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/manifest"
)

// SearchFilters narrow a registry search.
type SearchFilters struct {
	// Tag requires results to carry the given tag.
	Tag string
}

// Resolver abstracts over how a registry is queried, so new backends can
// be added without touching the resolution orchestrator.
//
// Failure semantics: transport failures surface as network errors
// (retryable by caller policy); malformed manifests as validation errors
// (not retryable); missing names or versions as not-found errors (the
// caller may continue to the next registry in priority order).
type Resolver interface {
	// Name returns the configured registry name.
	Name() string

	// FetchManifest returns the registry manifest, served through the
	// cache layer.
	FetchManifest(ctx context.Context) (*manifest.RegistryManifest, error)

	// Search returns references matching a free-text query.
	Search(ctx context.Context, query string, filters SearchFilters) ([]manifest.PluginReference, error)

	// ResolveItem returns the best reference for a name and version
	// constraint.
	ResolveItem(ctx context.Context, name, constraint string) (*manifest.PluginReference, error)

	// Download fetches raw content for later checksum verification.
	Download(ctx context.Context, url string) ([]byte, error)
}

// DefaultRequestTimeout bounds a single registry request when the caller
// supplies no deadline of its own.
const DefaultRequestTimeout = 30 * time.Second

// Options configure resolver construction.
type Options struct {
	// AllowStale passes through to the cache layer: serve an expired
	// manifest when the re-fetch fails.
	AllowStale bool

	// Client overrides the HTTP client (for tests). Nil means a client
	// with DefaultRequestTimeout.
	Client *http.Client
}

// New constructs the resolver backend selected by the registry's kind.
func New(cfg config.RegistryConfig, mgr *cache.Manager, opts Options) (Resolver, error) {
	switch cfg.Kind {
	case config.KindManifest:
		return NewManifestResolver(cfg, mgr, opts), nil
	case config.KindAPI:
		// Reserved for a future API-backed registry.
		return nil, errors.RegistryUnsupported(cfg.Name, string(cfg.Kind)).
			WithContext("reason", "api registries are not yet supported")
	default:
		return nil, errors.RegistryUnsupported(cfg.Name, string(cfg.Kind))
	}
}
