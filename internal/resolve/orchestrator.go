// Package resolve implements tiered package resolution.
//
// A lookup consults three tiers in order, returning the first hit:
//  1. local: the project's installed records
//  2. global: the user's installed records
//  3. remote: each enabled registry, in priority order
//
// Any installed copy of a name short-circuits all network access,
// regardless of the version constraint.
package resolve

import (
	"context"
	"log/slog"
	"sort"

	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/logging"
	"github.com/forge-stack/forge/internal/manifest"
	"github.com/forge-stack/forge/internal/registry"
)

// Tier identifies which tier satisfied a resolution.
type Tier string

const (
	TierLocal  Tier = "local"
	TierGlobal Tier = "global"
	TierRemote Tier = "remote"
)

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	// Name is the resolved package name.
	Name string

	// Version is the concrete version picked for the constraint.
	Version string

	// Tier is where the package was found.
	Tier Tier

	// Installed is the existing record for local/global hits, nil for
	// remote hits.
	Installed *registry.InstalledItem

	// Registry is the source registry name for remote hits.
	Registry string

	// Ref is the registry listing for remote hits, nil otherwise.
	Ref *manifest.PluginReference

	// Resolver can download the plugin's content for remote hits, nil
	// otherwise.
	Resolver registry.Resolver
}

// Options adjust a lookup.
type Options struct {
	// SkipInstalled bypasses the local and global tiers, forcing a
	// remote resolution even when a satisfying copy is installed.
	SkipInstalled bool
}

// ResolverFactory builds a backend for one configured registry.
type ResolverFactory func(cfg config.RegistryConfig) (registry.Resolver, error)

// Orchestrator performs tiered lookups over the installed stores and
// the configured registries.
type Orchestrator struct {
	local       *registry.InstalledStore
	global      *registry.InstalledStore
	registries  []config.RegistryConfig
	newResolver ResolverFactory
	logger      *slog.Logger
}

// New creates an orchestrator. local may be nil when no project scope
// exists. registries must already be filtered to enabled entries and
// sorted by priority.
func New(local, global *registry.InstalledStore, registries []config.RegistryConfig, factory ResolverFactory, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		local:       local,
		global:      global,
		registries:  registries,
		newResolver: factory,
		logger:      logger,
	}
}

// Registries returns the configured registries in lookup order.
func (o *Orchestrator) Registries() []config.RegistryConfig {
	return o.registries
}

// Resolve finds the best source for a package. An empty constraint
// means "latest".
//
// Installed tiers match by name alone: any installed copy wins and
// short-circuits all network access, whatever the constraint says.
// Constraints only select among remote listings. This ordering must
// never change; a project that installed a package keeps resolving to
// that copy even when a registry lists something newer.
//
// Not-found results from one registry let the lookup continue to the
// next; any other registry failure aborts, so a flaky registry cannot
// silently shadow the one that actually carries the package.
func (o *Orchestrator) Resolve(ctx context.Context, name, constraint string, opts Options) (*Resolution, error) {
	if !opts.SkipInstalled {
		for _, store := range []*registry.InstalledStore{o.local, o.global} {
			if store == nil {
				continue
			}
			res, err := o.resolveInstalled(store, name)
			if err != nil {
				return nil, err
			}
			if res != nil {
				o.logger.Debug("resolved from installed tier",
					"name", name, "version", res.Version, "tier", res.Tier)
				return res, nil
			}
		}
	}

	return o.resolveRemote(ctx, name, constraint)
}

// resolveInstalled checks one installed store for the package, picking
// the highest installed version. A nil result with nil error means the
// tier has no copy.
func (o *Orchestrator) resolveInstalled(store *registry.InstalledStore, name string) (*Resolution, error) {
	item, err := store.Latest(name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	tier := TierGlobal
	if store.Scope() == config.ScopeLocal {
		tier = TierLocal
	}
	return &Resolution{
		Name:      name,
		Version:   item.Version,
		Tier:      tier,
		Installed: item,
	}, nil
}

// resolveRemote walks the registries in priority order.
func (o *Orchestrator) resolveRemote(ctx context.Context, name, constraint string) (*Resolution, error) {
	var lastMiss error

	for _, cfg := range o.registries {
		logger := logging.WithRegistry(o.logger, cfg.Name)
		r, err := o.newResolver(cfg)
		if err != nil {
			return nil, err
		}

		ref, err := r.ResolveItem(ctx, name, constraint)
		if err != nil {
			if errors.IsNotFound(err) {
				lastMiss = err
				logger.Debug("not found in registry, continuing", "name", name)
				continue
			}
			return nil, err
		}

		logger.Debug("resolved from remote tier",
			"name", name, "version", ref.Version)
		return &Resolution{
			Name:     name,
			Version:  ref.Version,
			Tier:     TierRemote,
			Registry: cfg.Name,
			Ref:      ref,
			Resolver: r,
		}, nil
	}

	// A version miss is more specific than a name miss, so prefer it.
	if errors.HasCode(lastMiss, errors.CodeVersionNotFound) {
		return nil, lastMiss
	}
	return nil, errors.ItemNotFound(name).
		WithContext("constraint", constraint).
		WithContext("registries_checked", len(o.registries))
}

// SearchResult pairs a listing with the registry it came from.
type SearchResult struct {
	Registry string
	Ref      manifest.PluginReference
}

// SearchAll queries every registry and merges the results, deduplicated
// by name and version. The first registry in priority order wins a
// duplicate. Results come back sorted by name, then version.
func (o *Orchestrator) SearchAll(ctx context.Context, query string, filters registry.SearchFilters) ([]SearchResult, error) {
	seen := make(map[string]bool)
	var out []SearchResult

	for _, cfg := range o.registries {
		r, err := o.newResolver(cfg)
		if err != nil {
			return nil, err
		}

		refs, err := r.Search(ctx, query, filters)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			key := registry.Key(ref.Name, ref.Version)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, SearchResult{Registry: cfg.Name, Ref: ref})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Ref.Name != out[j].Ref.Name {
			return out[i].Ref.Name < out[j].Ref.Name
		}
		return out[i].Ref.Version < out[j].Ref.Version
	})
	return out, nil
}
