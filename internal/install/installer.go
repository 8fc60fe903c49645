// Package install performs transactional package installation.
//
// An install is a transaction over the whole dependency closure: every
// file write and record update is tracked, and any failure rolls all of
// them back so the scope root never holds a partial install.
package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/fsx"
	"github.com/forge-stack/forge/internal/logging"
	"github.com/forge-stack/forge/internal/manifest"
	"github.com/forge-stack/forge/internal/registry"
	"github.com/forge-stack/forge/internal/resolve"
)

// Options adjust installer behavior.
type Options struct {
	// VerifyChecksums enables SHA-256 verification of downloaded
	// content before anything touches disk.
	VerifyChecksums bool

	// AutoInstallDependencies walks declared dependencies and installs
	// the missing ones. When off, unsatisfied dependencies are logged
	// and left to the user.
	AutoInstallDependencies bool

	// Force reinstalls the requested package even when an installed
	// copy satisfies the constraint. Dependencies still reuse
	// installed copies.
	Force bool

	// DryRun resolves and plans the full closure without writing
	// files or records.
	DryRun bool
}

// Action describes one package the installer acted on.
type Action struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Registry string `json:"registry,omitempty"`

	// Reason is "requested" for the named package, "dependency" for
	// packages pulled in by the closure walk.
	Reason string `json:"reason"`
}

// Report summarizes an install transaction.
type Report struct {
	// Installed lists packages written (or planned, under dry-run).
	Installed []Action `json:"installed"`

	// Reused lists packages satisfied by an existing install.
	Reused []Action `json:"reused,omitempty"`

	// DryRun records whether the transaction was a plan only.
	DryRun bool `json:"dry_run,omitempty"`
}

// Installer installs packages into one scope root.
type Installer struct {
	orch   *resolve.Orchestrator
	root   string
	store  *registry.InstalledStore
	logger *slog.Logger
	opts   Options

	// mirror, when set, replicates local installs into the global
	// scope so later projects resolve them without the network.
	mirrorRoot  string
	mirrorStore *registry.InstalledStore
}

// New creates an installer writing under root and recording in store.
func New(orch *resolve.Orchestrator, root string, store *registry.InstalledStore, logger *slog.Logger, opts Options) *Installer {
	return &Installer{
		orch:   orch,
		root:   root,
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// WithMirror replicates every install into a second scope root. Used
// for the auto-cache behavior where local installs also populate the
// global cache.
func (i *Installer) WithMirror(root string, store *registry.InstalledStore) *Installer {
	i.mirrorRoot = root
	i.mirrorStore = store
	return i
}

// work is one pending closure entry.
type work struct {
	name       string
	constraint string
	reason     string
}

// Install resolves and installs a package and its dependency closure.
// An empty constraint means "latest".
func (i *Installer) Install(ctx context.Context, name, constraint string) (*Report, error) {
	report := &Report{DryRun: i.opts.DryRun}
	tx := &txn{}

	queue := []work{{name: name, constraint: constraint, reason: "requested"}}

	// Dependencies are referenced by bare name, so one resolution per
	// name covers the closure. If dependency references ever grow
	// version constraints, this must key by name@version instead.
	visited := make(map[string]bool)

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if visited[w.name] {
			continue
		}
		visited[w.name] = true

		skipInstalled := i.opts.Force && w.reason == "requested"
		res, err := i.orch.Resolve(ctx, w.name, w.constraint, resolve.Options{SkipInstalled: skipInstalled})
		if err != nil {
			if w.reason == "dependency" && errors.IsNotFound(err) {
				err = errors.DependencyMissing(name, w.name).WithCause(err)
			}
			return nil, i.abort(tx, w.name, err)
		}

		if res.Tier != resolve.TierRemote {
			i.logger.Debug("reusing installed package",
				"name", res.Name, "version", res.Version, "tier", res.Tier)
			report.Reused = append(report.Reused, Action{
				Name:    res.Name,
				Version: res.Version,
				Reason:  w.reason,
			})
			continue
		}

		deps, err := i.installOne(ctx, res, w.reason, tx, report)
		if err != nil {
			return nil, i.abort(tx, w.name, err)
		}
		queue = append(queue, deps...)
	}

	return report, nil
}

// installOne downloads, verifies, and writes a single package, returning
// dependency work discovered in its manifest.
func (i *Installer) installOne(ctx context.Context, res *resolve.Resolution, reason string, tx *txn, report *Report) ([]work, error) {
	data, err := res.Resolver.Download(ctx, res.Ref.ManifestURL)
	if err != nil {
		return nil, err
	}

	if i.opts.VerifyChecksums {
		if err := verifyChecksum(res.Name, res.Version, res.Ref.Checksum, data); err != nil {
			return nil, err
		}
	}

	man, err := manifest.ParsePluginManifest(data)
	if err != nil {
		return nil, err
	}
	if man.Name != res.Name {
		return nil, errors.ManifestInvalid(res.Ref.ManifestURL, nil).
			WithContext("listed_name", res.Name).
			WithContext("manifest_name", man.Name)
	}

	var deps []work
	for _, ti := range man.Items() {
		for _, dep := range ti.Item.Dependencies {
			if man.HasItem(dep) {
				continue
			}
			if !i.opts.AutoInstallDependencies {
				i.logger.Warn("skipping dependency, auto-install disabled",
					"package", res.Name, "dependency", dep)
				continue
			}
			deps = append(deps, work{name: dep, reason: "dependency"})
		}
	}

	if i.opts.DryRun {
		report.Installed = append(report.Installed, Action{
			Name:     res.Name,
			Version:  res.Version,
			Registry: res.Registry,
			Reason:   reason,
		})
		return deps, nil
	}

	if err := i.writePackage(ctx, res, man, data, i.root, i.store, tx); err != nil {
		return nil, err
	}
	if i.mirrorStore != nil {
		if err := i.writePackage(ctx, res, man, data, i.mirrorRoot, i.mirrorStore, tx); err != nil {
			return nil, err
		}
	}

	logging.WithPackage(i.logger, res.Name, res.Version).
		Info("installed package", "registry", res.Registry)
	report.Installed = append(report.Installed, Action{
		Name:     res.Name,
		Version:  res.Version,
		Registry: res.Registry,
		Reason:   reason,
	})
	return deps, nil
}

// writePackage lays a verified package down under one scope root and
// records it in the matching store. Every write goes through the
// transaction, which snapshots what it replaces, so a forced reinstall
// that fails midway restores the prior install instead of deleting it.
func (i *Installer) writePackage(ctx context.Context, res *resolve.Resolution, man *manifest.PluginManifest, manData []byte, root string, store *registry.InstalledStore, tx *txn) error {
	pluginDir := registry.PluginDir(root, res.Name, res.Version)
	manifestPath := filepath.Join(pluginDir, "manifest.json")
	if err := tx.writeFile(manifestPath, manData); err != nil {
		return err
	}

	var pieces []registry.InstalledPiece
	for _, ti := range man.Items() {
		content, err := res.Resolver.Download(ctx, ti.Item.Source)
		if err != nil {
			return err
		}
		if i.opts.VerifyChecksums && ti.Item.Checksum != "" {
			if err := verifyChecksum(ti.Item.Name, ti.Item.Version, ti.Item.Checksum, content); err != nil {
				return err
			}
		}

		itemDir := registry.ItemDir(root, ti.Type, ti.Item.Name, ti.Item.Version)
		itemPath := filepath.Join(itemDir, contentFileName(ti.Item.Source))
		if err := tx.writeFile(itemPath, content); err != nil {
			return err
		}

		pieces = append(pieces, registry.InstalledPiece{
			Type:    ti.Type,
			Name:    ti.Item.Name,
			Version: ti.Item.Version,
			Path:    itemPath,
		})
	}

	record := registry.InstalledItem{
		Name:           res.Name,
		Version:        res.Version,
		Registry:       res.Registry,
		SourceChecksum: res.Ref.Checksum,
		InstallPath:    pluginDir,
		Items:          pieces,
	}
	return tx.addRecord(store, record)
}

// abort rolls the transaction back and returns the triggering error.
func (i *Installer) abort(tx *txn, name string, cause error) error {
	if err := tx.rollback(); err != nil {
		return errors.InstallAborted(name, cause).
			WithContext("rollback_error", err.Error())
	}
	if len(tx.files) > 0 || len(tx.records) > 0 {
		i.logger.Warn("install rolled back", "name", name, "error", cause)
	}
	return cause
}

// Uninstall removes an installed package. An empty version removes
// every installed version. Returns false when nothing was installed.
func (i *Installer) Uninstall(name, version string) (bool, error) {
	var targets []registry.InstalledItem

	if version != "" {
		item, err := i.store.Get(name, version)
		if err != nil {
			return false, err
		}
		if item == nil {
			return false, nil
		}
		targets = append(targets, *item)
	} else {
		all, err := i.store.All(name)
		if err != nil {
			return false, err
		}
		if len(all) == 0 {
			return false, nil
		}
		targets = all
	}

	for _, item := range targets {
		for _, piece := range item.Items {
			if err := os.Remove(piece.Path); err != nil && !os.IsNotExist(err) {
				return false, errors.IOWrite(piece.Path, err)
			}
		}
		if item.InstallPath != "" {
			if err := os.RemoveAll(item.InstallPath); err != nil {
				return false, errors.IOWrite(item.InstallPath, err)
			}
		}
		if _, err := i.store.Remove(item.Name, item.Version); err != nil {
			return false, err
		}
		i.logger.Info("uninstalled package", "name", item.Name, "version", item.Version)
	}
	return true, nil
}

// txn tracks writes for rollback. Each write snapshots the content it
// replaces, so rollback restores pre-existing files and records (a
// failed forced reinstall) and deletes only what this transaction
// created.
type txn struct {
	files   []fileState
	records []recordRef
}

// fileState is one written file with its prior content. prev is nil
// when the file did not exist before the transaction.
type fileState struct {
	path string
	prev []byte
}

type recordRef struct {
	store   *registry.InstalledStore
	name    string
	version string

	// prev is the record this transaction replaced, nil for a new one.
	prev *registry.InstalledItem
}

// writeFile writes one file atomically, snapshotting what it replaces.
func (t *txn) writeFile(path string, data []byte) error {
	prev, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.IORead(path, err)
		}
		prev = nil
	}
	if err := fsx.WriteFileAtomic(path, data, 0644); err != nil {
		return errors.IOWrite(path, err)
	}
	t.files = append(t.files, fileState{path: path, prev: prev})
	return nil
}

// addRecord tracks a package in the store, snapshotting any record it
// replaces.
func (t *txn) addRecord(store *registry.InstalledStore, item registry.InstalledItem) error {
	prev, err := store.Get(item.Name, item.Version)
	if err != nil {
		return err
	}
	if err := store.Add(item); err != nil {
		return err
	}
	t.records = append(t.records, recordRef{
		store:   store,
		name:    item.Name,
		version: item.Version,
		prev:    prev,
	})
	return nil
}

func (t *txn) rollback() error {
	var firstErr error
	for idx := len(t.records) - 1; idx >= 0; idx-- {
		r := t.records[idx]
		var err error
		if r.prev != nil {
			err = r.store.Add(*r.prev)
		} else {
			_, err = r.store.Remove(r.name, r.version)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for idx := len(t.files) - 1; idx >= 0; idx-- {
		f := t.files[idx]
		if f.prev != nil {
			if err := fsx.WriteFileAtomic(f.path, f.prev, 0644); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
		removeEmptyParents(f.path)
	}
	return firstErr
}

// removeEmptyParents prunes directories left empty by a rolled-back
// file, stopping at the first non-empty one.
func removeEmptyParents(path string) {
	dir := filepath.Dir(path)
	for i := 0; i < 4; i++ {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Checksum computes the "sha256:<hex>" digest of content.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// verifyChecksum compares content against an expected digest before any
// byte reaches disk.
func verifyChecksum(name, version, want string, data []byte) error {
	got := Checksum(data)
	if got != want {
		return errors.ChecksumMismatch(name, version, want, got)
	}
	return nil
}

// contentFileName derives the on-disk file name for downloaded item
// content from its source URL.
func contentFileName(source string) string {
	u, err := url.Parse(source)
	if err != nil || path.Base(u.Path) == "." || path.Base(u.Path) == "/" {
		return "content"
	}
	return path.Base(u.Path)
}
