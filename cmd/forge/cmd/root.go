package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/forge-stack/forge/internal/cache"
	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/logging"
	"github.com/forge-stack/forge/internal/registry"
	"github.com/forge-stack/forge/internal/resolve"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose      bool
	workDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Forge - plugin registry and resolution engine",
	Long: `Forge manages plugins for development environments: agents, tools,
workflows, templates, hooks, and commands.

Plugins come from registries (HTTPS-served manifest documents) and
install into a global scope (~/.forge) or a project scope (./.forge).
Resolution prefers installed copies: local, then global, then each
enabled registry in priority order.

Start by adding a registry:
  forge registry add acme https://plugins.acme.dev/registry.json
  forge install @acme/git-flow@^1.0.0`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, rendering errors in the selected
// output format.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		if outputFormat == "json" {
			fmt.Fprintln(os.Stderr, string(errors.Payload(err)))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "working directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("forge {{.Version}}\n")
}

// getWorkDir returns the effective working directory.
func getWorkDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	return os.Getwd()
}

// loadConfig loads the layered configuration for the working directory.
func loadConfig() (*config.Config, string, error) {
	dir, err := getWorkDir()
	if err != nil {
		return nil, "", fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, dir, nil
}

// newLogger builds the logger from config, with --verbose forcing debug.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if verbose {
		return logging.NewWithLevel(slog.LevelDebug), nil, nil
	}
	return logging.NewFromConfig(cfg)
}

// closeQuiet closes a logger sink if one was opened.
func closeQuiet(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// newOrchestrator wires the installed stores and registry backends for
// tiered resolution. The manifest cache lives under the global root so
// every project shares it.
func newOrchestrator(cfg *config.Config, dir string, logger *slog.Logger) (*resolve.Orchestrator, error) {
	globalRoot, err := registry.GlobalRoot()
	if err != nil {
		return nil, err
	}

	local := registry.NewInstalledStore(registry.ProjectRoot(dir), config.ScopeLocal)
	global := registry.NewInstalledStore(globalRoot, config.ScopeGlobal)

	mgr := cache.NewManager(cache.NewStore(registry.CacheDir(globalRoot)))
	factory := func(rc config.RegistryConfig) (registry.Resolver, error) {
		return registry.New(rc, mgr, registry.Options{
			AllowStale: cfg.Install.AllowStaleCache,
		})
	}

	return resolve.New(local, global, cfg.EnabledRegistries(), factory, logger), nil
}

// newCacheManager returns the shared manifest cache.
func newCacheManager() (*cache.Manager, error) {
	globalRoot, err := registry.GlobalRoot()
	if err != nil {
		return nil, err
	}
	return cache.NewManager(cache.NewStore(registry.CacheDir(globalRoot))), nil
}

// renderStructured writes v as JSON or YAML. Returns false when the
// format is text, leaving rendering to the caller.
func renderStructured(w io.Writer, v any) (bool, error) {
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return true, nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("marshaling YAML: %w", err)
		}
		fmt.Fprint(w, string(data))
		return true, nil
	default:
		return false, nil
	}
}
