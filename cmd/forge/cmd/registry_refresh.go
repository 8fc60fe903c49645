package cmd

import (
	"fmt"

	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/registry"
	"github.com/spf13/cobra"
)

var registryRefreshCmd = &cobra.Command{
	Use:   "refresh [name]",
	Short: "Refresh cached registry manifests",
	Long: `Invalidate cached registry manifests and fetch fresh copies.

With a name, only that registry is refreshed. Without one, every
enabled registry is refreshed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegistryRefresh,
}

func init() {
	registryCmd.AddCommand(registryRefreshCmd)
}

func runRegistryRefresh(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	targets := cfg.EnabledRegistries()
	if len(args) == 1 {
		reg := cfg.FindRegistry(args[0])
		if reg == nil {
			return errRegistryNotConfigured(args[0])
		}
		targets = []config.RegistryConfig{*reg}
	}

	mgr, err := newCacheManager()
	if err != nil {
		return err
	}

	for _, rc := range targets {
		if err := mgr.Invalidate(rc.Name); err != nil {
			return err
		}
		r, err := registry.New(rc, mgr, registry.Options{})
		if err != nil {
			return err
		}
		man, err := r.FetchManifest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %q: %d plugins\n", rc.Name, len(man.Plugins))
	}
	return nil
}
