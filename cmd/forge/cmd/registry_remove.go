package cmd

import (
	"fmt"

	"github.com/forge-stack/forge/internal/config"
	"github.com/spf13/cobra"
)

var registryRemoveProject bool

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a configured registry",
	Long: `Remove a registry from the configuration.

Removing a registry that is not configured is not an error. Installed
plugins from the registry stay installed; only future resolution stops
consulting it. Cached manifests for the registry are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryRemove,
}

func init() {
	registryRemoveCmd.Flags().BoolVar(&registryRemoveProject, "project", false, "edit the project config instead of the global one")
	registryCmd.AddCommand(registryRemoveCmd)
}

func runRegistryRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	path, err := configPathForScope(registryRemoveProject)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if !cfg.RemoveRegistry(name) {
		fmt.Fprintf(cmd.OutOrStdout(), "Registry %q not configured, nothing to remove\n", name)
		return nil
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	mgr, err := newCacheManager()
	if err != nil {
		return err
	}
	if err := mgr.Store().Remove(name); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed registry %q\n", name)
	return nil
}
