package cmd

import (
	"github.com/forge-stack/forge/internal/errors"
	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage plugin registries",
	Long: `Manage the registries forge resolves plugins from.

A registry is an HTTPS endpoint serving a manifest document that
indexes available plugins. Registries are consulted in priority order
(lower number first) when a plugin is not already installed.

Registry configuration lives in ~/.forge/config.toml by default; use
--project to configure a registry for the current project only.`,
}

func init() {
	rootCmd.AddCommand(registryCmd)
}

// errRegistryNotConfigured is the shared error for name lookups across
// the registry subcommands.
func errRegistryNotConfigured(name string) error {
	return errors.RegistryNotFound(name)
}
