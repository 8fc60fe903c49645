package cmd

import (
	"fmt"

	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/install"
	"github.com/spf13/cobra"
)

var (
	uninstallGlobal bool
	uninstallLocal  bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name[@version]>",
	Short: "Uninstall a plugin",
	Long: `Remove an installed plugin from a scope.

Without a version, every installed version of the plugin is removed.
Uninstalling a plugin that is not installed is not an error.

Examples:
  forge uninstall @acme/git-flow
  forge uninstall @acme/git-flow@1.2.0 --local`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallGlobal, "global", false, "uninstall from the global scope")
	uninstallCmd.Flags().BoolVar(&uninstallLocal, "local", false, "uninstall from the project scope")
	uninstallCmd.MarkFlagsMutuallyExclusive("global", "local")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	name, version := splitSpec(args[0])

	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeQuiet(closer)

	scope := cfg.Install.DefaultScope
	switch {
	case uninstallGlobal:
		scope = config.ScopeGlobal
	case uninstallLocal:
		scope = config.ScopeLocal
	}
	root, store, err := scopeTarget(scope, dir)
	if err != nil {
		return err
	}

	inst := install.New(nil, root, store, logger, install.Options{})
	removed, err := inst.Uninstall(name, version)
	if err != nil {
		return err
	}

	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed (%s scope), nothing to do\n", args[0], scope)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", args[0])
	return nil
}
