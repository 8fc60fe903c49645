package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/forge-stack/forge/internal/registry"
	"github.com/spf13/cobra"
)

var registryShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a registry's plugin listings",
	Long: `Fetch a registry's manifest and show what it offers.

The manifest is served from the cache when fresh; use
'forge registry refresh' first to force a fetch.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryShow,
}

func init() {
	registryCmd.AddCommand(registryShowCmd)
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	rc := cfg.FindRegistry(args[0])
	if rc == nil {
		return errRegistryNotConfigured(args[0])
	}

	mgr, err := newCacheManager()
	if err != nil {
		return err
	}
	r, err := registry.New(*rc, mgr, registry.Options{AllowStale: cfg.Install.AllowStaleCache})
	if err != nil {
		return err
	}
	man, err := r.FetchManifest(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := renderStructured(out, man); done {
		return err
	}

	fmt.Fprintf(out, "Registry: %s (%s)\n", man.Name, rc.URL)
	if man.Description != "" {
		fmt.Fprintln(out, man.Description)
	}
	fmt.Fprintf(out, "Plugins: %d\n\n", len(man.Plugins))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tTAGS\tDESCRIPTION")
	for _, p := range man.Plugins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Version, strings.Join(p.Tags, ","), p.Description)
	}
	return w.Flush()
}
