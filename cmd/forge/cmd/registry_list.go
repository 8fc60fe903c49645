package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured registries",
	Long: `List every configured registry in resolution order.

The output shows:
  - NAME:     Registry identifier
  - KIND:     Backend kind (manifest)
  - URL:      Manifest document URL
  - PRIORITY: Resolution priority (lower wins)
  - ENABLED:  Whether the registry is consulted

Use --output json or --output yaml for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runRegistryList,
}

func init() {
	registryCmd.AddCommand(registryListCmd)
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := renderStructured(out, cfg.Registries); done {
		return err
	}

	if len(cfg.Registries) == 0 {
		fmt.Fprintln(out, "No registries configured.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Add one with: forge registry add <name> <url>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tURL\tPRIORITY\tENABLED")
	for _, r := range cfg.Registries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", r.Name, r.Kind, r.URL, r.Priority, r.Enabled)
	}
	return w.Flush()
}
