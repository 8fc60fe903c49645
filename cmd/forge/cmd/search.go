package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/forge-stack/forge/internal/registry"
	"github.com/spf13/cobra"
)

var searchTag string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search registries for plugins",
	Long: `Search every enabled registry for plugins.

The query matches against plugin names, descriptions, and tags,
case-insensitively. Without a query, everything is listed. Duplicate
listings across registries are collapsed; the highest-priority
registry wins.

Examples:
  forge search git
  forge search --tag workflow
  forge search release --tag git`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "require results to carry a tag")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.EnabledRegistries()) == 0 {
		return fmt.Errorf("no registries configured. Add one with: forge registry add <name> <url>")
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeQuiet(closer)

	orch, err := newOrchestrator(cfg, dir, logger)
	if err != nil {
		return err
	}

	results, err := orch.SearchAll(cmd.Context(), query, registry.SearchFilters{Tag: searchTag})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := renderStructured(out, results); done {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No plugins found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tREGISTRY\tTAGS\tDESCRIPTION")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Ref.Name, r.Ref.Version, r.Registry, strings.Join(r.Ref.Tags, ","), r.Ref.Description)
	}
	return w.Flush()
}
