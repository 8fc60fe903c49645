package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/manifest"
	"github.com/forge-stack/forge/internal/registry"
	"github.com/spf13/cobra"
)

var listType string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	Long: `List installed plugins across the project and global scopes.

Use --type to list individual installed items of one kind instead
(agents, tools, workflows, templates, hooks, commands).`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "list items of one type (agents, tools, ...)")
	rootCmd.AddCommand(listCmd)
}

// listEntry is one row of forge list output.
type listEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Scope    string `json:"scope"`
	Registry string `json:"registry,omitempty"`
	Type     string `json:"type,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	_, dir, err := loadConfig()
	if err != nil {
		return err
	}

	if listType != "" && !validItemType(listType) {
		return fmt.Errorf("unknown item type %q: valid types are %v", listType, manifest.ItemTypes)
	}

	globalRoot, err := registry.GlobalRoot()
	if err != nil {
		return err
	}
	stores := []*registry.InstalledStore{
		registry.NewInstalledStore(registry.ProjectRoot(dir), config.ScopeLocal),
		registry.NewInstalledStore(globalRoot, config.ScopeGlobal),
	}

	var entries []listEntry
	for _, store := range stores {
		items, err := store.List()
		if err != nil {
			return err
		}
		for _, item := range items {
			if listType == "" {
				entries = append(entries, listEntry{
					Name:     item.Name,
					Version:  item.Version,
					Scope:    item.Scope,
					Registry: item.Registry,
				})
				continue
			}
			for _, piece := range item.Items {
				if string(piece.Type) != listType {
					continue
				}
				entries = append(entries, listEntry{
					Name:     piece.Name,
					Version:  piece.Version,
					Scope:    item.Scope,
					Registry: item.Registry,
					Type:     string(piece.Type),
				})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})

	out := cmd.OutOrStdout()
	if done, err := renderStructured(out, entries); done {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No plugins installed.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if listType == "" {
		fmt.Fprintln(w, "NAME\tVERSION\tSCOPE\tREGISTRY")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Scope, e.Registry)
		}
	} else {
		fmt.Fprintln(w, "NAME\tVERSION\tTYPE\tSCOPE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Type, e.Scope)
		}
	}
	return w.Flush()
}

func validItemType(s string) bool {
	for _, t := range manifest.ItemTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}
