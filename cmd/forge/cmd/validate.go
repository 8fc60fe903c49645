package cmd

import (
	"fmt"
	"os"

	"github.com/forge-stack/forge/internal/manifest"
	"github.com/spf13/cobra"
)

var validateKind string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a manifest file",
	Long: `Validate a local manifest document before publishing it.

By default the file is checked as a plugin manifest; pass
--kind registry to check a registry manifest instead.

Examples:
  forge validate ./manifest.json
  forge validate ./registry.json --kind registry`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateKind, "kind", "plugin", "manifest kind (plugin or registry)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	switch validateKind {
	case "plugin":
		_, err = manifest.ParsePluginManifest(data)
	case "registry":
		_, err = manifest.ParseRegistryManifest(data)
	default:
		return fmt.Errorf("unknown manifest kind %q: valid kinds are plugin, registry", validateKind)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid %s manifest\n", args[0], validateKind)
	return nil
}
