package cmd

import (
	"fmt"

	"github.com/forge-stack/forge/internal/config"
	"github.com/spf13/cobra"
)

var (
	registryAddKind     string
	registryAddPriority int
	registryAddTTL      int
	registryAddAuthEnv  string
	registryAddDisabled bool
	registryAddProject  bool
)

var registryAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a plugin registry",
	Long: `Add a registry to the configuration.

The URL must be HTTPS and point at the registry's manifest document.

Examples:
  forge registry add acme https://plugins.acme.dev/registry.json
  forge registry add internal https://plugins.corp.dev/registry.json --priority 1 --auth-env CORP_TOKEN
  forge registry add staging https://staging.acme.dev/registry.json --disabled`,
	Args: cobra.ExactArgs(2),
	RunE: runRegistryAdd,
}

func init() {
	registryAddCmd.Flags().StringVar(&registryAddKind, "kind", string(config.KindManifest), "registry kind (manifest)")
	registryAddCmd.Flags().IntVar(&registryAddPriority, "priority", 0, "resolution priority (lower wins)")
	registryAddCmd.Flags().IntVar(&registryAddTTL, "ttl", 0, "manifest cache TTL in seconds (0 = default)")
	registryAddCmd.Flags().StringVar(&registryAddAuthEnv, "auth-env", "", "environment variable holding a bearer token")
	registryAddCmd.Flags().BoolVar(&registryAddDisabled, "disabled", false, "add the registry disabled")
	registryAddCmd.Flags().BoolVar(&registryAddProject, "project", false, "write to the project config instead of the global one")
	registryCmd.AddCommand(registryAddCmd)
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	name, url := args[0], args[1]

	reg := config.RegistryConfig{
		Name:            name,
		Kind:            config.RegistryKind(registryAddKind),
		URL:             url,
		Enabled:         !registryAddDisabled,
		Priority:        registryAddPriority,
		CacheTTLSeconds: registryAddTTL,
		AuthTokenEnv:    registryAddAuthEnv,
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	path, err := configPathForScope(registryAddProject)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	replaced := cfg.FindRegistry(name) != nil
	cfg.UpsertRegistry(reg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	verb := "Added"
	if replaced {
		verb = "Updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s registry %q (%s)\n", verb, name, url)
	return nil
}

// configPathForScope returns the config file the registry commands edit.
func configPathForScope(project bool) (string, error) {
	if project {
		dir, err := getWorkDir()
		if err != nil {
			return "", err
		}
		return config.ProjectPath(dir), nil
	}
	return config.GlobalPath()
}
