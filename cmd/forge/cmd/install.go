package cmd

import (
	"fmt"
	"strings"

	"github.com/forge-stack/forge/internal/config"
	"github.com/forge-stack/forge/internal/install"
	"github.com/forge-stack/forge/internal/registry"
	"github.com/spf13/cobra"
)

var (
	installGlobal   bool
	installLocal    bool
	installNoDeps   bool
	installNoVerify bool
	installForce    bool
	installDryRun   bool
)

var installCmd = &cobra.Command{
	Use:   "install <name[@constraint]>",
	Short: "Install a plugin",
	Long: `Install a plugin and its dependencies.

The name may carry a version constraint: an exact version (1.2.0), a
caret range (^1.0.0, same major), a tilde range (~1.2.0, same minor),
or * for latest. Without a constraint the latest version is installed.

Resolution checks the project scope, then the global scope, then each
enabled registry in priority order. Content is SHA-256 verified before
anything is written, and a failed install leaves no partial state.

Examples:
  forge install @acme/git-flow
  forge install @acme/git-flow@^1.0.0
  forge install release-notes@1.2.0 --local
  forge install @acme/git-flow --force --no-deps
  forge install @acme/git-flow --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installGlobal, "global", false, "install into the global scope (~/.forge)")
	installCmd.Flags().BoolVar(&installLocal, "local", false, "install into the project scope (./.forge)")
	installCmd.Flags().BoolVar(&installNoDeps, "no-deps", false, "skip dependency installation")
	installCmd.Flags().BoolVar(&installNoVerify, "no-verify", false, "skip checksum verification")
	installCmd.Flags().BoolVar(&installForce, "force", false, "reinstall even when already installed")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "resolve and plan without installing")
	installCmd.MarkFlagsMutuallyExclusive("global", "local")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name, constraint := splitSpec(args[0])

	cfg, dir, err := loadConfig()
	if err != nil {
		return err
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

	scope := resolveScope(cfg)
	root, store, err := scopeTarget(scope, dir)
	if err != nil {
		return err
	}

	opts := install.Options{
		VerifyChecksums:         cfg.Install.VerifyChecksums && !installNoVerify,
		AutoInstallDependencies: cfg.Install.AutoInstallDependencies && !installNoDeps,
		Force:                   installForce,
		DryRun:                  installDryRun,
	}
	inst := install.New(orch, root, store, logger, opts)

	if scope == config.ScopeLocal && cfg.Install.AutoCache {
		globalRoot, err := registry.GlobalRoot()
		if err != nil {
			return err
		}
		inst.WithMirror(globalRoot, registry.NewInstalledStore(globalRoot, config.ScopeGlobal))
	}

	report, err := inst.Install(cmd.Context(), name, constraint)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := renderStructured(out, report); done {
		return err
	}

	verb := "Installed"
	if report.DryRun {
		verb = "Would install"
	}
	for _, a := range report.Installed {
		fmt.Fprintf(out, "%s %s@%s (%s, from %s)\n", verb, a.Name, a.Version, a.Reason, a.Registry)
	}
	for _, a := range report.Reused {
		fmt.Fprintf(out, "Already installed: %s@%s\n", a.Name, a.Version)
	}
	if len(report.Installed) == 0 && len(report.Reused) == 0 {
		fmt.Fprintln(out, "Nothing to do.")
	}
	return nil
}

// splitSpec separates "name@constraint". A leading @ belongs to a
// scoped name, not a constraint.
func splitSpec(spec string) (name, constraint string) {
	if idx := strings.LastIndex(spec, "@"); idx > 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}

// resolveScope applies the scope flags over the configured default.
func resolveScope(cfg *config.Config) string {
	switch {
	case installGlobal:
		return config.ScopeGlobal
	case installLocal:
		return config.ScopeLocal
	default:
		return cfg.Install.DefaultScope
	}
}

// scopeTarget returns the root directory and store for a scope.
func scopeTarget(scope, dir string) (string, *registry.InstalledStore, error) {
	if scope == config.ScopeLocal {
		root := registry.ProjectRoot(dir)
		return root, registry.NewInstalledStore(root, config.ScopeLocal), nil
	}
	root, err := registry.GlobalRoot()
	if err != nil {
		return "", nil, err
	}
	return root, registry.NewInstalledStore(root, config.ScopeGlobal), nil
}
