package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/repoback/internal/config"
)

// newConfigCmd creates the config command with subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
		Long: `View repoback configuration.

Configuration is loaded from these sources, later ones winning:
  1. Built-in defaults
  2. Config file (--config, .repoback/config.yaml, ~/.repoback/config.yaml)
  3. Environment variables (REPOBACK_*, then legacy names such as GITHUB_REPO)
  4. Command flags`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

// newConfigShowCmd creates the 'config show' subcommand.
func newConfigShowCmd() *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		Long: `Show the merged configuration from all sources.

By default, outputs valid YAML. Use --source to see where each value comes from.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := loadConfig(cmd, nil)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if showSource {
				return printConfigWithSources(out, tc)
			}
			return printConfigAsYAML(out, tc.Config)
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "Show source for each value")

	return cmd
}

// newConfigValidateCmd creates the 'config validate' subcommand.
func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := tc.Config.Validate(); err != nil {
				return err
			}
			disabled := tc.Config.Reconcile(newLogger(tc.Config, cmd.ErrOrStderr()))
			if !quiet {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid. Enabled: %v\n", tc.Config.EnabledEntities())
				if len(disabled) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Disabled because a parent is disabled: %v\n", disabled)
				}
			}
			return nil
		},
	}
}

func printConfigAsYAML(w io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// printConfigWithSources prints the YAML followed by every value that did
// not come from the defaults.
func printConfigWithSources(w io.Writer, tc *config.TrackedConfig) error {
	if err := printConfigAsYAML(w, tc.Config); err != nil {
		return err
	}

	paths := make([]string, 0, len(tc.Sources))
	for path := range tc.Sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	_, _ = fmt.Fprintln(w, "\n# Sources (everything else is a default)")
	if len(paths) == 0 {
		_, _ = fmt.Fprintln(w, "#   none")
	}
	for _, path := range paths {
		_, _ = fmt.Fprintf(w, "#   %-32s %s\n", path, tc.GetSource(path))
	}
	return nil
}
