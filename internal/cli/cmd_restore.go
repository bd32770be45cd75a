package cli

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/repoback/internal/config"
	"github.com/randalmurphal/repoback/internal/orchestrator"
	"github.com/randalmurphal/repoback/internal/storage"
)

// restoreFlags maps restore flags to config paths.
var restoreFlags = map[string]string{
	"repo":              "repository",
	"destination":       "destination_repository",
	"data-path":         "data_path",
	"backend":           "storage.backend",
	"dsn":               "storage.dsn",
	"conflict-strategy": "labels.conflict_strategy",
}

// newRestoreCmd creates the restore command
func newRestoreCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore repository metadata from a backup",
		Long: `Restore the enabled entity types from the data path into a repository.

Issue, pull request and milestone numbers are remapped as records are
recreated, so comments and sub-issues follow their new parents. A missing
or corrupt entity file stops the restore.

Label conflict strategies:
  fail-if-existing  refuse if a restored label name already exists (default)
  fail-if-conflict  refuse if an existing label differs in color or description
  skip              keep existing labels, restore the rest
  overwrite         delete colliding labels, then restore all
  delete-all        delete every destination label, then restore all

Examples:
  repoback restore --repo octo/hello-copy --data-path ./backup
  repoback restore --destination octo/mirror --conflict-strategy skip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := loadConfig(cmd, restoreFlags)
			if err != nil {
				return err
			}
			return runRestore(cmd, tc.Config, only)
		},
	}

	addStorageFlags(cmd)
	cmd.Flags().String("repo", "", "repository to restore into (owner/name)")
	cmd.Flags().String("destination", "", "restore into this repository instead of --repo")
	cmd.Flags().String("conflict-strategy", "", "label conflict strategy")
	cmd.Flags().StringSliceVar(&only, "only", nil, "entity types to process (default: all enabled)")

	return cmd
}

func runRestore(cmd *cobra.Command, cfg *config.Config, only []string) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := SetupSignalHandler()
	defer cancel()

	if cfg.Storage.Backend == "" || cfg.Storage.Backend == storage.BackendJSON {
		if err := dataPathError(cfg.DataPath); err != nil {
			return err
		}
	}

	release, err := guardDataPath(cfg)
	if err != nil {
		return err
	}
	defer release()

	target := cfg.TargetRepository()
	rt, err := newRuntime(ctx, cfg, target, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	restorer := orchestrator.NewRestorer(rt.factory, rt.store, logger)
	results, err := restorer.Execute(ctx, target, cfg.DataPath, only...)
	if err != nil && results == nil {
		return rt.explain(err)
	}

	if perr := printResults(cmd.OutOrStdout(), "restore", results); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	return orchestrator.Failures(results)
}
