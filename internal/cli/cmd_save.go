package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/repoback/internal/config"
	"github.com/randalmurphal/repoback/internal/orchestrator"
)

// saveFlags maps save flags to config paths.
var saveFlags = map[string]string{
	"repo":          "repository",
	"data-path":     "data_path",
	"backend":       "storage.backend",
	"dsn":           "storage.dsn",
	"issues":        "include.issues",
	"pull-requests": "include.pull_requests",
	"git-format":    "git.format",
}

// newSaveCmd creates the save command
func newSaveCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Back up repository metadata",
		Long: `Save the enabled entity types of a repository into the data path.

Entity types run in dependency order. A failing entity type does not stop
the others; the command exits non-zero if any failed.

Examples:
  repoback save --repo octo/hello
  repoback save --repo octo/hello --issues 1-50 --pull-requests false
  repoback save --only labels,milestones --backend sqlite --dsn backup.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := loadConfig(cmd, saveFlags)
			if err != nil {
				return err
			}
			return runSave(cmd, tc.Config, only)
		},
	}

	addStorageFlags(cmd)
	cmd.Flags().String("repo", "", "repository to back up (owner/name)")
	cmd.Flags().String("issues", "", "issues to include: true, false or numbers like 1,3,10-20")
	cmd.Flags().String("pull-requests", "", "pull requests to include: true, false or numbers")
	cmd.Flags().String("git-format", "", "git repository backup format: mirror or bundle")
	cmd.Flags().StringSliceVar(&only, "only", nil, "entity types to process (default: all enabled)")

	return cmd
}

func runSave(cmd *cobra.Command, cfg *config.Config, only []string) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := SetupSignalHandler()
	defer cancel()

	release, err := guardDataPath(cfg)
	if err != nil {
		return err
	}
	defer release()

	rt, err := newRuntime(ctx, cfg, cfg.Repository, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	backend := cfg.Storage.Backend
	if backend == "" {
		backend = "json"
	}
	saver := orchestrator.NewSaver(rt.factory, rt.store, backend, logger)
	results, err := saver.Execute(ctx, cfg.Repository, cfg.DataPath, only...)
	if err != nil && results == nil {
		return rt.explain(err)
	}

	if perr := printResults(cmd.OutOrStdout(), "save", results); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	return orchestrator.Failures(results)
}

// addStorageFlags adds the flags shared by save and restore.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-path", "", "backup directory")
	cmd.Flags().String("backend", "", "storage backend: json, sqlite or postgres")
	cmd.Flags().String("dsn", "", "database DSN for the sqlite and postgres backends")
}

// newRunCmd creates the run command, which performs the configured operation.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the operation set in the configuration",
		Long: `Run save or restore as chosen by the operation setting
(config file, REPOBACK_OPERATION or OPERATION).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			switch tc.Config.Operation {
			case config.OperationSave:
				return runSave(cmd, tc.Config, nil)
			case config.OperationRestore:
				return runRestore(cmd, tc.Config, nil)
			default:
				return fmt.Errorf("unknown operation %q", tc.Config.Operation)
			}
		},
	}
}
