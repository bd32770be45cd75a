package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/repoback/internal/manifest"
)

// newListCmd creates the list command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List backups below a directory",
		Long: `List every backup found below dir (default: the configured data path),
newest first. A backup is any directory holding a manifest.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			} else {
				tc, err := loadConfig(cmd, nil)
				if err != nil {
					return err
				}
				root = tc.Config.DataPath
			}

			found, skipped, err := manifest.Discover(root)
			if err != nil {
				return err
			}
			for _, s := range skipped {
				if verbose {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipping: %v\n", s)
				}
			}
			return printSummaries(cmd.OutOrStdout(), found)
		},
	}
}
