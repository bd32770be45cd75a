// Package cli implements the repoback command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/repoback/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	jsonOut   bool
	noColor   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "repoback",
	Short: "Back up and restore repository metadata",
	Long: `repoback saves a repository's labels, milestones, issues, pull requests,
reviews, sub-issues and git history to a backup directory, and restores
them into another repository.

Quick start:
  repoback save --repo octo/hello --data-path ./backup
  repoback restore --repo octo/hello-copy --data-path ./backup
  repoback list ./backup
  repoback config show --source`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .repoback/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(newSaveCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig locates the config file.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".repoback")
		viper.AddConfigPath("$HOME/.repoback")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// configPath returns the config file viper settled on, or "" for none.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return viper.ConfigFileUsed()
}

// loadConfig loads file and environment configuration, then applies the
// flags in overrides (flag name -> config path) that were set on cmd.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (*config.TrackedConfig, error) {
	tc, err := config.LoadWithSources(configPath())
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, tc, overrides); err != nil {
		return nil, err
	}
	if logFormat != "" {
		if err := tc.Set("log_format", logFormat, config.SourceFlag, "--log-format"); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

func applyFlags(cmd *cobra.Command, tc *config.TrackedConfig, overrides map[string]string) error {
	for flag, path := range overrides {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := tc.Set(path, f.Value.String(), config.SourceFlag, "--"+flag); err != nil {
			return err
		}
	}
	return nil
}

// newLogger builds the process logger from the configured level and format.
// --verbose and --quiet override the configured level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
