package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/repoback/internal/config"
	bperrors "github.com/randalmurphal/repoback/internal/errors"
	"github.com/randalmurphal/repoback/internal/manifest"
	"github.com/randalmurphal/repoback/internal/orchestrator"
)

// clearEnv blanks every variable that feeds the configuration.
func clearEnv(t *testing.T) {
	t.Helper()
	for k := range config.EnvVarMapping {
		t.Setenv(k, "")
	}
	for k := range config.LegacyEnvVarMapping {
		t.Setenv(k, "")
	}
	for _, k := range []string{"GITHUB_TOKEN", "GH_TOKEN", "GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN"} {
		t.Setenv(k, "")
	}
}

// resetFlags restores every changed flag below cmd to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		viper.Reset()
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "repoback version "+Version+"\n", out)
}

func TestConfigShow_Sources(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPOBACK_DATA_PATH", "/env/backups")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repository: octo/hello\n"), 0o644))

	out, err := run(t, "config", "show", "--source", "--config", path, "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "repository: octo/hello")
	assert.Contains(t, out, "data_path: /env/backups")
	assert.Contains(t, out, "file: "+path)
	assert.Contains(t, out, "env: REPOBACK_DATA_PATH")
	assert.Contains(t, out, "flag: --log-format")
}

func TestConfigValidate_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPOBACK_LABEL_CONFLICT_STRATEGY", "merge")

	_, err := run(t, "config", "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestSave_MissingTokenIsCollaboratorError(t *testing.T) {
	clearEnv(t)

	_, err := run(t, "save", "--repo", "octo/hello", "--data-path", t.TempDir(),
		"--config", filepath.Join(t.TempDir(), "none.yaml"), "--quiet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrCollaboratorMissing))
	assert.Equal(t, 3, ExitCode(err))

	be := bperrors.AsBackupError(err)
	require.NotNil(t, be)
	assert.NotNil(t, be.Cause, "the hosting failure is attached")
}

func TestRestore_MissingDataPath(t *testing.T) {
	clearEnv(t)

	_, err := run(t, "restore", "--repo", "octo/hello",
		"--data-path", filepath.Join(t.TempDir(), "nope"),
		"--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bperrors.ErrConfig))
}

func TestList_JSON(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	m := manifest.New("octo/hello", "json")
	m.Record("labels", 4)
	require.NoError(t, manifest.Write(filepath.Join(root, "one"), m))

	out, err := run(t, "list", root, "--json")
	require.NoError(t, err)

	var found []manifest.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, m.RunID, found[0].RunID)
	assert.Equal(t, 4, found[0].Records)
}

func TestList_Empty(t *testing.T) {
	clearEnv(t)

	out, err := run(t, "list", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No backups found.\n", out)
}

func TestApplyFlags(t *testing.T) {
	cmd := newRestoreCmd()
	require.NoError(t, cmd.Flags().Set("destination", "octo/copy"))
	require.NoError(t, cmd.Flags().Set("conflict-strategy", "skip"))

	tc := config.NewTrackedConfig()
	require.NoError(t, applyFlags(cmd, tc, restoreFlags))

	assert.Equal(t, "octo/copy", tc.Config.DestinationRepository)
	assert.Equal(t, "skip", tc.Config.Labels.ConflictStrategy)
	assert.Equal(t, "flag: --destination", tc.GetSource("destination_repository").String())
	assert.Equal(t, config.SourceDefault, tc.GetSource("repository").Source)
}

func TestApplyFlags_InvalidSelection(t *testing.T) {
	cmd := newSaveCmd()
	require.NoError(t, cmd.Flags().Set("issues", "1,x"))

	err := applyFlags(cmd, config.NewTrackedConfig(), saveFlags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include.issues")
}

func TestPrintResults_Table(t *testing.T) {
	var buf bytes.Buffer
	results := []orchestrator.EntityResult{
		{Name: "labels", Success: true, Processed: 2, Written: 2, Duration: 1500 * time.Microsecond},
		{Name: "issues", Processed: 1, Err: errors.New("boom")},
	}
	require.NoError(t, printResults(&buf, "save", results))

	out := buf.String()
	assert.Contains(t, out, "ENTITY")
	assert.Contains(t, out, "labels  ok")
	assert.Contains(t, out, "issues  FAILED")
	assert.Contains(t, out, "issues: boom")
	assert.NotContains(t, out, "\x1b[", "no escape codes when not a terminal")
}

func TestPrintResults_JSON(t *testing.T) {
	jsonOut = true
	t.Cleanup(func() { jsonOut = false })

	var buf bytes.Buffer
	require.NoError(t, printResults(&buf, "restore", []orchestrator.EntityResult{
		{Name: "labels", Success: true, Written: 3},
		{Name: "issues", Err: errors.New("boom")},
	}))

	var got struct {
		Operation string `json:"operation"`
		Success   bool   `json:"success"`
		Entities  []struct {
			Name    string `json:"name"`
			Written int    `json:"written"`
			Error   string `json:"error"`
		} `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "restore", got.Operation)
	assert.False(t, got.Success)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, 3, got.Entities[0].Written)
	assert.Equal(t, "boom", got.Entities[1].Error)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", bperrors.ConfigInvalid("x", "y"), 2},
		{"storage", bperrors.Storage("labels", errors.New("gone")), 4},
		{"entities", orchestrator.Failures([]orchestrator.EntityResult{{Name: "issues"}}), 5},
		{"conflict", bperrors.Conflict("fail-if-existing", []string{"bug"}), 6},
		{"plain", errors.New("x"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogFormat = "json"

	logger := newLogger(cfg, &buf)
	logger.Debug("hidden")
	logger.Info("shown", "entity", "labels")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"entity":"labels"`)

	verbose = true
	t.Cleanup(func() { verbose = false })
	buf.Reset()
	newLogger(cfg, &buf).Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}
