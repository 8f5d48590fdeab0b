package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sethstha/wpforge/internal/adapters"
	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/tasks"
	"github.com/sethstha/wpforge/internal/version"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context, adapters.Command) (adapters.Output, error) {
	return adapters.Output{}, nil
}

func testOptions(t *testing.T, root string) (appOptions, *bytes.Buffer) {
	t.Helper()
	v := viper.New()
	v.Set("root", root)
	v.Set("log.level", "error")
	var out bytes.Buffer
	return appOptions{
		viper:  v,
		runner: nopRunner{},
		stdout: &out,
		stderr: &bytes.Buffer{},
	}, &out
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := writeDefaultConfig(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".wpforge.yml"), path)

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Project.Name, cfg.Project.Name)
	assert.Equal(t, def.Project.Slug, cfg.Project.Slug)
	assert.Equal(t, "localhost/wordpresstheme", cfg.Project.LocalURL)
	assert.Equal(t, def.Paths[config.CategorySCSS].Src, cfg.Paths[config.CategorySCSS].Src)
	assert.Equal(t, def.Watch.Debounce, cfg.Watch.Debounce)
	assert.Equal(t, def.Server.Port, cfg.Server.Port)

	_, err = writeDefaultConfig(dir, false)
	require.Error(t, err)
	assert.True(t, forgeerrors.IsConfigError(err))

	require.NoError(t, os.WriteFile(path, []byte("project: {}\n"), 0644))
	_, err = writeDefaultConfig(dir, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "slug: wordpresstheme")
}

func TestNewAppRegistersEveryCommand(t *testing.T) {
	opts, _ := testOptions(t, t.TempDir())

	a, err := newApp(opts)
	require.NoError(t, err)

	for _, tc := range taskCommands {
		_, ok := a.registry.Lookup(tc.name)
		assert.True(t, ok, "task %s", tc.name)
	}
	for _, name := range []string{tasks.Reload, tasks.Stream} {
		_, ok := a.registry.Lookup(name)
		assert.True(t, ok, "task %s", name)
	}
}

func TestNewAppRejectsMissingRoot(t *testing.T) {
	opts, _ := testOptions(t, filepath.Join(t.TempDir(), "missing"))

	_, err := newApp(opts)
	require.Error(t, err)
	assert.True(t, forgeerrors.IsConfigError(err))
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	opts, _ := testOptions(t, t.TempDir())
	opts.viper.Set("project.slug", "Not A Slug")

	_, err := newApp(opts)
	require.Error(t, err)
	assert.True(t, forgeerrors.IsConfigError(err))
}

func TestRunReportsFailureOnce(t *testing.T) {
	opts, out := testOptions(t, t.TempDir())

	err := runTask(context.Background(), opts, "no-such-task")
	require.Error(t, err)

	var reported reportedError
	assert.True(t, errors.As(err, &reported))
	var fe *forgeerrors.ForgeError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, forgeerrors.ErrCodeUnknownTask, fe.Code)
	assert.Contains(t, out.String(), "no-such-task")

	var stderr bytes.Buffer
	c := &cobra.Command{
		Use:           "x",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          func(*cobra.Command, []string) error { return err },
	}
	c.SetArgs([]string{})
	require.Error(t, execute(c, &stderr))
	assert.Empty(t, stderr.String())
}

func TestExecutePrintsUnreportedErrors(t *testing.T) {
	var stderr bytes.Buffer
	c := &cobra.Command{
		Use:           "x",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          func(*cobra.Command, []string) error { return errors.New("boom") },
	}
	c.SetArgs([]string{})

	require.Error(t, execute(c, &stderr))
	assert.Equal(t, "Error: boom\n", stderr.String())
}

func TestFlagValidation(t *testing.T) {
	c := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	flags := AddOutputFlags(c, "table", "json")

	require.NoError(t, c.ParseFlags([]string{"--format", "JSON"}))
	assert.Equal(t, "JSON", flags.Format)

	err := c.ParseFlags([]string{"-f", "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: table, json")
}

func TestWriteTasks(t *testing.T) {
	infos := []tasks.Info{
		{Name: "minify-css", Kind: "unit", Description: "Minify stylesheets"},
		{Name: "test", Kind: "batch", Description: "Run every linter", Steps: []string{"lint-php", "lint-js"}},
	}

	var table bytes.Buffer
	require.NoError(t, writeTasks(&table, infos, "table"))
	assert.Contains(t, table.String(), "NAME")
	assert.Contains(t, table.String(), "lint-php, lint-js")
	assert.Regexp(t, `minify-css\s+unit\s+Minify stylesheets\s+-`, table.String())

	var js bytes.Buffer
	require.NoError(t, writeTasks(&js, infos, "json"))
	var decoded []tasks.Info
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, infos, decoded)

	var y bytes.Buffer
	require.NoError(t, writeTasks(&y, infos, "yaml"))
	decoded = nil
	require.NoError(t, yaml.Unmarshal(y.Bytes(), &decoded))
	assert.Equal(t, infos, decoded)
}

func TestWriteVersion(t *testing.T) {
	info := version.Info{
		Version:   "v1.4.0",
		GitCommit: "0123456789abcdef",
		BuildTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		GoVersion: "go1.24.0",
		Platform:  "linux/amd64",
	}

	var short bytes.Buffer
	require.NoError(t, writeVersion(&short, info, "text", false))
	assert.Equal(t, "wpforge v1.4.0 (0123456)\n", short.String())

	var detailed bytes.Buffer
	require.NoError(t, writeVersion(&detailed, info, "text", true))
	assert.Contains(t, detailed.String(), "Built: 2026-03-01T12:00:00Z")
	assert.Contains(t, detailed.String(), "Release: true")

	var js bytes.Buffer
	require.NoError(t, writeVersion(&js, info, "json", false))
	var decoded version.Info
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, info.Version, decoded.Version)
	assert.Equal(t, info.GitCommit, decoded.GitCommit)
}
