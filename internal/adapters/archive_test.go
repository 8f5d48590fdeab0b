package adapters

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

func TestArchiverPackagesTheme(t *testing.T) {
	env := newTestEnv(t, &fakeRunner{})
	writeFiles(t, env.FS, map[string]string{
		"style.css":                "/* Theme Name: Test */",
		"functions.php":            "<?php",
		"inc/setup.php":            "<?php",
		"assets/css/site.css":      "a{}",
		"assets/sass/style.scss":   "a {}",
		"node_modules/pkg/main.js": "",
		"vendor/autoload.php":      "<?php",
		"package.json":             "{}",
		"README.md":                "# Test",
		".wpforge.yml":             "project: {}",
		"dist/old.zip":             "",
		".git/config":              "[core]",
		".github/ci.yml":           "on: push",
		".eslintrc":                "{}",
	})

	zipSpec := config.Default().Paths[config.CategoryZip]
	res, err := NewArchiver(env, "testtheme").Run(context.Background(), Invocation{
		Sources: zipSpec.Src,
		Dest:    "./dist",
	})
	require.NoError(t, err)

	assert.Equal(t, KindSignal, res.Kind)
	assert.Equal(t, "Build successful", res.Title)
	assert.Equal(t, "Great! Package is ready", res.Message)
	assert.Equal(t, []string{"dist/testtheme.zip"}, res.Files)

	zr, err := zip.OpenReader(filepath.Join(env.Root, "dist", "testtheme.zip"))
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"assets/css/site.css", "functions.php", "inc/setup.php", "style.css"}, names)
	assert.NotContains(t, names, ".git/config")

	rc, err := zr.File[3].Open()
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "/* Theme Name: Test */", string(body))

	entries, err := afero.ReadDir(env.FS, "dist")
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.ElementsMatch(t, []string{"old.zip", "testtheme.zip"}, left, "no temporary archive may be left behind")
}

func TestArchiverUsesFileOption(t *testing.T) {
	env := newTestEnv(t, &fakeRunner{})
	writeFiles(t, env.FS, map[string]string{"style.css": "a{}"})

	res, err := NewArchiver(env, "testtheme").Run(context.Background(), Invocation{
		Sources: []string{"*.css"},
		Dest:    "build",
		Opts:    map[string]string{"file": "release.zip"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"build/release.zip"}, res.Files)
}

func TestArchiverFailureIsPackagingError(t *testing.T) {
	env := newTestEnv(t, &fakeRunner{})
	writeFiles(t, env.FS, map[string]string{
		"style.css": "a{}",
		"dist":      "not a directory",
	})

	_, err := NewArchiver(env, "testtheme").Run(context.Background(), Invocation{
		Sources: []string{"*.css"},
		Dest:    "dist",
	})
	require.Error(t, err)
	assert.True(t, forgeerrors.IsPackagingError(err))
}
