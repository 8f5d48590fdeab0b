package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/adapters"
	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/logging"
	"github.com/sethstha/wpforge/internal/watcher"
)

// scriptedRunner answers each external tool by the name it is invoked as.
type scriptedRunner struct {
	mu      sync.Mutex
	invoked []string
	answers map[string]func(adapters.Command) adapters.Output
}

func toolName(cmd adapters.Command) string {
	if cmd.Name == "npx" && len(cmd.Args) > 0 {
		return cmd.Args[0]
	}
	return filepath.Base(cmd.Name)
}

func (s *scriptedRunner) Run(ctx context.Context, cmd adapters.Command) (adapters.Output, error) {
	if err := ctx.Err(); err != nil {
		return adapters.Output{}, err
	}
	name := toolName(cmd)
	s.mu.Lock()
	s.invoked = append(s.invoked, name)
	answer := s.answers[name]
	s.mu.Unlock()
	if answer == nil {
		return adapters.Output{}, nil
	}
	return answer(cmd), nil
}

func (s *scriptedRunner) calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, i := range s.invoked {
		if i == name {
			n++
		}
	}
	return n
}

type fakeLiveReload struct {
	mu       sync.Mutex
	started  bool
	reloads  int
	streamed [][]string
}

func (f *fakeLiveReload) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeLiveReload) Reload(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
}

func (f *fakeLiveReload) Stream(_ context.Context, files []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed = append(f.streamed, files)
}

func (f *fakeLiveReload) snapshot() (int, [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads, append([][]string(nil), f.streamed...)
}

type fakeWatcher struct{ watched bool }

func (w *fakeWatcher) Watch(context.Context) error {
	w.watched = true
	return nil
}

type pipelineFixture struct {
	root     string
	fs       afero.Fs
	store    *config.Store
	runner   *scriptedRunner
	lr       *fakeLiveReload
	watcher  *fakeWatcher
	notifier *fakeNotifier
	registry *Registry
}

func newPipelineFixture(t *testing.T, files map[string]string) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	fs := afero.NewBasePathFs(afero.NewOsFs(), root)
	f := &pipelineFixture{
		root:     root,
		fs:       fs,
		store:    config.NewStore(config.Default(), fs),
		runner:   &scriptedRunner{answers: map[string]func(adapters.Command) adapters.Output{}},
		lr:       &fakeLiveReload{},
		watcher:  &fakeWatcher{},
		notifier: &fakeNotifier{},
	}
	f.registry = NewRegistry(nil, f.notifier)
	err := Register(f.registry, Deps{
		Store: f.store,
		Env: adapters.Env{
			Root:   root,
			FS:     fs,
			Runner: f.runner,
			Logger: logging.NewNopLogger(),
		},
		LiveReload: f.lr,
		Watcher:    f.watcher,
	})
	require.NoError(t, err)
	return f
}

// fakeSass writes the compiled output named by the last argument.
func fakeSass(cmd adapters.Command) adapters.Output {
	out := cmd.Args[len(cmd.Args)-1]
	_ = os.WriteFile(filepath.Join(cmd.Dir, filepath.FromSlash(out)), []byte("body {\n  color: red;\n}\n"), 0o644)
	return adapters.Output{}
}

func TestRegisterDefinesEveryCommand(t *testing.T) {
	f := newPipelineFixture(t, nil)

	for _, name := range []string{
		CompileStyles, PrefixStyles, GenerateRTL, MinifyCSS, MinifyJS, MinifyImages,
		GenerateIconfont, GenerateReadme, GenerateLocalization, LintServerLanguage,
		LintStyles, LintScripts, Package, Reload, Stream, StartLiveReload, Watch,
		DevServer, Styles, Test, Build,
	} {
		_, ok := f.registry.Lookup(name)
		assert.True(t, ok, name)
	}

	steps := make(map[string][]string)
	for _, info := range f.registry.Tasks() {
		steps[info.Name] = info.Steps
	}
	assert.Equal(t, []string{CompileStyles, GenerateRTL, PrefixStyles}, steps[Styles])
	assert.Equal(t, []string{LintServerLanguage, LintScripts, LintStyles}, steps[Test])
	assert.Equal(t, []string{Test, MinifyCSS, MinifyJS, MinifyImages, GenerateLocalization, Package}, steps[Build])
	assert.Equal(t, []string{StartLiveReload, Watch}, steps[DevServer])
}

func TestRegisterRequiresEveryTool(t *testing.T) {
	cfg := config.Default()
	delete(cfg.Tools, config.ToolESLint)
	fs := afero.NewMemMapFs()

	err := Register(NewRegistry(nil, nil), Deps{
		Store:      config.NewStore(cfg, fs),
		Env:        adapters.Env{FS: fs, Logger: logging.NewNopLogger()},
		LiveReload: &fakeLiveReload{},
		Watcher:    &fakeWatcher{},
	})
	assert.True(t, forgeerrors.IsConfigError(err))
}

func TestBuildStopsWhenLintFails(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"functions.php":                  "<?php\n__( 'Hello', 'wordpresstheme' );\n",
		"style.css":                      "/* Theme Name: WordPressTheme */",
		"assets/css/site.css":            "body { color: red; }",
		"assets/js/navigation-custom.js": "var x = 1;",
	})
	f.runner.answers["phpcs"] = func(adapters.Command) adapters.Output {
		return adapters.Output{ExitCode: 2, Stdout: []byte(`{"files": {"functions.php": {"messages": [
			{"message": "Missing file doc comment", "source": "Squiz.Commenting.FileComment.Missing", "type": "ERROR", "line": 1, "column": 1}
		]}}}`)}
	}

	err := f.registry.Run(context.Background(), Build)
	require.Error(t, err)
	assert.True(t, forgeerrors.IsLintError(err))

	assert.Equal(t, 1, f.runner.calls("eslint"), "the other linters still run")
	exists, _ := afero.Exists(f.fs, "assets/css/site.min.css")
	assert.False(t, exists, "minification never starts")
	exists, _ = afero.Exists(f.fs, "dist/wordpresstheme.zip")
	assert.False(t, exists, "no package after a lint failure")
	assert.Empty(t, f.notifier.titles)
}

func TestBuildPackagesCleanTheme(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"functions.php":       "<?php\nesc_html_e( 'Read more', 'wordpresstheme' );\n",
		"style.css":           "/* Theme Name: WordPressTheme */",
		"assets/css/site.css": "body { color: red; }",
		"assets/js/app.js":    "function hello () { return 1 }",
		"package.json":        "{}",
	})

	require.NoError(t, f.registry.Run(context.Background(), Build))

	for _, want := range []string{
		"assets/css/site.min.css",
		"assets/js/app.min.js",
		"languages/wordpresstheme.pot",
		"dist/wordpresstheme.zip",
	} {
		exists, err := afero.Exists(f.fs, want)
		require.NoError(t, err)
		assert.True(t, exists, want)
	}

	pot, err := afero.ReadFile(f.fs, "languages/wordpresstheme.pot")
	require.NoError(t, err)
	assert.Contains(t, string(pot), `msgid "Read more"`)

	assert.Equal(t, []string{"Build successful"}, f.notifier.titles)
}

func TestStylesRunsCompileRTLPrefix(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"assets/sass/style.scss":  "body { color: red; }",
		"assets/sass/_vars.scss":  "$c: red;",
		"assets/sass/editor.scss": "p { margin: 0; }",
	})
	f.runner.answers["sass"] = fakeSass

	require.NoError(t, f.registry.Run(context.Background(), Styles))

	f.runner.mu.Lock()
	order := append([]string(nil), f.runner.invoked...)
	f.runner.mu.Unlock()
	require.NotEmpty(t, order)
	assert.Equal(t, []string{"sass", "sass", "rtlcss", "postcss"}, order)

	_, streamed := f.lr.snapshot()
	assert.Len(t, streamed, 2, "compiled and prefixed stylesheets are both pushed to the browser")
}

func TestDevServerStartsLiveReloadThenWatches(t *testing.T) {
	f := newPipelineFixture(t, nil)

	require.NoError(t, f.registry.Run(context.Background(), DevServer))
	assert.True(t, f.lr.started)
	assert.True(t, f.watcher.watched)
}

func TestWatchBindings(t *testing.T) {
	store := config.NewStore(config.Default(), afero.NewMemMapFs())
	bindings, err := WatchBindings(store)
	require.NoError(t, err)
	require.Len(t, bindings, 2)

	assert.Equal(t, "styles", bindings[0].Name)
	assert.Equal(t, CompileStyles, bindings[0].Task)
	assert.Equal(t, []string{"./assets/sass/**/*.scss"}, bindings[0].Globs)

	assert.Equal(t, Reload, bindings[1].Task)
	assert.Contains(t, bindings[1].Globs, "!./assets/js/*.min.js")
	assert.Contains(t, bindings[1].Globs, "./template-parts/**/*.php")
}

func TestStyleChangeCompilesOnceAndStreams(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"assets/sass/style.scss": "body { color: red; }",
	})
	f.runner.answers["sass"] = fakeSass

	bindings, err := WatchBindings(f.store)
	require.NoError(t, err)
	c, err := watcher.NewController(f.root, 10*time.Millisecond, bindings, f.registry, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wait, err := c.Start(ctx)
	require.NoError(t, err)

	c.Notify([]watcher.ChangeEvent{{Type: watcher.EventTypeModified, Path: "assets/sass/style.scss"}})

	require.Eventually(t, func() bool {
		_, streamed := f.lr.snapshot()
		return len(streamed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wait()

	reloads, streamed := f.lr.snapshot()
	assert.Equal(t, 1, f.runner.calls("sass"))
	assert.Equal(t, 0, reloads)
	require.Len(t, streamed[0], 1)
	assert.True(t, strings.HasSuffix(streamed[0][0], "style.css"))

	css, err := afero.ReadFile(f.fs, "style.css")
	require.NoError(t, err)
	assert.Equal(t, "body {\n\tcolor: red;\n}\n", string(css))
}

func TestScriptChangeReloads(t *testing.T) {
	f := newPipelineFixture(t, nil)

	bindings, err := WatchBindings(f.store)
	require.NoError(t, err)
	c, err := watcher.NewController(f.root, 10*time.Millisecond, bindings, f.registry, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wait, err := c.Start(ctx)
	require.NoError(t, err)

	c.Notify([]watcher.ChangeEvent{{Type: watcher.EventTypeModified, Path: "inc/template-tags.php"}})
	require.Eventually(t, func() bool {
		reloads, _ := f.lr.snapshot()
		return reloads == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wait()
	assert.Equal(t, 0, f.runner.calls("sass"))
}
