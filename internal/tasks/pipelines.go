package tasks

import (
	"context"

	"github.com/sethstha/wpforge/internal/adapters"
	"github.com/sethstha/wpforge/internal/config"
	"github.com/sethstha/wpforge/internal/watcher"
)

// Task names exposed on the command line.
const (
	CompileStyles        = "compile-styles"
	PrefixStyles         = "prefix-styles"
	GenerateRTL          = "generate-rtl"
	MinifyCSS            = "minify-css"
	MinifyJS             = "minify-js"
	MinifyImages         = "minify-images"
	GenerateIconfont     = "generate-iconfont"
	GenerateReadme       = "generate-readme"
	GenerateLocalization = "generate-localization"
	LintServerLanguage   = "lint-server-language"
	LintStyles           = "lint-styles"
	LintScripts          = "lint-scripts"
	Package              = "package"
	Reload               = "reload"
	Stream               = "stream"
	StartLiveReload      = "start-live-reload"
	Watch                = "watch"
	DevServer            = "dev-server"
	Styles               = "styles"
	Test                 = "test"
	Build                = "build"
)

// LiveReload is the dev server the pipelines drive.
type LiveReload interface {
	adapters.Reloader
	// Start begins serving and returns once the server is listening. The
	// server stops when ctx is done.
	Start(ctx context.Context) error
}

// Watcher blocks watching the project until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) error
}

// Deps are the collaborators the pipelines are wired to.
type Deps struct {
	Store      *config.Store
	Env        adapters.Env
	LiveReload LiveReload
	Watcher    Watcher
}

type unit struct {
	name        string
	description string
	category    string
	adapter     adapters.Adapter
}

// Register defines every named task and pipeline on r.
func Register(r *Registry, d Deps) error {
	tool := func(name string) config.ToolConfig {
		t, _ := d.Store.Tool(name)
		return t
	}
	for _, name := range []string{
		config.ToolSass, config.ToolPostCSS, config.ToolRTLCSS, config.ToolPHPCS,
		config.ToolStylelint, config.ToolESLint, config.ToolImagemin, config.ToolWebfont,
	} {
		if _, err := d.Store.Tool(name); err != nil {
			return err
		}
	}

	cfg := d.Store.Config()
	info := d.Store.ProjectInfo()
	env := d.Env
	lr := d.LiveReload

	units := []unit{
		{CompileStyles, "Compile SCSS into CSS", config.CategorySCSS,
			adapters.WithStream(adapters.NewSassCompiler(env, tool(config.ToolSass), cfg.Styles), lr)},
		{PrefixStyles, "Add vendor prefixes to stylesheets", config.CategoryPrefix,
			adapters.WithStream(adapters.NewPrefixer(env, tool(config.ToolPostCSS), cfg.Styles), lr)},
		{GenerateRTL, "Generate right-to-left stylesheets", config.CategoryRTL,
			adapters.NewRTLGenerator(env, tool(config.ToolRTLCSS))},
		{MinifyCSS, "Minify stylesheets", config.CategoryCSS,
			adapters.NewCSSMinifier(env)},
		{MinifyJS, "Minify scripts", config.CategoryJS,
			adapters.NewJSMinifier(env)},
		{MinifyImages, "Optimize images", config.CategoryImages,
			adapters.NewImageOptimizer(env, tool(config.ToolImagemin))},
		{GenerateIconfont, "Build the icon font from SVGs", config.CategoryIconFont,
			adapters.NewIconFontGenerator(env, tool(config.ToolWebfont), info.Slug)},
		{GenerateReadme, "Convert readme.txt to README.md", config.CategoryReadme,
			adapters.NewReadmeConverter(env)},
		{GenerateLocalization, "Generate the translation template", config.CategoryPot,
			adapters.NewPotGenerator(env, info)},
		{LintServerLanguage, "Lint PHP with phpcs", config.CategoryLintPHP,
			adapters.NewPHPLinter(env, tool(config.ToolPHPCS), cfg.Lint)},
		{LintStyles, "Lint SCSS with stylelint", config.CategoryLintStyles,
			adapters.NewStyleLinter(env, tool(config.ToolStylelint), cfg.Lint)},
		{LintScripts, "Lint scripts with eslint", config.CategoryLintJS,
			adapters.NewScriptLinter(env, tool(config.ToolESLint), cfg.Lint)},
		{Package, "Package the theme into a zip", config.CategoryZip,
			adapters.NewArchiver(env, info.Slug)},
	}

	h := make(map[string]Handle)
	for _, u := range units {
		handle, err := r.Define(u.name, u.description, u.adapter, FromCategory(d.Store, u.category))
		if err != nil {
			return err
		}
		h[u.name] = handle
	}

	signals := []struct {
		name        string
		description string
		adapter     adapters.Adapter
	}{
		{Reload, "Reload connected browsers", adapters.NewReload(lr)},
		{Stream, "Inject stylesheets into connected browsers", adapters.NewStream(lr)},
		{StartLiveReload, "Start the live-reload proxy", adapters.Func{
			ID: "live-reload",
			Fn: func(ctx context.Context, _ adapters.Invocation) (adapters.Result, error) {
				if err := lr.Start(ctx); err != nil {
					return adapters.Result{}, err
				}
				return adapters.Result{Kind: adapters.KindSignal, Message: "live reload started"}, nil
			},
		}},
		{Watch, "Watch sources and rebuild on change", adapters.Func{
			ID: "watch",
			Fn: func(ctx context.Context, _ adapters.Invocation) (adapters.Result, error) {
				if err := d.Watcher.Watch(ctx); err != nil {
					return adapters.Result{}, err
				}
				return adapters.Result{Kind: adapters.KindSignal, Message: "watch stopped"}, nil
			},
		}},
	}
	for _, s := range signals {
		handle, err := r.Define(s.name, s.description, s.adapter, Static(adapters.Invocation{}))
		if err != nil {
			return err
		}
		h[s.name] = handle
	}

	if _, err := r.Series(Styles, "Compile, mirror and prefix stylesheets",
		h[CompileStyles], h[GenerateRTL], h[PrefixStyles]); err != nil {
		return err
	}
	test, err := r.Batch(Test, "Run every linter and report all findings",
		h[LintServerLanguage], h[LintScripts], h[LintStyles])
	if err != nil {
		return err
	}
	if _, err := r.Series(Build, "Lint, minify, localize and package",
		test, h[MinifyCSS], h[MinifyJS], h[MinifyImages], h[GenerateLocalization], h[Package]); err != nil {
		return err
	}
	if _, err := r.Series(DevServer, "Start live reload and watch",
		h[StartLiveReload], h[Watch]); err != nil {
		return err
	}
	return nil
}

// FromCategory resolves a task's invocation from the path table each time
// the task runs.
func FromCategory(store *config.Store, category string) Source {
	return func() (adapters.Invocation, error) {
		spec, err := store.PathSpec(category)
		if err != nil {
			return adapters.Invocation{}, err
		}
		return adapters.FromSpec(spec), nil
	}
}

// WatchBindings maps style sources to the compile task and script and PHP
// sources to a browser reload.
func WatchBindings(store *config.Store) ([]watcher.Binding, error) {
	scss, err := store.PathSpec(config.CategorySCSS)
	if err != nil {
		return nil, err
	}
	js, err := store.PathSpec(config.CategoryJS)
	if err != nil {
		return nil, err
	}
	php, err := store.PathSpec(config.CategoryPHP)
	if err != nil {
		return nil, err
	}

	scripts := append(append([]string{}, js.Sources...), php.Sources...)
	return []watcher.Binding{
		{Name: "styles", Globs: scss.Sources, Task: CompileStyles},
		{Name: "scripts", Globs: scripts, Task: Reload},
	}, nil
}
