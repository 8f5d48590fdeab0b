package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sethstha/wpforge/internal/tasks"
)

// taskCommands are the tasks exposed as subcommands, in help order.
var taskCommands = []struct {
	name  string
	short string
}{
	{tasks.DevServer, "Proxy the local site, then rebuild and reload on change"},
	{tasks.Build, "Lint, minify, localize and package the theme"},
	{tasks.Test, "Run every linter and report all findings"},
	{tasks.Styles, "Compile SCSS, generate RTL stylesheets and add prefixes"},
	{tasks.CompileStyles, "Compile SCSS into CSS"},
	{tasks.PrefixStyles, "Add vendor prefixes to stylesheets"},
	{tasks.GenerateRTL, "Generate right-to-left stylesheets"},
	{tasks.MinifyCSS, "Minify stylesheets"},
	{tasks.MinifyJS, "Minify scripts"},
	{tasks.MinifyImages, "Optimize images"},
	{tasks.GenerateIconfont, "Build the icon font from SVG icons"},
	{tasks.GenerateReadme, "Convert readme.txt into README.md"},
	{tasks.GenerateLocalization, "Generate the translation template"},
	{tasks.LintServerLanguage, "Lint PHP with phpcs"},
	{tasks.LintStyles, "Lint SCSS with stylelint"},
	{tasks.LintScripts, "Lint scripts with eslint"},
	{tasks.Package, "Package the theme into a zip archive"},
	{tasks.StartLiveReload, "Start the live-reload proxy"},
	{tasks.Watch, "Watch sources and run the bound tasks on change"},
}

func init() {
	for _, tc := range taskCommands {
		rootCmd.AddCommand(newTaskCommand(tc.name, tc.short))
	}
}

func newTaskCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTask(ctx, defaultAppOptions(), name)
		},
	}
}

func runTask(ctx context.Context, opts appOptions, name string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	return a.run(ctx, name)
}
