package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/sethstha/wpforge/internal/adapters"
	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/livereload"
	"github.com/sethstha/wpforge/internal/logging"
	"github.com/sethstha/wpforge/internal/notify"
	"github.com/sethstha/wpforge/internal/tasks"
	"github.com/sethstha/wpforge/internal/watcher"
)

// app is everything a task run needs, wired from one configuration.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	registry *tasks.Registry
	errors   *forgeerrors.Handler
}

// appOptions lets tests replace the process-level collaborators.
type appOptions struct {
	viper  *viper.Viper
	runner adapters.Runner
	stdout io.Writer
	stderr io.Writer
}

func defaultAppOptions() appOptions {
	return appOptions{
		viper:  viper.GetViper(),
		runner: adapters.NewExecRunner(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.LoadFrom(opts.viper)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(opts.viper.GetString("log.level")),
		Format: opts.viper.GetString("log.format"),
		Output: opts.stderr,
	})

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, cfg.Root)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("project root %s is not a directory", root))
	}

	fs := afero.NewBasePathFs(afero.NewOsFs(), root)
	store := config.NewStore(cfg, fs)
	env := adapters.Env{Root: root, FS: fs, Runner: opts.runner, Logger: logger.WithComponent("adapters")}

	server, err := livereload.New(cfg.Server, cfg.Project.LocalURL, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewMulti(notify.NewConsole(opts.stdout))
	notifier.Add(server)
	handler := forgeerrors.NewHandler(logger, notifier)
	registry := tasks.NewRegistry(logger, notifier)

	bindings, err := tasks.WatchBindings(store)
	if err != nil {
		return nil, err
	}
	controller, err := watcher.NewController(root, cfg.Watch.Debounce, bindings, registry, handler, logger)
	if err != nil {
		return nil, err
	}

	if err := tasks.Register(registry, tasks.Deps{
		Store:      store,
		Env:        env,
		LiveReload: server,
		Watcher:    controller,
	}); err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		errors:   handler,
	}, nil
}

// run executes one task. Failures are reported through the error handler
// and returned marked as reported.
func (a *app) run(ctx context.Context, name string) error {
	if err := a.registry.Run(ctx, name); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.errors.Handle(ctx, err)
		return reportedError{err: err}
	}
	return nil
}
