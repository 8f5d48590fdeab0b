// Package adapters wraps every external transformation wpforge performs
// behind one contract: an Adapter takes an Invocation (input globs, a
// destination, options and the previous stage's result) and returns a
// Result.
//
// Adapters are stateless between invocations. The ones backed by external
// programs (sass, postcss, rtlcss, the linters, the image optimizer and the
// icon font generator) go through a Runner so tests can substitute the
// subprocess; the rest (minification, localization template, readme,
// packaging) run in process against an afero filesystem rooted at the
// project.
package adapters

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/sethstha/wpforge/internal/config"
	"github.com/sethstha/wpforge/internal/glob"
	"github.com/sethstha/wpforge/internal/logging"
)

// Kind classifies what an adapter produced.
type Kind int

const (
	// KindFileSet means new files were written to the destination.
	KindFileSet Kind = iota
	// KindStream means files were written and should be pushed to a
	// connected browser as they are (style injection).
	KindStream
	// KindSignal means the adapter produced a notification and no files.
	KindSignal
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindFileSet:
		return "fileset"
	case KindStream:
		return "stream"
	case KindSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Result is the output of one adapter run.
type Result struct {
	Kind    Kind
	Files   []string
	Title   string
	Message string
}

// Invocation is the input of one adapter run.
type Invocation struct {
	Sources []string
	Dest    string
	Opts    map[string]string
	// Files is a pre-resolved input list; when set it replaces glob
	// expansion of Sources.
	Files []string
	// Input is the result of the previous stage in a series.
	Input Result
}

// FromSpec builds an invocation from a path spec.
func FromSpec(spec config.PathSpec) Invocation {
	return Invocation{
		Sources: spec.Sources,
		Dest:    spec.Dest,
		Opts:    spec.Opts,
		Files:   spec.Files,
	}
}

// Opt returns an option value or def when it is unset.
func (inv Invocation) Opt(key, def string) string {
	if v, ok := inv.Opts[key]; ok && v != "" {
		return v
	}
	return def
}

// Adapter is one external capability.
type Adapter interface {
	Name() string
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Env is what adapters need from the process: the project root on disk, a
// filesystem rooted there, the subprocess runner and a logger.
type Env struct {
	Root   string
	FS     afero.Fs
	Runner Runner
	Logger logging.Logger
}

// NewEnv creates an environment rooted at root on the OS filesystem.
func NewEnv(root string, runner Runner, logger logging.Logger) Env {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return Env{
		Root:   root,
		FS:     afero.NewBasePathFs(afero.NewOsFs(), root),
		Runner: runner,
		Logger: logger,
	}
}

// inputs resolves the invocation's input files: the pre-resolved list when
// present, otherwise a fresh glob expansion.
func (e Env) inputs(inv Invocation) ([]string, error) {
	if len(inv.Files) > 0 {
		return inv.Files, nil
	}
	files, err := glob.Expand(e.FS, inv.Sources)
	if err != nil {
		return nil, fmt.Errorf("resolving sources: %w", err)
	}
	return files, nil
}

// Func adapts a plain function to the Adapter interface. It is used for the
// tasks that drive long-running collaborators (live reload, watch) rather
// than transform files.
type Func struct {
	ID string
	Fn func(ctx context.Context, inv Invocation) (Result, error)
}

// Name returns the adapter name.
func (f Func) Name() string { return f.ID }

// Run calls the wrapped function.
func (f Func) Run(ctx context.Context, inv Invocation) (Result, error) {
	return f.Fn(ctx, inv)
}
