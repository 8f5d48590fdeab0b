package config

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// PathSpec is the resolved path table row for one asset category.
type PathSpec struct {
	Category string
	Sources  []string
	Dest     string
	Opts     map[string]string
	// Files is only populated for categories whose source list is expanded
	// at read time (the icon font).
	Files []string
}

// Opt returns an option value or def when it is unset.
func (p PathSpec) Opt(key, def string) string {
	if v, ok := p.Opts[key]; ok && v != "" {
		return v
	}
	return def
}

// Store is the read-only view of the configuration used by adapters.
type Store struct {
	cfg *Config
	fs  afero.Fs
}

// NewStore wraps a validated configuration. fs is the project filesystem used
// for categories whose source files are resolved on every read.
func NewStore(cfg *Config, fs afero.Fs) *Store {
	return &Store{cfg: cfg, fs: fs}
}

// Config returns the underlying configuration.
func (s *Store) Config() *Config {
	return s.cfg
}

// ProjectInfo returns the project metadata by value.
func (s *Store) ProjectInfo() ProjectInfo {
	return s.cfg.Project
}

// PathSpec returns the path table row for category. The icon font category
// re-expands its globs on every call so new SVGs are picked up without a
// restart.
func (s *Store) PathSpec(category string) (PathSpec, error) {
	p, ok := s.cfg.Paths[category]
	if !ok {
		return PathSpec{}, forgeerrors.NewConfigError(forgeerrors.ErrCodeUnknownCategory,
			fmt.Sprintf("unknown path category %q", category))
	}

	spec := PathSpec{
		Category: category,
		Sources:  append([]string(nil), p.Src...),
		Dest:     s.expand(p.Dest),
		Opts:     make(map[string]string, len(p.Opts)),
	}
	for k, v := range p.Opts {
		spec.Opts[k] = s.expand(v)
	}

	if spec.Dest == "" {
		return PathSpec{}, forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("path category %q has no destination", category))
	}

	if category == CategoryIconFont {
		files, err := glob.Expand(s.fs, spec.Sources)
		if err != nil {
			return PathSpec{}, forgeerrors.Wrap(err, forgeerrors.ErrorTypeConfig,
				forgeerrors.ErrCodeConfigInvalid, "expanding icon font sources")
		}
		spec.Files = files
	}

	return spec, nil
}

// Tool returns the command configured for an external tool.
func (s *Store) Tool(name string) (ToolConfig, error) {
	t, ok := s.cfg.Tools[name]
	if !ok || t.Command == "" {
		return ToolConfig{}, forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("no command configured for tool %q", name))
	}
	return t, nil
}

// Categories returns the configured categories in sorted order.
func (s *Store) Categories() []string {
	out := make([]string, 0, len(s.cfg.Paths))
	for c := range s.cfg.Paths {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DestFile joins a path spec's destination with its "file" option.
func (p PathSpec) DestFile(def string) string {
	return path.Join(glob.Normalize(p.Dest), p.Opt("file", def))
}

func (s *Store) expand(v string) string {
	return strings.ReplaceAll(v, "{slug}", s.cfg.Project.Slug)
}
