package adapters

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// SassCompiler compiles SCSS sources with the sass CLI.
type SassCompiler struct {
	env         Env
	tool        tool
	indentType  string
	indentWidth int
	outputStyle string
}

// NewSassCompiler creates the style compiler adapter.
func NewSassCompiler(env Env, t config.ToolConfig, opts config.StylesConfig) *SassCompiler {
	return &SassCompiler{
		env:         env,
		tool:        newTool(t),
		indentType:  opts.IndentType,
		indentWidth: opts.IndentWidth,
		outputStyle: opts.OutputStyle,
	}
}

// Name returns the adapter name.
func (s *SassCompiler) Name() string { return "sass" }

// Run compiles every non-partial source into Dest, keeping each file's path
// relative to its glob base. The first syntax error aborts the run with a
// CompileError located at the offending line.
func (s *SassCompiler) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := s.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	rules, err := glob.Parse(inv.Sources)
	if err != nil {
		return Result{}, err
	}

	var written []string
	for _, src := range files {
		if strings.HasPrefix(path.Base(src), "_") {
			continue
		}
		rel := glob.Relative(rules, src)
		out := path.Join(glob.Normalize(inv.Dest), strings.TrimSuffix(rel, path.Ext(rel))+".css")

		if err := s.env.FS.MkdirAll(path.Dir(out), 0o755); err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
		}

		cmd := s.tool.cmdline(s.env.Root,
			"--style="+s.outputStyle,
			"--no-source-map",
			"--no-error-css",
			src, out)
		res, err := s.env.Runner.Run(ctx, cmd)
		if err != nil {
			return Result{}, err
		}
		if res.ExitCode != 0 {
			return Result{}, forgeerrors.ParseCompileOutput(string(res.Stderr), toolFailure(s.tool.command, res))
		}

		if err := s.reindent(out); err != nil {
			return Result{}, err
		}
		written = append(written, out)
	}

	return Result{Kind: KindStream, Files: written}, nil
}

// reindent rewrites the compiler's two-space indentation using the
// configured indent type and width.
func (s *SassCompiler) reindent(file string) error {
	unit := strings.Repeat(" ", s.indentWidth)
	if s.indentType == "tab" {
		unit = strings.Repeat("\t", s.indentWidth)
	}
	if unit == "  " {
		return nil
	}

	data, err := afero.ReadFile(s.env.FS, file)
	if err != nil {
		return forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, file)
	}
	if err := afero.WriteFile(s.env.FS, file, Reindent(data, unit), 0o644); err != nil {
		return forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, file)
	}
	return nil
}

// Reindent replaces each leading pair of spaces with unit.
func Reindent(data []byte, unit string) []byte {
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if n < 2 {
			continue
		}
		levels := n / 2
		rest := line[levels*2:]
		var b bytes.Buffer
		b.WriteString(strings.Repeat(unit, levels))
		b.Write(rest)
		lines[i] = b.Bytes()
	}
	return bytes.Join(lines, []byte("\n"))
}

// Prefixer adds vendor prefixes through postcss + autoprefixer.
type Prefixer struct {
	env      Env
	tool     tool
	browsers []string
}

// NewPrefixer creates the prefixer adapter.
func NewPrefixer(env Env, t config.ToolConfig, opts config.StylesConfig) *Prefixer {
	return &Prefixer{env: env, tool: newTool(t), browsers: opts.Browsers}
}

// Name returns the adapter name.
func (p *Prefixer) Name() string { return "autoprefixer" }

// Run rewrites every matched stylesheet. Files already in Dest are replaced
// in place; others are written to Dest.
func (p *Prefixer) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := p.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{Kind: KindStream}, nil
	}

	dest := path.Clean(glob.Normalize(inv.Dest))
	if dest == "" {
		dest = "."
	}

	var inPlace, moved []string
	for _, f := range files {
		if path.Dir(f) == dest {
			inPlace = append(inPlace, f)
		} else {
			moved = append(moved, f)
		}
	}

	env := []string{"BROWSERSLIST=" + strings.Join(p.browsers, ", ")}
	var written []string

	if len(inPlace) > 0 {
		args := append([]string{}, inPlace...)
		args = append(args, "--use", "autoprefixer", "--replace", "--no-map")
		if err := p.run(ctx, env, args); err != nil {
			return Result{}, err
		}
		written = append(written, inPlace...)
	}
	if len(moved) > 0 {
		args := append([]string{}, moved...)
		args = append(args, "--use", "autoprefixer", "--dir", dest, "--no-map")
		if err := p.run(ctx, env, args); err != nil {
			return Result{}, err
		}
		for _, f := range moved {
			written = append(written, path.Join(dest, path.Base(f)))
		}
	}

	return Result{Kind: KindStream, Files: written}, nil
}

func (p *Prefixer) run(ctx context.Context, env []string, args []string) error {
	cmd := p.tool.cmdline(p.env.Root, args...)
	cmd.Env = env
	out, err := p.env.Runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return forgeerrors.ParseCompileOutput(string(out.Stderr), toolFailure(p.tool.command, out))
	}
	return nil
}

// RTLGenerator writes a right-to-left copy of each stylesheet with an
// "-rtl" suffix.
type RTLGenerator struct {
	env  Env
	tool tool
}

// NewRTLGenerator creates the RTL adapter.
func NewRTLGenerator(env Env, t config.ToolConfig) *RTLGenerator {
	return &RTLGenerator{env: env, tool: newTool(t)}
}

// Name returns the adapter name.
func (r *RTLGenerator) Name() string { return "rtlcss" }

// Run converts each matched stylesheet.
func (r *RTLGenerator) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := r.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}

	var written []string
	for _, src := range files {
		out := RTLName(src, inv.Dest)
		if out == glob.Normalize(src) {
			return Result{}, fmt.Errorf("rtl output would overwrite %s", src)
		}
		res, err := r.env.Runner.Run(ctx, r.tool.cmdline(r.env.Root, src, out))
		if err != nil {
			return Result{}, err
		}
		if res.ExitCode != 0 {
			return Result{}, toolFailure(r.tool.command, res)
		}
		written = append(written, out)
	}

	return Result{Kind: KindFileSet, Files: written}, nil
}

// RTLName maps a stylesheet to its RTL counterpart in dest.
func RTLName(src, dest string) string {
	base := path.Base(src)
	ext := path.Ext(base)
	return path.Join(glob.Normalize(dest), strings.TrimSuffix(base, ext)+"-rtl"+ext)
}
