package adapters

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// reportParser turns a linter's JSON report into violations.
type reportParser func(root string, report gjson.Result, c *forgeerrors.ViolationCollector)

// Linter runs one linting tool over matched files and aggregates every
// finding into a single LintError.
type Linter struct {
	env       Env
	tool      tool
	name      string
	args      []string
	parse     reportParser
	threshold forgeerrors.Severity
}

// Name returns the adapter name.
func (l *Linter) Name() string { return l.name }

// NewPHPLinter runs phpcs with the configured coding standard. With a
// warning severity of zero only errors fail the run.
func NewPHPLinter(env Env, t config.ToolConfig, opts config.LintConfig) *Linter {
	threshold := forgeerrors.SeverityWarning
	if opts.PHPWarningSeverity == 0 {
		threshold = forgeerrors.SeverityError
	}
	return &Linter{
		env:  env,
		tool: newTool(t),
		name: "phpcs",
		args: []string{
			"--report=json",
			"--standard=" + opts.PHPStandard,
			"--warning-severity=" + strconv.Itoa(opts.PHPWarningSeverity),
		},
		parse:     parsePHPCS,
		threshold: threshold,
	}
}

// NewStyleLinter runs stylelint.
func NewStyleLinter(env Env, t config.ToolConfig, opts config.LintConfig) *Linter {
	args := []string{"--formatter", "json"}
	if opts.StylesConfig != "" {
		args = append(args, "--config", opts.StylesConfig)
	}
	return &Linter{
		env:       env,
		tool:      newTool(t),
		name:      "stylelint",
		args:      args,
		parse:     parseStylelint,
		threshold: forgeerrors.SeverityError,
	}
}

// NewScriptLinter runs eslint.
func NewScriptLinter(env Env, t config.ToolConfig, opts config.LintConfig) *Linter {
	args := []string{"--format", "json"}
	if opts.JSConfig != "" {
		args = append(args, "--config", opts.JSConfig)
	}
	return &Linter{
		env:       env,
		tool:      newTool(t),
		name:      "eslint",
		args:      args,
		parse:     parseESLint,
		threshold: forgeerrors.SeverityError,
	}
}

// Run lints the matched files. It fails with a LintError when the report
// holds violations at or above the threshold, and with an I/O error when the
// tool exits non-zero without a readable report.
func (l *Linter) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := l.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{Kind: KindSignal, Message: l.name + ": no files to lint"}, nil
	}

	args := append(append([]string{}, l.args...), files...)
	out, err := l.env.Runner.Run(ctx, l.tool.cmdline(l.env.Root, args...))
	if err != nil {
		return Result{}, err
	}

	report, ok := findReport(out)
	if !ok {
		if out.ExitCode != 0 {
			return Result{}, toolFailure(l.tool.command, out)
		}
		return Result{Kind: KindSignal, Message: fmt.Sprintf("%s: %d files clean", l.name, len(files))}, nil
	}

	collector := forgeerrors.NewViolationCollector(l.threshold)
	l.parse(l.env.Root, report, collector)
	if err := collector.Err(l.name); err != nil {
		return Result{}, err
	}

	return Result{Kind: KindSignal, Message: fmt.Sprintf("%s: %d files clean", l.name, len(files))}, nil
}

// findReport locates the JSON report on stdout, falling back to stderr for
// tools that print findings there.
func findReport(out Output) (gjson.Result, bool) {
	for _, stream := range [][]byte{out.Stdout, out.Stderr} {
		trimmed := bytes.TrimSpace(stream)
		if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
			continue
		}
		return gjson.ParseBytes(trimmed), true
	}
	return gjson.Result{}, false
}

// relPath reports tool paths relative to the project root.
func relPath(root, p string) string {
	if filepath.IsAbs(p) {
		if abs, err := filepath.Abs(root); err == nil {
			if rel, err := filepath.Rel(abs, p); err == nil {
				return filepath.ToSlash(rel)
			}
		}
	}
	return glob.Normalize(filepath.ToSlash(p))
}

// parsePHPCS reads {"files": {"path": {"messages": [...]}}}.
func parsePHPCS(root string, report gjson.Result, c *forgeerrors.ViolationCollector) {
	report.Get("files").ForEach(func(file, entry gjson.Result) bool {
		entry.Get("messages").ForEach(func(_, m gjson.Result) bool {
			c.Add(forgeerrors.Violation{
				File:     relPath(root, file.String()),
				Line:     int(m.Get("line").Int()),
				Column:   int(m.Get("column").Int()),
				Rule:     m.Get("source").String(),
				Message:  m.Get("message").String(),
				Severity: forgeerrors.ParseSeverity(m.Get("type").String()),
			})
			return true
		})
		return true
	})
}

// parseStylelint reads [{"source": "...", "warnings": [...]}].
func parseStylelint(root string, report gjson.Result, c *forgeerrors.ViolationCollector) {
	report.ForEach(func(_, entry gjson.Result) bool {
		file := relPath(root, entry.Get("source").String())
		entry.Get("warnings").ForEach(func(_, w gjson.Result) bool {
			c.Add(forgeerrors.Violation{
				File:     file,
				Line:     int(w.Get("line").Int()),
				Column:   int(w.Get("column").Int()),
				Rule:     w.Get("rule").String(),
				Message:  w.Get("text").String(),
				Severity: forgeerrors.ParseSeverity(w.Get("severity").String()),
			})
			return true
		})
		return true
	})
}

// parseESLint reads [{"filePath": "...", "messages": [...]}] where severity
// is 1 (warning) or 2 (error).
func parseESLint(root string, report gjson.Result, c *forgeerrors.ViolationCollector) {
	report.ForEach(func(_, entry gjson.Result) bool {
		file := relPath(root, entry.Get("filePath").String())
		entry.Get("messages").ForEach(func(_, m gjson.Result) bool {
			c.Add(forgeerrors.Violation{
				File:     file,
				Line:     int(m.Get("line").Int()),
				Column:   int(m.Get("column").Int()),
				Rule:     m.Get("ruleId").String(),
				Message:  m.Get("message").String(),
				Severity: forgeerrors.ParseSeverity(m.Get("severity").String()),
			})
			return true
		})
		return true
	})
}
