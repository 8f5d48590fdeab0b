package adapters

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

var (
	headingPattern = regexp.MustCompile(`^(={1,3})\s*(.+?)\s*={1,3}\s*$`)
	fieldPattern   = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s*(.*)$`)
)

// ReadmeConverter turns a WordPress readme.txt into Markdown.
type ReadmeConverter struct {
	env Env
}

// NewReadmeConverter creates the readme adapter.
func NewReadmeConverter(env Env) *ReadmeConverter {
	return &ReadmeConverter{env: env}
}

// Name returns the adapter name.
func (r *ReadmeConverter) Name() string { return "readme" }

// Run converts the first matched source and writes it to the "file" option
// under Dest.
func (r *ReadmeConverter) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := r.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{Kind: KindSignal, Message: "no readme.txt found"}, nil
	}

	src := files[0]
	data, err := afero.ReadFile(r.env.FS, src)
	if err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, src)
	}

	out := path.Join(glob.Normalize(inv.Dest), inv.Opt("file", "README.md"))
	if err := r.env.FS.MkdirAll(path.Dir(out), 0o755); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
	}
	if err := afero.WriteFile(r.env.FS, out, []byte(ReadmeToMarkdown(string(data))), 0o644); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
	}
	return Result{Kind: KindFileSet, Files: []string{out}}, nil
}

// ReadmeToMarkdown converts readme.txt markup. "=== Name ===" becomes a
// level one heading, "==" level two and "=" level three. "Field: value"
// lines of the header block before the first section become bold fields,
// and contributors link to their WordPress.org profiles.
func ReadmeToMarkdown(src string) string {
	title := cases.Title(language.English)
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	inHeader := true
	var b strings.Builder

	for i, line := range lines {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			level := 4 - len(m[1])
			hashes := strings.Repeat("#", level)
			fmt.Fprintf(&b, "%s %s %s", hashes, m[2], hashes)
			if level > 1 {
				inHeader = false
			}
		} else if m := fieldPattern.FindStringSubmatch(line); inHeader && m != nil {
			key := title.String(strings.ToLower(m[1]))
			value := m[2]
			if strings.EqualFold(m[1], "contributors") {
				value = contributorLinks(value)
			}
			fmt.Fprintf(&b, "**%s:** %s  ", key, value)
		} else {
			b.WriteString(line)
		}
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func contributorLinks(list string) string {
	var links []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		links = append(links, fmt.Sprintf("[%s](https://profiles.wordpress.org/%s/)", name, name))
	}
	return strings.Join(links, ", ")
}
