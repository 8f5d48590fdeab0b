package adapters

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// keyword describes which call arguments of a gettext function carry the
// message id, plural form, context and text domain. -1 means absent.
type keyword struct {
	msgid, plural, context, domain int
}

var keywords = map[string]keyword{
	"__":         {0, -1, -1, 1},
	"_e":         {0, -1, -1, 1},
	"esc_html__": {0, -1, -1, 1},
	"esc_html_e": {0, -1, -1, 1},
	"esc_attr__": {0, -1, -1, 1},
	"esc_attr_e": {0, -1, -1, 1},
	"_x":         {0, -1, 1, 2},
	"_ex":        {0, -1, 1, 2},
	"esc_html_x": {0, -1, 1, 2},
	"esc_attr_x": {0, -1, 1, 2},
	"_n":         {0, 1, -1, 3},
	"_n_noop":    {0, 1, -1, 2},
	"_nx":        {0, 1, 3, 4},
	"_nx_noop":   {0, 1, 2, 3},
}

var callPattern = regexp.MustCompile(`\b(__|_e|_x|_ex|_n|_nx|_n_noop|_nx_noop|esc_html__|esc_html_e|esc_html_x|esc_attr__|esc_attr_e|esc_attr_x)\s*\(`)

// Message is one translatable string found in the sources.
type Message struct {
	Context    string
	ID         string
	Plural     string
	References []string
}

// PotGenerator extracts translatable strings from PHP sources into a single
// translation template.
type PotGenerator struct {
	env     Env
	project config.ProjectInfo
	now     func() time.Time
}

// NewPotGenerator creates the localization adapter.
func NewPotGenerator(env Env, project config.ProjectInfo) *PotGenerator {
	return &PotGenerator{env: env, project: project, now: time.Now}
}

// Name returns the adapter name.
func (p *PotGenerator) Name() string { return "wp-pot" }

// Run scans the matched sources and writes the template to the "file"
// option under Dest.
func (p *PotGenerator) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := p.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}

	index := make(map[string]*Message)
	var order []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := afero.ReadFile(p.env.FS, f)
		if err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, f)
		}
		for _, m := range ExtractMessages(f, string(data), p.project.Slug) {
			key := m.Context + "\x04" + m.ID
			if existing, ok := index[key]; ok {
				existing.References = append(existing.References, m.References...)
				if existing.Plural == "" {
					existing.Plural = m.Plural
				}
				continue
			}
			msg := m
			index[key] = &msg
			order = append(order, key)
		}
	}

	messages := make([]Message, 0, len(order))
	for _, key := range order {
		messages = append(messages, *index[key])
	}

	out := path.Join(glob.Normalize(inv.Dest), inv.Opt("file", p.project.Slug+".pot"))
	if err := p.env.FS.MkdirAll(path.Dir(out), 0o755); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
	}
	if err := afero.WriteFile(p.env.FS, out, []byte(p.render(messages)), 0o644); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
	}

	return Result{Kind: KindFileSet, Files: []string{out}}, nil
}

func (p *PotGenerator) render(messages []Message) string {
	var b strings.Builder
	info := p.project

	fmt.Fprintf(&b, "# Copyright (C) %d %s\n", p.now().Year(), info.Author)
	fmt.Fprintf(&b, "# This file is distributed under the same license as the %s package.\n", info.Name)
	b.WriteString("msgid \"\"\nmsgstr \"\"\n")
	header := []string{
		"Project-Id-Version: " + strings.TrimSpace(info.Name+" "+info.Version),
		"Report-Msgid-Bugs-To: " + info.AuthorEmail,
		"Last-Translator: " + info.TeamEmail,
		"Language-Team: " + info.TeamEmail,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"POT-Creation-Date: " + p.now().UTC().Format("2006-01-02 15:04-0700"),
		"PO-Revision-Date: YEAR-MO-DA HO:MI+ZONE",
		"Plural-Forms: nplurals=INTEGER; plural=EXPRESSION;",
		"X-Domain: " + info.Slug,
	}
	for _, h := range header {
		fmt.Fprintf(&b, "\"%s\\n\"\n", poEscape(h))
	}

	for _, m := range messages {
		b.WriteString("\n")
		refs := append([]string(nil), m.References...)
		sort.Strings(refs)
		for _, r := range refs {
			fmt.Fprintf(&b, "#: %s\n", r)
		}
		if m.Context != "" {
			fmt.Fprintf(&b, "msgctxt \"%s\"\n", poEscape(m.Context))
		}
		fmt.Fprintf(&b, "msgid \"%s\"\n", poEscape(m.ID))
		if m.Plural != "" {
			fmt.Fprintf(&b, "msgid_plural \"%s\"\n", poEscape(m.Plural))
			b.WriteString("msgstr[0] \"\"\nmsgstr[1] \"\"\n")
		} else {
			b.WriteString("msgstr \"\"\n")
		}
	}
	return b.String()
}

// ExtractMessages finds gettext calls in PHP source. Calls whose text domain
// is a literal other than domain are ignored; calls with a non-literal
// message id cannot be translated and are skipped too.
func ExtractMessages(file, src, domain string) []Message {
	var out []Message
	for _, loc := range callPattern.FindAllStringSubmatchIndex(src, -1) {
		name := src[loc[2]:loc[3]]
		kw := keywords[name]
		args := parseArgs(src[loc[1]:])

		id, ok := argAt(args, kw.msgid)
		if !ok || id == "" {
			continue
		}
		if kw.domain >= 0 {
			if d, ok := argAt(args, kw.domain); ok && domain != "" && d != domain {
				continue
			}
		}

		m := Message{ID: id}
		if kw.plural >= 0 {
			m.Plural, _ = argAt(args, kw.plural)
		}
		if kw.context >= 0 {
			m.Context, _ = argAt(args, kw.context)
		}
		line := strings.Count(src[:loc[0]], "\n") + 1
		m.References = []string{fmt.Sprintf("%s:%d", file, line)}
		out = append(out, m)
	}
	return out
}

// phpArg is one call argument; literal is false when it was not a plain
// string literal.
type phpArg struct {
	value   string
	literal bool
}

func argAt(args []phpArg, i int) (string, bool) {
	if i < 0 || i >= len(args) || !args[i].literal {
		return "", false
	}
	return args[i].value, true
}

// parseArgs reads call arguments from just after the opening parenthesis up
// to the matching close.
func parseArgs(s string) []phpArg {
	var args []phpArg
	depth := 0
	var cur phpArg
	started := false
	tokens := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			val, n := readPHPString(s[i:])
			i += n - 1
			if depth == 0 {
				tokens++
				if tokens == 1 {
					cur = phpArg{value: val, literal: true}
				} else {
					cur.literal = false
				}
			}
			started = true
		case c == '(' || c == '[':
			if depth == 0 {
				tokens++
				cur.literal = false
			}
			depth++
			started = true
		case c == ')' || c == ']':
			if depth == 0 {
				if started {
					args = append(args, cur)
				}
				return args
			}
			depth--
		case c == ',' && depth == 0:
			args = append(args, cur)
			cur = phpArg{}
			tokens = 0
			started = false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			if depth == 0 {
				tokens++
				cur.literal = false
			}
			started = true
		}
	}
	return args
}

// readPHPString decodes a quoted PHP literal at the start of s and returns
// its value and the number of bytes consumed.
func readPHPString(s string) (string, int) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == quote {
			return b.String(), i + 1
		}
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if quote == '\'' {
			if next == '\'' || next == '\\' {
				b.WriteByte(next)
				i++
			} else {
				b.WriteByte(c)
			}
			continue
		}
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"', '\\', '$':
			b.WriteByte(next)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return b.String(), len(s)
}

func poEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return r.Replace(s)
}
