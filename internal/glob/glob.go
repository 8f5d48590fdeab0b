// Package glob expands ordered lists of include and exclude patterns.
//
// Patterns use doublestar syntax ("**" crosses directories). A pattern
// prefixed with "!" excludes whatever it matches. Patterns are evaluated in
// order for every candidate file and the last pattern that matches decides
// whether the file is kept, so a later include can re-admit a file an
// earlier exclude removed.
//
// Hidden files and directories (a path segment starting with ".") are only
// included by a pattern that names a hidden segment itself, so "**" never
// reaches .git or .eslintrc. Exclusions match hidden paths as usual.
package glob

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Rule is one parsed pattern.
type Rule struct {
	Pattern string
	Negate  bool
}

// Parse normalizes raw patterns into rules. Leading "./" is dropped so that
// patterns written relative to the project root match the relative paths the
// filesystem reports.
func Parse(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		neg := strings.HasPrefix(p, "!")
		if neg {
			p = p[1:]
		}
		p = Normalize(p)
		if p == "" {
			return nil, fmt.Errorf("empty glob pattern in %q", raw)
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", raw)
		}
		rules = append(rules, Rule{Pattern: p, Negate: neg})
	}
	return rules, nil
}

// Normalize converts a path or pattern to the slash-separated, root-relative
// form used for matching.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if p == "." {
		return ""
	}
	return p
}

// Match reports whether name survives the ordered rules.
func Match(rules []Rule, name string) bool {
	name = Normalize(name)
	kept := false
	for _, r := range rules {
		if !r.Negate && !admits(r.Pattern, name) {
			continue
		}
		ok, err := doublestar.Match(r.Pattern, name)
		if err != nil || !ok {
			continue
		}
		kept = !r.Negate
	}
	return kept
}

// admits reports whether an include pattern may match name at all: hidden
// paths need a pattern with a hidden segment.
func admits(pattern, name string) bool {
	return !isHidden(name) || isHidden(pattern)
}

func isHidden(p string) bool {
	return strings.HasPrefix(p, ".") || strings.Contains(p, "/.")
}

// MatchPatterns parses patterns and matches name against them. Invalid
// patterns never match.
func MatchPatterns(patterns []string, name string) bool {
	rules, err := Parse(patterns)
	if err != nil {
		return false
	}
	return Match(rules, name)
}

// Expand returns the sorted, de-duplicated set of regular files in fsys that
// survive patterns. The result is built fresh on every call.
func Expand(fsys afero.Fs, patterns []string) ([]string, error) {
	rules, err := Parse(patterns)
	if err != nil {
		return nil, err
	}

	iofs := afero.NewIOFS(fsys)
	seen := make(map[string]struct{})
	for _, r := range rules {
		if r.Negate {
			continue
		}
		matches, err := doublestar.Glob(iofs, r.Pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", r.Pattern, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		if Match(rules, f) {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Bases returns the static directory prefix of every include pattern, which
// is where a watcher has to listen to see changes the patterns care about.
func Bases(patterns []string) []string {
	seen := make(map[string]struct{})
	var bases []string
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if strings.HasPrefix(p, "!") {
			continue
		}
		base, _ := doublestar.SplitPattern(Normalize(p))
		base = path.Clean(base)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		bases = append(bases, base)
	}
	sort.Strings(bases)
	return bases
}

// Relative returns name relative to the static base of the include rule that
// admitted it, mirroring how a glob's base is stripped when files are written
// to a destination directory. A name no include rule matches is returned
// unchanged.
func Relative(rules []Rule, name string) string {
	name = Normalize(name)
	base := ""
	for _, r := range rules {
		if r.Negate {
			continue
		}
		if !admits(r.Pattern, name) {
			continue
		}
		if ok, err := doublestar.Match(r.Pattern, name); err == nil && ok {
			base, _ = doublestar.SplitPattern(r.Pattern)
		}
	}
	if base == "" || base == "." {
		return name
	}
	rel := strings.TrimPrefix(name, base)
	return strings.TrimPrefix(rel, "/")
}
