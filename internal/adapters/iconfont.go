package adapters

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// firstCodepoint is where glyphs start in the private use area.
const firstCodepoint = 0xF101

var fontTypes = []string{"eot", "woff2", "woff"}

// Glyph is one icon of the generated font.
type Glyph struct {
	Name      string
	Codepoint rune
}

// IconFontGenerator builds an icon font from SVG sources and writes the
// stylesheet that maps one class per glyph.
type IconFontGenerator struct {
	env  Env
	tool tool
	slug string
}

// NewIconFontGenerator creates the icon font adapter.
func NewIconFontGenerator(env Env, t config.ToolConfig, slug string) *IconFontGenerator {
	return &IconFontGenerator{env: env, tool: newTool(t), slug: slug}
}

// Name returns the adapter name.
func (g *IconFontGenerator) Name() string { return "iconfont" }

// Run stages the distinct SVGs in a scratch directory, runs the font tool
// over it and writes the stylesheet to the "css_dest" option.
func (g *IconFontGenerator) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := g.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	svgs := distinctSVGs(files)
	if len(svgs) == 0 {
		return Result{Kind: KindSignal, Message: "no SVG sources"}, nil
	}

	dest := glob.Normalize(inv.Dest)
	fontName := inv.Opt("font_name", g.slug+"-icons")
	cssDest := glob.Normalize(inv.Opt("css_dest", path.Join("assets/css", g.slug+"-icon.css")))
	fontPath := inv.Opt("css_font_path", "../fonts")

	if err := g.env.FS.MkdirAll(dest, 0o755); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, dest)
	}
	stage, err := afero.TempDir(g.env.FS, dest, ".wpforge-svg-")
	if err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, dest)
	}
	defer g.env.FS.RemoveAll(stage)

	names := make([]string, 0, len(svgs))
	for _, name := range sortedKeys(svgs) {
		data, err := afero.ReadFile(g.env.FS, svgs[name])
		if err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, svgs[name])
		}
		if err := afero.WriteFile(g.env.FS, path.Join(stage, name+".svg"), data, 0o644); err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, stage)
		}
		names = append(names, name)
	}

	args := []string{stage, "--output", dest, "--name", fontName, "--asset-types", "json"}
	for _, t := range fontTypes {
		args = append(args, "--font-types", t)
	}
	res, err := g.env.Runner.Run(ctx, g.tool.cmdline(g.env.Root, args...))
	if err != nil {
		return Result{}, err
	}
	if res.ExitCode != 0 {
		return Result{}, toolFailure(g.tool.command, res)
	}

	mapFile := path.Join(dest, fontName+".json")
	var codepoints []byte
	if data, err := afero.ReadFile(g.env.FS, mapFile); err == nil {
		codepoints = data
		_ = g.env.FS.Remove(mapFile)
	}
	glyphs := AssignCodepoints(names, codepoints)

	if err := g.env.FS.MkdirAll(path.Dir(cssDest), 0o755); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, cssDest)
	}
	css := IconFontCSS(fontName, fontPath, glyphs)
	if err := afero.WriteFile(g.env.FS, cssDest, []byte(css), 0o644); err != nil {
		return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, cssDest)
	}

	written := []string{cssDest}
	for _, t := range fontTypes {
		written = append(written, path.Join(dest, fontName+"."+t))
	}
	return Result{Kind: KindFileSet, Files: written}, nil
}

// distinctSVGs keys SVG sources by glyph name; the first file wins when two
// directories hold the same name.
func distinctSVGs(files []string) map[string]string {
	out := make(map[string]string)
	for _, f := range files {
		if strings.ToLower(path.Ext(f)) != ".svg" {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), path.Ext(f))
		if _, ok := out[name]; !ok {
			out[name] = f
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AssignCodepoints resolves each glyph's codepoint from the tool's JSON map
// ({"name": 61697, ...}). Glyphs missing from the map continue sequentially
// after the highest assigned codepoint.
func AssignCodepoints(names []string, mapping []byte) []Glyph {
	parsed := gjson.ParseBytes(mapping)
	next := rune(firstCodepoint)
	glyphs := make([]Glyph, len(names))
	assigned := make([]bool, len(names))

	for i, name := range names {
		glyphs[i].Name = name
		if !gjson.ValidBytes(mapping) {
			continue
		}
		v := parsed.Get(gjson.Escape(name))
		if v.Exists() && v.Int() > 0 {
			glyphs[i].Codepoint = rune(v.Int())
			assigned[i] = true
			if glyphs[i].Codepoint >= next {
				next = glyphs[i].Codepoint + 1
			}
		}
	}
	for i := range glyphs {
		if !assigned[i] {
			glyphs[i].Codepoint = next
			next++
		}
	}
	return glyphs
}

// IconFontCSS renders the @font-face rule and one class per glyph.
func IconFontCSS(fontName, fontPath string, glyphs []Glyph) string {
	url := strings.TrimSuffix(fontPath, "/") + "/" + fontName
	var b strings.Builder

	b.WriteString("@font-face {\n")
	fmt.Fprintf(&b, "\tfont-family: \"%s\";\n", fontName)
	fmt.Fprintf(&b, "\tsrc: url(\"%s.eot\");\n", url)
	fmt.Fprintf(&b, "\tsrc: url(\"%s.eot?#iefix\") format(\"embedded-opentype\"),\n", url)
	fmt.Fprintf(&b, "\t\turl(\"%s.woff2\") format(\"woff2\"),\n", url)
	fmt.Fprintf(&b, "\t\turl(\"%s.woff\") format(\"woff\");\n", url)
	b.WriteString("}\n\n")

	b.WriteString("i[class^=\"icon-\"]:before, i[class*=\" icon-\"]:before {\n")
	fmt.Fprintf(&b, "\tfont-family: \"%s\" !important;\n", fontName)
	b.WriteString("\tfont-style: normal;\n\tfont-weight: normal !important;\n")
	b.WriteString("\tfont-variant: normal;\n\ttext-transform: none;\n\tline-height: 1;\n")
	b.WriteString("\t-webkit-font-smoothing: antialiased;\n\t-moz-osx-font-smoothing: grayscale;\n")
	b.WriteString("}\n")

	for _, g := range glyphs {
		fmt.Fprintf(&b, "\n.icon-%s:before {\n\tcontent: \"\\%x\";\n}\n", g.Name, g.Codepoint)
	}
	return b.String()
}
