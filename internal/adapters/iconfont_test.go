package adapters

import (
	"context"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/config"
)

func TestIconFontGlyphsMatchDistinctSVGs(t *testing.T) {
	runner := &fakeRunner{}
	env := newTestEnv(t, runner)
	runner.respond = func(cmd Command) Output {
		var out, name string
		for i, a := range cmd.Args {
			switch a {
			case "--output":
				out = cmd.Args[i+1]
			case "--name":
				name = cmd.Args[i+1]
			}
		}
		staged, _ := afero.ReadDir(env.FS, cmd.Args[1])
		mapping := make([]string, 0, len(staged))
		for i, f := range staged {
			glyph := strings.TrimSuffix(f.Name(), ".svg")
			mapping = append(mapping, `"`+glyph+`": `+[]string{"61697", "61698", "61699"}[i])
		}
		_ = afero.WriteFile(env.FS, path.Join(out, name+".json"), []byte("{"+strings.Join(mapping, ",")+"}"), 0o644)
		return Output{}
	}

	writeFiles(t, env.FS, map[string]string{
		"assets/svg/search.svg":      "<svg/>",
		"assets/svg/menu.svg":        "<svg/>",
		"assets/svg/legacy/menu.svg": "<svg/>",
		"assets/svg/close.svg":       "<svg/>",
		"assets/svg/readme.txt":      "",
	})

	files := []string{
		"assets/svg/close.svg",
		"assets/svg/legacy/menu.svg",
		"assets/svg/menu.svg",
		"assets/svg/readme.txt",
		"assets/svg/search.svg",
	}
	gen := NewIconFontGenerator(env, config.ToolConfig{Command: "npx", Args: []string{"fantasticon"}}, "testtheme")
	res, err := gen.Run(context.Background(), Invocation{
		Sources: []string{"assets/svg/**/*.svg"},
		Dest:    "./assets/fonts",
		Files:   files,
		Opts: map[string]string{
			"font_name":     "testtheme-icons",
			"css_dest":      "./assets/css/testtheme-icon.css",
			"css_font_path": "../fonts",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, KindFileSet, res.Kind)
	assert.Equal(t, "assets/css/testtheme-icon.css", res.Files[0])

	css := readFile(t, env.FS, "assets/css/testtheme-icon.css")
	assert.Equal(t, 3, strings.Count(css, ":before {\n\tcontent:"))
	assert.Contains(t, css, ".icon-close:before {\n\tcontent: \"\\f101\";")
	assert.Contains(t, css, ".icon-menu:before {\n\tcontent: \"\\f102\";")
	assert.Contains(t, css, ".icon-search:before {\n\tcontent: \"\\f103\";")
	assert.Contains(t, css, `url("../fonts/testtheme-icons.woff2") format("woff2")`)
	assert.Contains(t, css, `font-family: "testtheme-icons";`)

	exists, err := afero.Exists(env.FS, "assets/fonts/testtheme-icons.json")
	require.NoError(t, err)
	assert.False(t, exists, "the codepoint map is an intermediate")

	entries, err := afero.ReadDir(env.FS, "assets/fonts")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".wpforge-svg-"), "staging directory left behind")
	}

	calls := runner.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--asset-types")
}

func TestIconFontWithoutSVGs(t *testing.T) {
	runner := &fakeRunner{}
	env := newTestEnv(t, runner)

	res, err := NewIconFontGenerator(env, config.ToolConfig{Command: "fantasticon"}, "testtheme").
		Run(context.Background(), Invocation{Sources: []string{"assets/svg/*.svg"}, Dest: "assets/fonts"})
	require.NoError(t, err)
	assert.Equal(t, KindSignal, res.Kind)
	assert.Empty(t, runner.calls())
}

func TestAssignCodepoints(t *testing.T) {
	t.Run("sequential without a map", func(t *testing.T) {
		glyphs := AssignCodepoints([]string{"a", "b"}, nil)
		assert.Equal(t, []Glyph{{"a", 0xF101}, {"b", 0xF102}}, glyphs)
	})

	t.Run("map wins and gaps continue after it", func(t *testing.T) {
		glyphs := AssignCodepoints([]string{"a", "b", "c"}, []byte(`{"a": 61700, "c": 61701}`))
		assert.Equal(t, []Glyph{{"a", 0xF104}, {"b", 0xF106}, {"c", 0xF105}}, glyphs)
	})
}
