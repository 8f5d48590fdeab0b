package config

import "time"

// Asset categories of the path table.
const (
	CategorySCSS       = "scss"
	CategoryCSS        = "css"
	CategoryRTL        = "rtlcss"
	CategoryPrefix     = "prefix"
	CategoryJS         = "js"
	CategoryImages     = "img"
	CategoryPHP        = "php"
	CategoryLintPHP    = "lint_php"
	CategoryLintStyles = "lint_styles"
	CategoryLintJS     = "lint_js"
	CategoryIconFont   = "iconfont"
	CategoryZip        = "zip"
	CategoryPot        = "pot"
	CategoryReadme     = "readme"
)

// Categories lists every category in display order.
var Categories = []string{
	CategorySCSS,
	CategoryCSS,
	CategoryRTL,
	CategoryPrefix,
	CategoryJS,
	CategoryImages,
	CategoryPHP,
	CategoryLintPHP,
	CategoryLintStyles,
	CategoryLintJS,
	CategoryIconFont,
	CategoryZip,
	CategoryPot,
	CategoryReadme,
}

// Tool names used as keys of Config.Tools.
const (
	ToolSass      = "sass"
	ToolPostCSS   = "postcss"
	ToolRTLCSS    = "rtlcss"
	ToolPHPCS     = "phpcs"
	ToolStylelint = "stylelint"
	ToolESLint    = "eslint"
	ToolImagemin  = "imagemin"
	ToolWebfont   = "webfont"
)

// Default returns the built-in configuration. "{slug}" in a destination or
// option is replaced with the project slug when the path spec is read. The
// local URL is left empty so loading derives it from the final slug.
func Default() *Config {
	return &Config{
		Root: ".",
		Project: ProjectInfo{
			Name:        "WordPressTheme",
			Slug:        "wordpresstheme",
			URL:         "",
			Author:      "",
			AuthorURL:   "",
			AuthorEmail: "",
			TeamEmail:   "",
			LocalURL:    "",
			Version:     "1.0.0",
		},
		Paths: map[string]PathConfig{
			CategorySCSS: {
				Src:  []string{"./assets/sass/**/*.scss"},
				Dest: "./",
			},
			CategoryIconFont: {
				Src:  []string{"assets/svg/*.svg"},
				Dest: "./assets/fonts",
				Opts: map[string]string{
					"font_name":     "{slug}-icons",
					"css_dest":      "./assets/css/{slug}-icon.css",
					"css_font_path": "../fonts",
				},
			},
			CategoryCSS: {
				Src:  []string{"./assets/css/*.css", "!./assets/css/*.min.css"},
				Dest: "./assets/css",
			},
			CategoryRTL: {
				Src:  []string{"./style.css"},
				Dest: "./",
			},
			CategoryPrefix: {
				Src:  []string{"./*.css"},
				Dest: "./",
			},
			CategoryLintPHP: {
				Src: []string{
					"./*.php",
					"./inc/**/*.php",
					"!./inc/kirki/**",
					"!./inc/tgm-plugin-activation/**",
					"./inc/widgets/*.php",
					"./template-parts/**/*.php",
				},
				Dest: "./",
			},
			CategoryLintStyles: {
				Src:  []string{"./assets/sass/**/*.scss"},
				Dest: "./",
			},
			CategoryLintJS: {
				Src:  []string{"./assets/js/*-custom.js", "!./assets/js/*.min.js"},
				Dest: "./",
			},
			CategoryJS: {
				Src:  []string{"./assets/js/*.js", "!./assets/js/*.min.js"},
				Dest: "./assets/js/",
			},
			CategoryPHP: {
				Src: []string{
					"./*.php",
					"./inc/*.php",
					"./inc/customizer/**/*.php",
					"./template-parts/**/*.php",
				},
				Dest: "./",
			},
			CategoryImages: {
				Src:  []string{"./assets/img/**"},
				Dest: "./assets/img",
			},
			CategoryZip: {
				Src: []string{
					"**",
					"!vendor",
					"!vendor/**",
					"!node_modules",
					"!node_modules/**",
					"!assets/sass",
					"!assets/sass/**",
					"!dest.xml",
					"!dist",
					"!dist/**",
					"!*.json",
					"!*.md",
					"!.wpforge.yml",
					"!composer.lock",
					"!phpcs.xml",
				},
				Dest: "./dist",
				Opts: map[string]string{"file": "{slug}.zip"},
			},
			CategoryPot: {
				Src: []string{
					"./*.php",
					"./inc/*.php",
					"./inc/customizer/**/*.php",
					"./template-parts/**/*.php",
				},
				Dest: "./languages",
				Opts: map[string]string{"file": "{slug}.pot"},
			},
			CategoryReadme: {
				Src:  []string{"./readme.txt"},
				Dest: "./",
				Opts: map[string]string{"file": "README.md"},
			},
		},
		Styles: StylesConfig{
			IndentType:  "tab",
			IndentWidth: 1,
			OutputStyle: "expanded",
			Browsers:    []string{"last 2 versions"},
		},
		Lint: LintConfig{
			PHPStandard:        "phpcs.xml",
			PHPWarningSeverity: 0,
		},
		Tools: map[string]ToolConfig{
			ToolSass:      {Command: "sass"},
			ToolPostCSS:   {Command: "npx", Args: []string{"postcss"}},
			ToolRTLCSS:    {Command: "npx", Args: []string{"rtlcss"}},
			ToolPHPCS:     {Command: "vendor/bin/phpcs"},
			ToolStylelint: {Command: "npx", Args: []string{"stylelint"}},
			ToolESLint:    {Command: "npx", Args: []string{"eslint"}},
			ToolImagemin:  {Command: "npx", Args: []string{"imagemin"}},
			ToolWebfont:   {Command: "npx", Args: []string{"fantasticon"}},
		},
		Server: ServerConfig{
			Port: 3000,
			Host: "localhost",
			Open: false,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}
