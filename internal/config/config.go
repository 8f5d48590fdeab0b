// Package config provides configuration management for wpforge using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration has three parts: a static project-info block (theme
// name, slug, author, version, local development URL), a path table mapping
// asset categories to ordered source globs and a destination, and tool
// settings for the external programs the adapters invoke. Every value has a
// default matching a conventional WordPress theme layout, so an empty
// .wpforge.yml is a working configuration. Environment variables with the
// WPFORGE_ prefix override file values.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full wpforge configuration.
type Config struct {
	Root    string                `mapstructure:"root" yaml:"root"`
	Project ProjectInfo           `mapstructure:"project" yaml:"project"`
	Paths   map[string]PathConfig `mapstructure:"paths" yaml:"paths"`
	Styles  StylesConfig          `mapstructure:"styles" yaml:"styles"`
	Lint    LintConfig            `mapstructure:"lint" yaml:"lint"`
	Tools   map[string]ToolConfig `mapstructure:"tools" yaml:"tools"`
	Server  ServerConfig          `mapstructure:"server" yaml:"server"`
	Watch   WatchConfig           `mapstructure:"watch" yaml:"watch"`
}

// ProjectInfo is the immutable project metadata block.
type ProjectInfo struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Slug        string `mapstructure:"slug" yaml:"slug"`
	URL         string `mapstructure:"url" yaml:"url"`
	Author      string `mapstructure:"author" yaml:"author"`
	AuthorURL   string `mapstructure:"author_url" yaml:"author_url"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email"`
	TeamEmail   string `mapstructure:"team_email" yaml:"team_email"`
	LocalURL    string `mapstructure:"local_url" yaml:"local_url"`
	Version     string `mapstructure:"version" yaml:"version"`
}

// PathConfig is one row of the path table as written in the config file.
type PathConfig struct {
	Src  []string          `mapstructure:"src" yaml:"src"`
	Dest string            `mapstructure:"dest" yaml:"dest"`
	Opts map[string]string `mapstructure:"opts" yaml:"opts,omitempty"`
}

// StylesConfig holds style compiler and prefixer options.
type StylesConfig struct {
	IndentType  string   `mapstructure:"indent_type" yaml:"indent_type"`
	IndentWidth int      `mapstructure:"indent_width" yaml:"indent_width"`
	OutputStyle string   `mapstructure:"output_style" yaml:"output_style"`
	Browsers    []string `mapstructure:"browsers" yaml:"browsers"`
}

// LintConfig holds linter rulesets and thresholds.
type LintConfig struct {
	PHPStandard        string `mapstructure:"php_standard" yaml:"php_standard"`
	PHPWarningSeverity int    `mapstructure:"php_warning_severity" yaml:"php_warning_severity"`
	StylesConfig       string `mapstructure:"styles_config" yaml:"styles_config,omitempty"`
	JSConfig           string `mapstructure:"js_config" yaml:"js_config,omitempty"`
}

// ToolConfig names the executable behind an external adapter.
type ToolConfig struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args,omitempty"`
}

// ServerConfig configures the live-reload dev server.
type ServerConfig struct {
	Port int    `mapstructure:"port" yaml:"port"`
	Host string `mapstructure:"host" yaml:"host"`
	Open bool   `mapstructure:"open" yaml:"open"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Load reads the configuration from viper on top of the defaults and
// validates it.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills values that a partial config file left empty. A path
// row given without dest keeps the default destination for its category.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Root == "" {
		cfg.Root = "."
	}

	// Project fields default individually.
	if cfg.Project.Name == "" {
		cfg.Project.Name = def.Project.Name
	}
	if cfg.Project.Slug == "" {
		cfg.Project.Slug = def.Project.Slug
	}
	if cfg.Project.Version == "" {
		cfg.Project.Version = def.Project.Version
	}
	if cfg.Project.LocalURL == "" {
		cfg.Project.LocalURL = "localhost/" + cfg.Project.Slug
	}

	if cfg.Paths == nil {
		cfg.Paths = def.Paths
	}
	for category, d := range def.Paths {
		p, ok := cfg.Paths[category]
		if !ok {
			cfg.Paths[category] = d
			continue
		}
		if len(p.Src) == 0 {
			p.Src = d.Src
		}
		if p.Dest == "" {
			p.Dest = d.Dest
		}
		if p.Opts == nil {
			p.Opts = d.Opts
		}
		cfg.Paths[category] = p
	}

	if cfg.Tools == nil {
		cfg.Tools = def.Tools
	}
	for name, d := range def.Tools {
		if t, ok := cfg.Tools[name]; !ok || t.Command == "" {
			cfg.Tools[name] = d
		}
	}

	if cfg.Styles.IndentType == "" {
		cfg.Styles.IndentType = def.Styles.IndentType
	}
	if cfg.Styles.IndentWidth <= 0 {
		cfg.Styles.IndentWidth = def.Styles.IndentWidth
	}
	if cfg.Styles.OutputStyle == "" {
		cfg.Styles.OutputStyle = def.Styles.OutputStyle
	}
	if len(cfg.Styles.Browsers) == 0 {
		cfg.Styles.Browsers = def.Styles.Browsers
	}

	if cfg.Lint.PHPStandard == "" {
		cfg.Lint.PHPStandard = def.Lint.PHPStandard
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
}
