package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// validateConfig validates configuration values for security and correctness.
// Every failure is returned as a ConfigurationError.
func validateConfig(cfg *Config) error {
	if err := validateProject(&cfg.Project); err != nil {
		return invalid("project", err)
	}

	for _, category := range Categories {
		p, ok := cfg.Paths[category]
		if !ok {
			return invalid("paths", fmt.Errorf("missing category %q", category))
		}
		if err := validatePathConfig(p); err != nil {
			return invalid("paths."+category, err)
		}
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return invalid("server", err)
	}

	for name, tool := range cfg.Tools {
		if err := validateCommand(tool.Command); err != nil {
			return invalid("tools."+name, err)
		}
	}

	return nil
}

func invalid(section string, err error) error {
	return forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("invalid configuration in %s: %v", section, err))
}

func validateProject(p *ProjectInfo) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("slug %q must be lowercase letters, digits, '-' or '_'", p.Slug)
	}
	return nil
}

func validatePathConfig(p PathConfig) error {
	if len(p.Src) == 0 {
		return fmt.Errorf("at least one source pattern is required")
	}
	if _, err := glob.Parse(p.Src); err != nil {
		return err
	}
	if strings.TrimSpace(p.Dest) == "" {
		return fmt.Errorf("destination is required")
	}
	return validatePath(p.Dest)
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a destination path: relative and inside the project.
func validatePath(path string) error {
	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative to the project root: %s", path)
	}

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

func validateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command is required")
	}
	if strings.ContainsAny(command, ";&|$`<>") {
		return fmt.Errorf("command %q contains shell metacharacters", command)
	}
	return nil
}
