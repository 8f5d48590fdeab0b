//go:build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"
)

func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("any lowercase slug is accepted and substituted", prop.ForAll(
		func(slug string) bool {
			if slug == "" {
				return true
			}
			cfg := Default()
			cfg.Project.Slug = slug
			if err := validateConfig(cfg); err != nil {
				return false
			}
			spec, err := NewStore(cfg, afero.NewMemMapFs()).PathSpec(CategoryZip)
			return err == nil && spec.DestFile("") == "dist/"+slug+".zip"
		},
		gen.RegexMatch(`^[a-z0-9][a-z0-9_-]{0,20}$`),
	))

	properties.Property("destinations escaping the root are rejected", prop.ForAll(
		func(depth int, name string) bool {
			dest := strings.Repeat("../", depth) + name
			return validatePath(dest) != nil
		},
		gen.IntRange(1, 5),
		gen.AlphaString(),
	))

	properties.Property("ports outside the TCP range are rejected", prop.ForAll(
		func(port int) bool {
			err := validateServerConfig(&ServerConfig{Port: port, Host: "localhost"})
			return (err == nil) == (port >= 0 && port <= 65535)
		},
		gen.IntRange(-100000, 100000),
	))

	properties.Property("path specs are copies", prop.ForAll(
		func(pattern string) bool {
			store := NewStore(Default(), afero.NewMemMapFs())
			spec, err := store.PathSpec(CategoryCSS)
			if err != nil {
				return false
			}
			spec.Sources[0] = pattern
			again, err := store.PathSpec(CategoryCSS)
			return err == nil && again.Sources[0] == "./assets/css/*.css"
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
