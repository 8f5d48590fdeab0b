package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

const configFileName = ".wpforge.yml"

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default .wpforge.yml",
	Long: `Write a .wpforge.yml holding every default setting: project info, the
path table, tool commands, lint thresholds and dev server options. Edit the
project block before the first build; everything else matches a conventional
theme layout.

Examples:
  wpforge init              # Write ./.wpforge.yml
  wpforge init my-theme     # Write my-theme/.wpforge.yml
  wpforge init --force      # Overwrite an existing file`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := writeDefaultConfig(dir, initForce)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
		return nil
	},
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

func writeDefaultConfig(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, dir)
	}
	path := filepath.Join(dir, configFileName)

	if _, err := os.Stat(path); err == nil && !force {
		return "", forgeerrors.NewConfigError(forgeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("%s already exists, use --force to overwrite it", path))
	}

	var buf bytes.Buffer
	if err := encodeConfig(&buf, config.Default()); err != nil {
		return "", forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError, "failed to encode configuration", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, path)
	}
	return path, nil
}

func encodeConfig(w io.Writer, cfg *config.Config) error {
	fmt.Fprintln(w, "# wpforge configuration. Values here override the built-in defaults;")
	fmt.Fprintln(w, "# WPFORGE_* environment variables override values here.")
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
