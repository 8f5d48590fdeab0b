package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sethstha/wpforge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the wpforge version, the commit it was built from, the build
time, the Go toolchain and the target platform.

Examples:
  wpforge version               # One-line version
  wpforge version --detailed    # Every field on its own line
  wpforge version -f json       # Machine-readable output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeVersion(cmd.OutOrStdout(), version.Get(), versionFlags.Format, versionDetailed)
	},
}

var (
	versionFlags    *OutputFlags
	versionDetailed bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionFlags = AddOutputFlags(versionCmd, "text", "json", "yaml")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func writeVersion(w io.Writer, info version.Info, format string, detailed bool) error {
	if !isText(format) {
		return writeStructured(w, format, info)
	}
	if detailed {
		_, err := fmt.Fprintln(w, info.Detailed())
		return err
	}
	_, err := fmt.Fprintln(w, "wpforge", info.Short())
	return err
}
