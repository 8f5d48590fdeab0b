// Package cmd provides the wpforge command-line interface.
//
// Configuration is read from several sources, highest precedence first:
//
//  1. Command-line flags (--config, --log-level, ...)
//  2. WPFORGE_CONFIG_FILE: path to a configuration file
//  3. Individual environment variables (WPFORGE_SERVER_PORT, WPFORGE_PROJECT_SLUG, ...)
//  4. .wpforge.yml in the current directory
//
// Every named task is its own subcommand, so "wpforge build" runs the
// build pipeline and "wpforge compile-styles" a single stage.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wpforge",
	Short: "Build, check and package a WordPress theme",
	Long: `wpforge compiles, lints, minifies, localizes and packages a WordPress
theme, and runs a live-reload proxy in front of the local site while you work.

Quick Start:
  wpforge init          Write a default .wpforge.yml
  wpforge dev-server    Proxy the local site and rebuild on change
  wpforge build         Lint, minify, localize and package the theme
  wpforge tasks         List every task and pipeline`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// reportedError marks an error the error handler has already shown.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Execute runs the CLI.
func Execute() error {
	return execute(rootCmd, os.Stderr)
}

func execute(c *cobra.Command, stderr io.Writer) error {
	err := c.Execute()
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .wpforge.yml, can also use WPFORGE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	AddFlagValidation(rootCmd.PersistentFlags(), "log-level", oneOf("debug", "info", "warn", "error"))
	AddFlagValidation(rootCmd.PersistentFlags(), "log-format", oneOf("text", "json"))
}

// initConfig selects the config file and enables WPFORGE_ environment
// overrides. A missing file is not an error: the defaults describe a
// conventional theme layout.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("WPFORGE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wpforge")
	}

	viper.SetEnvPrefix("WPFORGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
