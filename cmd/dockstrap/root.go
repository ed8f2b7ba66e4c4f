// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for dockstrap.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dockstrap-cli/internal/config"
	"dockstrap-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// Flag overrides for the most common config knobs.
	flagChannel     string
	flagMirror      string
	flagUser        string
	flagSkipUpgrade bool

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "dockstrap",
		Short: "Provision the Docker engine on Debian-family hosts",
		Long: TitleStyle.Render("dockstrap") + SubtitleStyle.Render(" - Docker engine provisioning for Debian-family hosts") + `

dockstrap turns a stock Ubuntu, Debian, or Raspbian host into a working
Docker installation: it registers the vendor repository, installs the
engine and its plugins, writes daemon and kernel configuration, and
activates the service.

Every run is idempotent: re-running converges the host without
clobbering operator-owned configuration.

` + SubtitleStyle.Render("Examples:") + `
  sudo dockstrap install          Provision the host
  dockstrap plan                  Show what install would do
  sudo dockstrap doctor           Check an existing installation`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/dockstrap/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flagChannel, "channel", "", `release channel: "stable" or "test"`)
	rootCmd.PersistentFlags().StringVar(&flagMirror, "mirror", "", "alternative package mirror base URL")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "user granted docker group membership")
	rootCmd.PersistentFlags().BoolVar(&flagSkipUpgrade, "skip-upgrade", false, "skip the full system upgrade")

	// Add subcommands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(doctorCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadRunConfig loads the configuration file and layers the command-line
// overrides on top.
func loadRunConfig() (*config.Config, error) {
	path := config.DefaultPath
	explicit := false
	if cfgFile != "" {
		path = cfgFile
		explicit = true
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	applyFlagOverrides(cfg)
	return cfg, nil
}

// applyFlagOverrides layers set flags over cfg. Flags win over the file.
func applyFlagOverrides(cfg *config.Config) {
	if flagChannel != "" {
		cfg.Channel = flagChannel
	}
	if flagMirror != "" {
		cfg.Mirror = flagMirror
	}
	if flagUser != "" {
		cfg.User = flagUser
	}
	if flagSkipUpgrade {
		cfg.SkipUpgrade = true
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// printIssue renders the guidance for a known failure mode. Rendering
// problems fall back to the raw markdown.
func printIssue(id issue.Id) {
	is := issue.Get(id)
	if is == nil {
		return
	}
	out, err := is.Render("auto")
	if err != nil {
		out = string(is.MarkdownMsg())
	}
	fmt.Fprintln(os.Stderr, out)
}
