// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"dockstrap-cli/internal/config"
	"dockstrap-cli/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = origVersion, origCommit, origDate }()

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("unexpected dev version string: %q", got)
	}

	Version, Commit, BuildDate = "1.2.3", "abc123", "2026-08-23"
	got := getVersionString()
	for _, want := range []string{"1.2.3", "abc123", "2026-08-23"} {
		if !strings.Contains(got, want) {
			t.Errorf("version string %q missing %q", got, want)
		}
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	origChannel, origMirror, origUser, origSkip := flagChannel, flagMirror, flagUser, flagSkipUpgrade
	defer func() {
		flagChannel, flagMirror, flagUser, flagSkipUpgrade = origChannel, origMirror, origUser, origSkip
	}()

	flagChannel = "test"
	flagMirror = "https://mirror.example.com/docker"
	flagUser = "alice"
	flagSkipUpgrade = true

	cfg := config.Default()
	applyFlagOverrides(cfg)

	if cfg.Channel != "test" || cfg.Mirror != "https://mirror.example.com/docker" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.User != "alice" || !cfg.SkipUpgrade {
		t.Errorf("flags not applied: %+v", cfg)
	}

	// Unset flags leave the config alone.
	flagChannel, flagMirror, flagUser, flagSkipUpgrade = "", "", "", false
	cfg = config.Default()
	cfg.User = "bob"
	applyFlagOverrides(cfg)
	if cfg.User != "bob" || cfg.Channel != config.ChannelStable {
		t.Errorf("unset flags must not override config: %+v", cfg)
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("unexpected plain format: %q", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("start service").
		WithSuggestion("Inspect the unit with journalctl").
		Wrap(errors.New("unit not found")).
		BuildError()

	got := formatErrorForDisplay(ae, false)
	if !strings.Contains(got, "Inspect the unit") {
		t.Errorf("actionable format missing suggestion: %q", got)
	}

	if got := formatErrorForDisplay(ae, true); !strings.Contains(got, "Error chain") {
		t.Errorf("verbose format missing error chain: %q", got)
	}
}

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"install", "plan", "doctor"} {
		if !names[want] {
			t.Errorf("subcommand %q not registered", want)
		}
	}
}
