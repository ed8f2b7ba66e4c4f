// SPDX-License-Identifier: MPL-2.0

package runlog

import (
	"os"
	"strings"
	"testing"
)

func TestOpenCreatesTimestampedFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	run, err := Open(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer run.Close()

	if !strings.Contains(run.Path, "dockstrap-") || !strings.HasSuffix(run.Path, ".log") {
		t.Fatalf("unexpected log path: %s", run.Path)
	}
	if _, err := os.Stat(run.Path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestLoggerDuplicatesToFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	run, err := Open(false)
	if err != nil {
		t.Fatal(err)
	}
	run.Logger.Warn("index refresh failed")
	run.Section("package sequencer")
	if err := run.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(run.Path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "index refresh failed") {
		t.Fatalf("warning not duplicated to file:\n%s", content)
	}
	if !strings.Contains(content, "PACKAGE SEQUENCER") {
		t.Fatalf("section banner missing:\n%s", content)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	run, err := Open(true)
	if err != nil {
		t.Fatal(err)
	}
	if err := run.Close(); err != nil {
		t.Fatal(err)
	}
	if err := run.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}
