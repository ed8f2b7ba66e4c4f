// SPDX-License-Identifier: MPL-2.0

package execx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// helperCommand builds an exec.Cmd that reruns the test binary as a helper
// process, replaying the configured exit code and output.
func helperCommand(exitCode int, stdout string) ExecCommandFunc {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", exitCode),
			"GO_HELPER_STDOUT=" + stdout,
		}
		return cmd
	}
}

// TestHelperProcess is not a real test; it is the child side of the mock
// exec pattern.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if out := os.Getenv("GO_HELPER_STDOUT"); out != "" {
		fmt.Fprint(os.Stdout, out)
	}
	code := 0
	fmt.Sscanf(os.Getenv("GO_HELPER_EXIT_CODE"), "%d", &code)
	os.Exit(code)
}

func TestRunCapturesStdout(t *testing.T) {
	t.Parallel()
	r := NewExecRunner(WithExecCommand(helperCommand(0, "Docker version 27.0.1")))
	res, err := r.Run(context.Background(), Command{Name: "docker", Args: []string{"--version"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "Docker version") {
		t.Fatalf("stdout not captured: %q", res.Stdout)
	}
}

func TestRunNonZeroExitReturnsExitStatusError(t *testing.T) {
	t.Parallel()
	r := NewExecRunner(WithExecCommand(helperCommand(100, "")))
	res, err := r.Run(context.Background(), Command{Name: "apt-get", Args: []string{"install", "-y", "docker-ce"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.ExitCode != 100 {
		t.Fatalf("expected exit 100, got %d", res.ExitCode)
	}
	code, ok := ExitCode(err)
	if !ok || code != 100 {
		t.Fatalf("ExitCode(err) = (%d, %v), want (100, true)", code, ok)
	}
}

func TestExitCodeOnUnrelatedError(t *testing.T) {
	t.Parallel()
	if code, ok := ExitCode(errors.New("boom")); ok || code != 0 {
		t.Fatalf("ExitCode = (%d, %v), want (0, false)", code, ok)
	}
}

func TestQuoteLine(t *testing.T) {
	t.Parallel()
	got := QuoteLine("sh", "-c", "echo hi there")
	want := "sh -c 'echo hi there'"
	if got != want {
		t.Fatalf("QuoteLine = %q, want %q", got, want)
	}
}

func TestDryRunnerRecordsWithoutExecuting(t *testing.T) {
	t.Parallel()
	d := NewDryRunner()
	if _, err := d.Run(context.Background(), Command{Name: "apt-get", Args: []string{"update"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Run(context.Background(), Command{Name: "systemctl", Args: []string{"enable", "docker"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := d.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 recorded lines, got %d", len(lines))
	}
	if lines[0] != "apt-get update" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
}
