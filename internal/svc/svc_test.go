// SPDX-License-Identifier: MPL-2.0

package svc

import (
	"context"
	"io"
	"strings"
	"testing"

	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/step"
	"dockstrap-cli/internal/testutil"

	"github.com/charmbracelet/log"
)

func newActivator(user string) (*Activator, *testutil.FakeRunner) {
	runner := testutil.NewFakeRunner()
	host := hostenv.Host{ID: "ubuntu", Codename: "noble", Arch: "amd64", User: user}
	return NewActivator(runner, log.New(io.Discard), host), runner
}

func TestEnableAndStartIssueSystemctl(t *testing.T) {
	t.Parallel()
	a, runner := newActivator("alice")

	if err := a.Enable(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := runner.Lines()
	if len(lines) != 2 || lines[0] != "systemctl enable docker" || lines[1] != "systemctl start docker" {
		t.Fatalf("unexpected commands: %v", lines)
	}
}

func TestStartFailureIsActionable(t *testing.T) {
	t.Parallel()
	a, runner := newActivator("alice")
	runner.FailContains["systemctl start"] = 1

	err := a.Start(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "start service") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGrantGroupMembershipAddsUser(t *testing.T) {
	t.Parallel()
	a, runner := newActivator("bob")

	if err := a.GrantGroupMembership(context.Background()); err != nil {
		t.Fatal(err)
	}
	if runner.LineContaining("usermod -aG docker bob") == "" {
		t.Fatalf("usermod not issued: %v", runner.Lines())
	}
}

func TestGrantGroupMembershipSkipsWithoutUser(t *testing.T) {
	t.Parallel()
	a, runner := newActivator("")

	if err := a.GrantGroupMembership(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(runner.Commands) != 0 {
		t.Fatalf("no command should run for a pure root session: %v", runner.Lines())
	}
}

func TestStepsPolicies(t *testing.T) {
	t.Parallel()
	a, _ := newActivator("alice")

	steps := a.Steps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[0].Name != "enable service at boot" || steps[0].Policy != step.Fatal {
		t.Fatalf("unexpected first step: %s [%s]", steps[0].Name, steps[0].Policy)
	}
	// A start failure must not abort the run; the verifier reports it.
	if steps[1].Name != "start service" || steps[1].Policy != step.WarnAndContinue {
		t.Fatalf("unexpected second step: %s [%s]", steps[1].Name, steps[1].Policy)
	}
	if steps[2].Policy != step.WarnAndContinue {
		t.Fatalf("group membership failure must not abort the run: %s", steps[2].Policy)
	}
}
