// SPDX-License-Identifier: MPL-2.0

// Package svc activates the installed engine: the unit is enabled at boot,
// started immediately, and the invoking user joins the docker group.
package svc

import (
	"context"

	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/issue"
	"dockstrap-cli/internal/step"

	"github.com/charmbracelet/log"
)

// ServiceName is the systemd unit dockstrap manages.
const ServiceName = "docker"

// Activator brings the installed service up.
type Activator struct {
	runner execx.Runner
	logger *log.Logger
	host   hostenv.Host
}

// NewActivator creates an Activator for the detected host.
func NewActivator(runner execx.Runner, logger *log.Logger, host hostenv.Host) *Activator {
	return &Activator{runner: runner, logger: logger, host: host}
}

// Enable marks the service to start at boot.
func (a *Activator) Enable(ctx context.Context) error {
	if _, err := a.runner.Run(ctx, execx.Command{
		Name: "systemctl",
		Args: []string{"enable", ServiceName},
	}); err != nil {
		return issue.NewErrorContext().
			WithOperation("enable service at boot").
			WithResource(ServiceName).
			WithSuggestion("Check that systemd is the init system on this host").
			Wrap(err).
			BuildError()
	}
	return nil
}

// Start starts the service now.
func (a *Activator) Start(ctx context.Context) error {
	if _, err := a.runner.Run(ctx, execx.Command{
		Name: "systemctl",
		Args: []string{"start", ServiceName},
	}); err != nil {
		return issue.NewErrorContext().
			WithOperation("start service").
			WithResource(ServiceName).
			WithSuggestion("Inspect the unit with: journalctl -xeu docker.service").
			Wrap(err).
			BuildError()
	}
	return nil
}

// GrantGroupMembership adds the invoking user to the docker group so the
// engine can be used without sudo. A run started directly as root has no
// invoking user to grant, so this is a no-op there.
func (a *Activator) GrantGroupMembership(ctx context.Context) error {
	if a.host.User == "" {
		a.logger.Info("no invoking user detected, skipping group membership")
		return nil
	}

	if _, err := a.runner.Run(ctx, execx.Command{
		Name: "usermod",
		Args: []string{"-aG", ServiceName, a.host.User},
	}); err != nil {
		return issue.NewErrorContext().
			WithOperation("grant docker group membership").
			WithResource(a.host.User).
			WithSuggestion("Add the user manually: usermod -aG docker <user>").
			Wrap(err).
			BuildError()
	}

	// Group membership is evaluated at login.
	a.logger.Info("user added to the docker group, takes effect after re-login", "user", a.host.User)
	return nil
}

// Steps returns the activation sequence. A start failure is reported but the
// run continues: the verifier surfaces the consequence and the operator can
// repair the unit without re-installing. Enablement failing means systemd
// itself is broken, which nothing later can paper over.
func (a *Activator) Steps() []step.Step {
	return []step.Step{
		{Name: "enable service at boot", Policy: step.Fatal, Run: a.Enable},
		{Name: "start service", Policy: step.WarnAndContinue, Run: a.Start},
		{Name: "grant docker group membership", Policy: step.WarnAndContinue, Run: a.GrantGroupMembership},
	}
}
