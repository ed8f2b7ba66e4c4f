// SPDX-License-Identifier: MPL-2.0

// Package aptrepo drives the package half of a provisioning run: apt
// invocations, vendor keyring and repository registration, and the ordered
// step table the sequencer executes.
package aptrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dockstrap-cli/internal/config"
	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/issue"
	"dockstrap-cli/internal/step"
)

const (
	// DefaultBaseURL is the vendor download endpoint; the distribution ID
	// is appended to form the repository root.
	DefaultBaseURL = "https://download.docker.com/linux/"

	keyringDir  = "etc/apt/keyrings"
	keyringFile = "docker.gpg"
	sourcesFile = "etc/apt/sources.list.d/docker.list"
)

var (
	// LegacyPackages conflict with the vendor engine and are removed first.
	LegacyPackages = []string{"docker", "docker-engine", "docker.io", "containerd", "runc"}

	// PrereqPackages are required before the vendor repository can be
	// registered over HTTPS.
	PrereqPackages = []string{"ca-certificates", "curl", "gnupg", "lsb-release"}

	// EnginePackages are the provisioning target.
	EnginePackages = []string{"docker-ce", "docker-ce-cli", "containerd.io", "docker-buildx-plugin", "docker-compose-plugin"}
)

// Provisioner owns the apt interactions of a run. All command execution goes
// through the injected runner; file writes are rooted at rootDir so tests can
// redirect them.
type Provisioner struct {
	runner  execx.Runner
	host    hostenv.Host
	cfg     *config.Config
	rootDir string
}

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithRootDir redirects filesystem writes under dir.
func WithRootDir(dir string) Option {
	return func(p *Provisioner) { p.rootDir = dir }
}

// NewProvisioner wires a Provisioner for the given host and configuration.
func NewProvisioner(runner execx.Runner, host hostenv.Host, cfg *config.Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		runner:  runner,
		host:    host,
		cfg:     cfg,
		rootDir: "/",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// aptGet runs apt-get with the given arguments. Every invocation is
// non-interactive so a hung debconf prompt can never stall the run.
func (p *Provisioner) aptGet(ctx context.Context, args ...string) error {
	_, err := p.runner.Run(ctx, execx.Command{
		Name: "apt-get",
		Args: args,
		Env:  map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
	})
	return err
}

// Update refreshes the package index.
func (p *Provisioner) Update(ctx context.Context) error {
	return p.aptGet(ctx, "update")
}

// Upgrade applies pending upgrades to the whole system.
func (p *Provisioner) Upgrade(ctx context.Context) error {
	return p.aptGet(ctx, "upgrade", "-y")
}

// RemoveLegacy uninstalls distribution-shipped engine packages that conflict
// with the vendor build. Absence of any of them is expected.
func (p *Provisioner) RemoveLegacy(ctx context.Context) error {
	return p.aptGet(ctx, append([]string{"remove", "-y"}, LegacyPackages...)...)
}

// InstallPrereqs installs the tooling needed for repository registration.
func (p *Provisioner) InstallPrereqs(ctx context.Context) error {
	return p.aptGet(ctx, append([]string{"install", "-y"}, PrereqPackages...)...)
}

// InstallEngine installs the target packages plus any configured extras.
func (p *Provisioner) InstallEngine(ctx context.Context) error {
	pkgs := append([]string{}, EnginePackages...)
	pkgs = append(pkgs, p.cfg.ExtraPackages...)
	return p.aptGet(ctx, append([]string{"install", "-y"}, pkgs...)...)
}

// FixBroken asks apt to repair a broken dependency state.
func (p *Provisioner) FixBroken(ctx context.Context) error {
	return p.aptGet(ctx, "install", "-f", "-y")
}

// BaseURL returns the repository root: the configured mirror when set,
// otherwise the vendor endpoint for the detected distribution.
func (p *Provisioner) BaseURL() string {
	if p.cfg.Mirror != "" {
		return strings.TrimSuffix(p.cfg.Mirror, "/") + "/" + p.host.ID
	}
	return DefaultBaseURL + p.host.ID
}

// KeyringPath returns the destination of the dearmored vendor key.
func (p *Provisioner) KeyringPath() string {
	return filepath.Join(p.rootDir, keyringDir, keyringFile)
}

// RepoLine returns the apt source entry for the detected host.
func (p *Provisioner) RepoLine() string {
	return fmt.Sprintf("deb [arch=%s signed-by=%s] %s %s %s",
		p.host.Arch, p.KeyringPath(), p.BaseURL(), p.host.Codename, p.cfg.Channel)
}

// RegisterRepo fetches the vendor signing key, dearmores it into the apt
// keyring directory, and writes the source list entry. Both artifacts are
// overwritten on every run so a stale key or suite never survives a re-run.
func (p *Provisioner) RegisterRepo(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(p.rootDir, keyringDir), 0o755); err != nil {
		return issue.WrapWithOperation(err, "create keyring directory")
	}

	keyURL := p.BaseURL() + "/gpg"
	res, err := p.runner.Run(ctx, execx.Command{
		Name: "curl",
		Args: []string{"-fsSL", keyURL},
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("download vendor signing key").
			WithResource(keyURL).
			WithSuggestion("Check network access to the repository host").
			Wrap(err).
			BuildError()
	}

	if _, err := p.runner.Run(ctx, execx.Command{
		Name:  "gpg",
		Args:  []string{"--dearmor", "--yes", "-o", p.KeyringPath()},
		Stdin: strings.NewReader(res.Stdout),
	}); err != nil {
		return issue.NewErrorContext().
			WithOperation("install vendor signing key").
			WithResource(p.KeyringPath()).
			Wrap(err).
			BuildError()
	}

	// apt runs unprivileged helpers that must be able to read the key.
	if _, err := p.runner.Run(ctx, execx.Command{
		Name: "chmod",
		Args: []string{"a+r", p.KeyringPath()},
	}); err != nil {
		return issue.WrapWithOperation(err, "set keyring permissions")
	}

	listPath := filepath.Join(p.rootDir, sourcesFile)
	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return issue.WrapWithOperation(err, "create sources directory")
	}
	if err := os.WriteFile(listPath, []byte(p.RepoLine()+"\n"), 0o644); err != nil {
		return issue.NewErrorContext().
			WithOperation("register vendor repository").
			WithResource(listPath).
			Wrap(err).
			BuildError()
	}

	return nil
}

// Steps returns the ordered package sequence. Policies encode how much each
// step matters: a missing legacy package is noise, a failed engine install
// ends the run.
func (p *Provisioner) Steps() []step.Step {
	steps := []step.Step{
		{Name: "refresh package index", Policy: step.WarnAndContinue, Run: p.Update},
	}

	if !p.cfg.SkipUpgrade {
		steps = append(steps, step.Step{
			Name: "upgrade installed packages", Policy: step.WarnAndContinue, Run: p.Upgrade,
		})
	}

	steps = append(steps,
		step.Step{Name: "remove conflicting legacy packages", Policy: step.Ignore, Run: p.RemoveLegacy},
		step.Step{Name: "install prerequisites", Policy: step.Fatal, Run: p.InstallPrereqs},
		step.Step{Name: "register vendor repository", Policy: step.Fatal, Run: p.RegisterRepo},
		step.Step{Name: "refresh package index (vendor repository)", Policy: step.WarnAndContinue, Run: p.Update},
		step.Step{Name: "install engine packages", Policy: step.Fatal, Run: p.InstallEngine},
		step.Step{Name: "repair dependency state", Policy: step.WarnAndContinue, Run: p.FixBroken},
	)

	return steps
}
