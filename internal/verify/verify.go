// SPDX-License-Identifier: MPL-2.0

// Package verify checks the provisioned engine without mutating the host
// further and produces the end-of-run summary. Every check here is
// independent and advisory; a verification miss never unwinds the install.
package verify

import (
	"context"
	"fmt"
	"strings"

	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/step"

	"github.com/charmbracelet/log"
)

// credentialHelperPackages are tried in order; distributions disagree on the
// package name.
var credentialHelperPackages = []string{
	"docker-credential-helpers",
	"golang-docker-credential-helpers",
}

type (
	// Verifier probes the installed engine.
	Verifier struct {
		runner execx.Runner
		logger *log.Logger
	}

	// Result captures what the probes found.
	Result struct {
		// EngineVersion is the reported engine version line, empty when
		// the probe failed.
		EngineVersion string
		// ComposeVersion is the reported compose plugin version line,
		// empty when the probe failed.
		ComposeVersion string
		// CredentialHelper names the helper package that installed, empty
		// when none did.
		CredentialHelper string
	}
)

// NewVerifier creates a Verifier executing through runner.
func NewVerifier(runner execx.Runner, logger *log.Logger) *Verifier {
	return &Verifier{runner: runner, logger: logger}
}

// EngineOK reports whether the engine responded to the version probe.
func (r *Result) EngineOK() bool { return r.EngineVersion != "" }

// ComposeOK reports whether the compose plugin responded.
func (r *Result) ComposeOK() bool { return r.ComposeVersion != "" }

// Check probes the engine and the compose plugin. The probes are independent:
// a missing compose plugin does not hide the engine version and vice versa.
func (v *Verifier) Check(ctx context.Context) *Result {
	result := &Result{}

	if res, err := v.runner.Run(ctx, execx.Command{
		Name: "docker",
		Args: []string{"--version"},
	}); err != nil {
		v.logger.Warn("engine version probe failed", "err", err)
	} else {
		result.EngineVersion = strings.TrimSpace(res.Stdout)
		v.logger.Info("engine responding", "version", result.EngineVersion)
	}

	if res, err := v.runner.Run(ctx, execx.Command{
		Name: "docker",
		Args: []string{"compose", "version"},
	}); err != nil {
		v.logger.Warn("compose plugin probe failed", "err", err)
	} else {
		result.ComposeVersion = strings.TrimSpace(res.Stdout)
		v.logger.Info("compose plugin responding", "version", result.ComposeVersion)
	}

	return result
}

// InstallCredentialHelper tries the known credential helper package names in
// order and returns the first that installs. Registries work without a
// helper, so every failure here is advisory.
func (v *Verifier) InstallCredentialHelper(ctx context.Context) string {
	for _, pkg := range credentialHelperPackages {
		_, err := v.runner.Run(ctx, execx.Command{
			Name: "apt-get",
			Args: []string{"install", "-y", pkg},
			Env:  map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
		})
		if err == nil {
			v.logger.Info("credential helper installed", "package", pkg)
			return pkg
		}
		v.logger.Debug("credential helper package unavailable", "package", pkg, "err", err)
	}

	v.logger.Warn("no credential helper package available, registry logins will store plaintext credentials")
	return ""
}

// Summary renders the end-of-run report as markdown for glamour.
func Summary(result *Result, report *step.Report, logPath string) string {
	var sb strings.Builder

	sb.WriteString("# Provisioning summary\n\n")

	writeCheck := func(label, version string) {
		if version != "" {
			fmt.Fprintf(&sb, "- ✓ %s: %s\n", label, version)
		} else {
			fmt.Fprintf(&sb, "- ✗ %s: not responding\n", label)
		}
	}
	writeCheck("Engine", result.EngineVersion)
	writeCheck("Compose plugin", result.ComposeVersion)

	if result.CredentialHelper != "" {
		fmt.Fprintf(&sb, "- ✓ Credential helper: %s\n", result.CredentialHelper)
	} else {
		sb.WriteString("- ✗ Credential helper: not installed\n")
	}

	if failed := report.Failed(); len(failed) > 0 {
		sb.WriteString("\n## Non-fatal failures\n\n")
		for _, o := range failed {
			fmt.Fprintf(&sb, "- %s: %v\n", o.Name, o.Err)
		}
	}

	sb.WriteString("\n## Next steps\n\n")
	sb.WriteString("- Log out and back in for docker group membership to take effect\n")
	sb.WriteString("- Verify with: docker run hello-world\n")
	fmt.Fprintf(&sb, "\nFull run log: %s\n", logPath)

	return sb.String()
}
