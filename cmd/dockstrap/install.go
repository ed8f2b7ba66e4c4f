// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dockstrap-cli/internal/aptrepo"
	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/issue"
	"dockstrap-cli/internal/runlog"
	"dockstrap-cli/internal/step"
	"dockstrap-cli/internal/svc"
	"dockstrap-cli/internal/sysconf"
	"dockstrap-cli/internal/verify"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision the Docker engine on this host",
	Long: `Provision the Docker engine: register the vendor repository, install
the engine packages and plugins, write daemon and kernel configuration,
activate the service, and verify the result.

The run is idempotent. Re-running converges the host and never
overwrites an existing daemon configuration.`,
	RunE: runInstall,
}

func runInstall(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()

	run, err := runlog.Open(verbose)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	defer run.Close()

	cfg, err := loadRunConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	runner := execx.NewExecRunner(execx.WithLogger(run.Logger))

	run.Section("preflight")
	host, err := hostenv.Detect(ctx, runner)
	if err != nil {
		switch {
		case errors.Is(err, hostenv.ErrNotRoot):
			printIssue(issue.PermissionDeniedId)
		case errors.Is(err, hostenv.ErrOSReleaseMissing):
			printIssue(issue.OSReleaseMissingId)
		}
		return &ExitError{Code: 1, Err: err}
	}
	if cfg.User != "" {
		host.User = cfg.User
	}
	run.Logger.Info("host detected",
		"distro", host.PrettyName, "codename", host.Codename, "arch", host.Arch, "user", host.User)
	if !host.Supported() {
		printIssue(issue.UnsupportedDistroId)
		run.Logger.Warn("unsupported distribution, attempting anyway", "id", host.ID)
	}

	seq := step.NewSequencer(run.Logger)
	report := &step.Report{}

	runPhase := func(title string, steps []step.Step, guidance func(error) issue.Id) error {
		run.Section(title)
		phaseReport, err := seq.Run(ctx, steps)
		report.Outcomes = append(report.Outcomes, phaseReport.Outcomes...)
		if err == nil {
			return nil
		}
		if guidance != nil {
			printIssue(guidance(err))
		}
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		code := 1
		if c, ok := execx.ExitCode(err); ok && c != 0 {
			code = c
		}
		return &ExitError{Code: code, Err: err}
	}

	prov := aptrepo.NewProvisioner(runner, host, cfg)
	if err := runPhase("package sequencer", prov.Steps(), packageIssueFor); err != nil {
		return err
	}

	writer := sysconf.NewWriter(runner, run.Logger)
	if err := runPhase("configuration writer", writer.Steps(), nil); err != nil {
		return err
	}

	activator := svc.NewActivator(runner, run.Logger, host)
	if err := runPhase("service activator", activator.Steps(), nil); err != nil {
		return err
	}
	for _, o := range report.Failed() {
		if o.Name == "start service" {
			printIssue(issue.ServiceStartFailedId)
		}
	}

	run.Section("verifier")
	verifier := verify.NewVerifier(runner, run.Logger)
	result := verifier.Check(ctx)
	result.CredentialHelper = verifier.InstallCredentialHelper(ctx)

	md := verify.Summary(result, report, run.Path)
	out, rerr := glamour.Render(md, "auto")
	if rerr != nil {
		out = md
	}
	fmt.Println(out)
	fmt.Println(SuccessStyle.Render("✓ Provisioning complete"))

	return nil
}

// packageIssueFor picks the guidance for a fatal package phase failure.
func packageIssueFor(err error) issue.Id {
	if strings.Contains(err.Error(), "register vendor repository") {
		return issue.RepoRegistrationFailedId
	}
	return issue.PackageInstallFailedId
}
