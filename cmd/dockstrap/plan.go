// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"dockstrap-cli/internal/aptrepo"
	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/step"
	"dockstrap-cli/internal/svc"
	"dockstrap-cli/internal/sysconf"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what install would do without touching the host",
	Long: `Detect the host, then print the full step table and every command an
install run would issue. Nothing on the host is modified, so plan does
not require root.`,
	RunE: runPlan,
}

func runPlan(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()

	cfg, err := loadRunConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	// Detection only reads, so the privilege gate does not apply here.
	host, err := hostenv.Detect(ctx, execx.NewExecRunner(),
		hostenv.WithGeteuid(func() int { return 0 }))
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}
	if cfg.User != "" {
		host.User = cfg.User
	}

	fmt.Println(TitleStyle.Render("Host"))
	fmt.Printf("  %s (%s, %s)\n\n", host.PrettyName, host.Codename, host.Arch)

	// File-writing steps are pointed at a scratch root so walking the plan
	// leaves the host untouched; the scratch prefix is stripped from output.
	scratch, err := os.MkdirTemp("", "dockstrap-plan-")
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	defer os.RemoveAll(scratch)

	dry := execx.NewDryRunner()
	quiet := log.New(io.Discard)

	steps := aptrepo.NewProvisioner(dry, host, cfg, aptrepo.WithRootDir(scratch)).Steps()
	steps = append(steps, sysconf.NewWriter(dry, quiet, sysconf.WithRootDir(scratch)).Steps()...)
	steps = append(steps, svc.NewActivator(dry, quiet, host).Steps()...)

	fmt.Println(TitleStyle.Render("Step plan"))
	for i, st := range steps {
		fmt.Printf("  %2d. %-45s [%s]\n", i+1, st.Name, renderPolicy(st.Policy))
	}

	if _, err := step.NewSequencer(quiet).Run(ctx, steps); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Commands"))
	for _, line := range dry.Lines() {
		fmt.Println("  " + CmdStyle.Render(strings.ReplaceAll(line, scratch, "")))
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Files"))
	fmt.Println("  /etc/apt/keyrings/docker.gpg")
	fmt.Println("  /etc/apt/sources.list.d/docker.list")
	fmt.Println("  /etc/docker/daemon.json " + SubtitleStyle.Render("(only when absent)"))
	fmt.Println("  /etc/sysctl.d/99-docker-tuning.conf")
	fmt.Println("  /etc/logrotate.d/docker-containers " + SubtitleStyle.Render("(only when logrotate is installed)"))

	return nil
}

// renderPolicy colors a policy name for the step table.
func renderPolicy(p step.Policy) string {
	switch p {
	case step.Fatal:
		return ErrorStyle.Render(p.String())
	case step.WarnAndContinue:
		return WarningStyle.Render(p.String())
	default:
		return SubtitleStyle.Render(p.String())
	}
}
