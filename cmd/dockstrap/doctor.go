// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"

	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/hostenv"
	"dockstrap-cli/internal/verify"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host and an existing installation",
	Long: `Report the detected distribution and whether the engine and compose
plugin respond. Doctor only reads; it never installs or repairs.`,
	RunE: runDoctor,
}

func runDoctor(cobraCmd *cobra.Command, _ []string) error {
	ctx := cobraCmd.Context()
	runner := execx.NewExecRunner()

	// Doctor only reads, so the privilege gate does not apply here.
	host, err := hostenv.Detect(ctx, runner,
		hostenv.WithGeteuid(func() int { return 0 }))
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Println(TitleStyle.Render("Host"))
	fmt.Printf("  %s (%s, %s)\n", host.PrettyName, host.Codename, host.Arch)
	if host.Supported() {
		fmt.Println("  " + SuccessStyle.Render("✓ supported distribution"))
	} else {
		fmt.Println("  " + WarningStyle.Render("✗ distribution not on the supported list"))
	}

	verifier := verify.NewVerifier(runner, log.New(io.Discard))
	result := verifier.Check(ctx)

	fmt.Println()
	fmt.Println(TitleStyle.Render("Engine"))
	if result.EngineOK() {
		fmt.Println("  " + SuccessStyle.Render("✓ ") + result.EngineVersion)
	} else {
		fmt.Println("  " + ErrorStyle.Render("✗ engine not responding"))
	}
	if result.ComposeOK() {
		fmt.Println("  " + SuccessStyle.Render("✓ ") + result.ComposeVersion)
	} else {
		fmt.Println("  " + ErrorStyle.Render("✗ compose plugin not responding"))
	}

	if !result.EngineOK() {
		return &ExitError{Code: 1}
	}
	return nil
}
