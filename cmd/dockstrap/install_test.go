// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"testing"

	"dockstrap-cli/internal/issue"
)

func TestPackageIssueFor(t *testing.T) {
	repoErr := fmt.Errorf("step %q: %w", "register vendor repository", errors.New("curl exited 22"))
	if got := packageIssueFor(repoErr); got != issue.RepoRegistrationFailedId {
		t.Errorf("repo failure mapped to %d", got)
	}

	installErr := fmt.Errorf("step %q: %w", "install engine packages", errors.New("unmet dependencies"))
	if got := packageIssueFor(installErr); got != issue.PackageInstallFailedId {
		t.Errorf("install failure mapped to %d", got)
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := &ExitError{Code: 100, Err: cause}
	if err.Error() != "boom" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}

	bare := &ExitError{Code: 2}
	if bare.Error() != "exit status 2" {
		t.Errorf("unexpected bare message: %q", bare.Error())
	}
}
