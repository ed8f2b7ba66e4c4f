// SPDX-License-Identifier: MPL-2.0

// Package issue carries the operator-facing failure documentation: structured
// actionable errors plus rendered markdown guidance for the known failure
// modes of a provisioning run.
package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a known failure mode with operator-facing documentation.
type Id int

const (
	PermissionDeniedId Id = iota + 1
	OSReleaseMissingId
	UnsupportedDistroId
	RepoRegistrationFailedId
	PackageInstallFailedId
	ServiceStartFailedId
)

// MarkdownMsg is the markdown body of an issue.
type MarkdownMsg string

// Issue couples a failure mode with the markdown guidance shown for it.
type Issue struct {
	id    Id
	mdMsg MarkdownMsg
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue guidance with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Administrative privileges required

dockstrap mutates the package database, trusted keyrings, and system
services; it refuses to start without root privileges.

## Things you can try:
~~~
$ sudo dockstrap install
~~~`,
	}

	osReleaseMissingIssue = &Issue{
		id: OSReleaseMissingId,
		mdMsg: `
# Cannot detect the distribution

The release metadata file (/etc/os-release) is missing or unreadable, so
the vendor repository suite cannot be selected. Nothing was changed.

## Things you can try:
- Verify the file exists: cat /etc/os-release
- On very old releases, symlink /usr/lib/os-release to /etc/os-release`,
	}

	unsupportedDistroIssue = &Issue{
		id: UnsupportedDistroId,
		mdMsg: `
# Distribution not on the supported list

The detected distribution ID is not one the vendor publishes packages
for (ubuntu, debian, raspbian). Provisioning continues, but repository
registration and the package install may fail.`,
	}

	repoRegistrationFailedIssue = &Issue{
		id: RepoRegistrationFailedId,
		mdMsg: `
# Vendor repository registration failed

Without the vendor repository and signing key, the target packages
cannot resolve. This is fatal.

## Things you can try:
- Check network access to download.docker.com
- Check that curl and gnupg installed correctly
- Re-run with --verbose and inspect the run log`,
	}

	packageInstallFailedIssue = &Issue{
		id: PackageInstallFailedId,
		mdMsg: `
# Package installation failed

## Things you can try:
- Run apt-get update and retry
- Run apt-get install -f to repair broken dependency state
- Inspect the run log for the exact apt error`,
	}

	serviceStartFailedIssue = &Issue{
		id: ServiceStartFailedId,
		mdMsg: `
# The Docker service did not start

Installation completed but the daemon is not running.

## Things you can try:
~~~
$ sudo journalctl -xeu docker.service
$ sudo systemctl start docker
~~~
- Check /etc/docker/daemon.json for syntax errors`,
	}

	issues = map[Id]*Issue{
		PermissionDeniedId:       permissionDeniedIssue,
		OSReleaseMissingId:       osReleaseMissingIssue,
		UnsupportedDistroId:      unsupportedDistroIssue,
		RepoRegistrationFailedId: repoRegistrationFailedIssue,
		PackageInstallFailedId:   packageInstallFailedIssue,
		ServiceStartFailedId:     serviceStartFailedIssue,
	}
)

// Values returns all known issues ordered by id.
func Values() []*Issue {
	ids := maps.Keys(issues)
	slices.Sort(ids)
	result := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		result = append(result, issues[id])
	}
	return result
}

// Get returns the issue for id, or nil when unknown.
func Get(id Id) *Issue {
	return issues[id]
}
