// SPDX-License-Identifier: MPL-2.0

// Package hostenv resolves the immutable facts about the host a provisioning
// run needs: privileges, the invoking account, and the distribution identity.
// The resulting Host value is produced once and passed explicitly into every
// later phase; no phase re-reads the environment on its own.
package hostenv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dockstrap-cli/internal/execx"
)

// SupportedIDs is the allowlist of distribution IDs the vendor repository
// publishes suites for. Unknown IDs provision with a warning.
var SupportedIDs = []string{"ubuntu", "debian", "raspbian"}

var (
	// ErrNotRoot is returned when the process lacks administrative privileges.
	ErrNotRoot = errors.New("administrative privileges required (re-run with sudo)")

	// ErrOSReleaseMissing is returned when the release metadata file is absent.
	ErrOSReleaseMissing = errors.New("cannot read OS release metadata")
)

type (
	// Host is the immutable result of the preflight phase.
	Host struct {
		// ID is the distribution identifier (e.g. "ubuntu", "debian").
		ID string
		// PrettyName is the human-readable distribution name.
		PrettyName string
		// Codename is the release codename used as the repository suite,
		// possibly derived from the major version when absent.
		Codename string
		// Arch is the dpkg architecture (e.g. "amd64", "arm64").
		Arch string
		// User is the resolved non-root invoking account, empty when the
		// daemon will only be usable by root.
		User string
	}

	// Option configures detection, mainly for tests.
	Option func(*detector)

	detector struct {
		rootDir string
		geteuid func() int
		getenv  func(string) string
		runner  execx.Runner
	}
)

// WithRootDir re-roots filesystem reads (tests point this at a temp tree).
func WithRootDir(dir string) Option {
	return func(d *detector) { d.rootDir = dir }
}

// WithGeteuid sets a custom euid source for testing.
func WithGeteuid(fn func() int) Option {
	return func(d *detector) { d.geteuid = fn }
}

// WithGetenv sets a custom environment source for testing.
func WithGetenv(fn func(string) string) Option {
	return func(d *detector) { d.getenv = fn }
}

// Detect verifies privileges, resolves the invoking account, and reads the
// distribution identity. It fails fast (before any mutation) when the process
// is not privileged or the release metadata cannot be read.
func Detect(ctx context.Context, runner execx.Runner, opts ...Option) (Host, error) {
	d := &detector{
		rootDir: "/",
		geteuid: os.Geteuid,
		getenv:  os.Getenv,
		runner:  runner,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.geteuid() != 0 {
		return Host{}, ErrNotRoot
	}

	host, err := d.readOSRelease()
	if err != nil {
		return Host{}, err
	}

	host.User = d.resolveUser(ctx)
	host.Arch = d.dpkgArch(ctx)

	return host, nil
}

// Supported reports whether the distribution ID is on the allowlist.
func (h Host) Supported() bool {
	for _, id := range SupportedIDs {
		if h.ID == id {
			return true
		}
	}
	return false
}

func (d *detector) readOSRelease() (Host, error) {
	path := filepath.Join(d.rootDir, "etc", "os-release")
	f, err := os.Open(path)
	if err != nil {
		return Host{}, fmt.Errorf("%w: %s", ErrOSReleaseMissing, path)
	}
	defer f.Close()

	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}
	if err := scanner.Err(); err != nil {
		return Host{}, fmt.Errorf("%w: %v", ErrOSReleaseMissing, err)
	}

	host := Host{
		ID:         fields["ID"],
		PrettyName: fields["PRETTY_NAME"],
		Codename:   fields["VERSION_CODENAME"],
	}
	if host.Codename == "" {
		host.Codename = codenameFromVersion(fields["VERSION_ID"])
	}
	return host, nil
}

// codenameFromVersion derives a codename-like token from the major component
// of VERSION_ID. The derived token rarely matches a real suite name; the
// fallback exists for parity with hosts that strip VERSION_CODENAME.
func codenameFromVersion(versionID string) string {
	if versionID == "" {
		return ""
	}
	major, _, _ := strings.Cut(versionID, ".")
	return major
}

// resolveUser prefers the sudo-provided invoking account, then the logged-in
// terminal user. Root (or nothing) resolves to the empty string.
func (d *detector) resolveUser(ctx context.Context) string {
	user := d.getenv("SUDO_USER")
	if user == "" || user == "root" {
		res, err := d.runner.Run(ctx, execx.Command{Name: "logname"})
		if err == nil {
			user = strings.TrimSpace(res.Stdout)
		}
	}
	if user == "root" {
		return ""
	}
	return user
}

func (d *detector) dpkgArch(ctx context.Context) string {
	res, err := d.runner.Run(ctx, execx.Command{Name: "dpkg", Args: []string{"--print-architecture"}})
	if err != nil {
		return "amd64"
	}
	if arch := strings.TrimSpace(res.Stdout); arch != "" {
		return arch
	}
	return "amd64"
}
