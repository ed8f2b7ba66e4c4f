// SPDX-License-Identifier: MPL-2.0

package hostenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dockstrap-cli/internal/testutil"
)

func writeOSRelease(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "etc", "os-release"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func rootEuid() Option { return WithGeteuid(func() int { return 0 }) }
func plainEnv() Option { return WithGetenv(func(string) string { return "" }) }

func sudoEnv(u string) Option {
	return WithGetenv(func(key string) string {
		if key == "SUDO_USER" {
			return u
		}
		return ""
	})
}

func TestDetectRefusesUnprivileged(t *testing.T) {
	t.Parallel()
	_, err := Detect(context.Background(), testutil.NewFakeRunner(),
		WithGeteuid(func() int { return 1000 }), plainEnv())
	if !errors.Is(err, ErrNotRoot) {
		t.Fatalf("expected ErrNotRoot, got %v", err)
	}
}

func TestDetectFailsWithoutOSRelease(t *testing.T) {
	t.Parallel()
	_, err := Detect(context.Background(), testutil.NewFakeRunner(),
		rootEuid(), plainEnv(), WithRootDir(t.TempDir()))
	if !errors.Is(err, ErrOSReleaseMissing) {
		t.Fatalf("expected ErrOSReleaseMissing, got %v", err)
	}
}

func TestDetectParsesUbuntu(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, `NAME="Ubuntu"
ID=ubuntu
PRETTY_NAME="Ubuntu 24.04.1 LTS"
VERSION_ID="24.04"
VERSION_CODENAME=noble
`)
	runner := testutil.NewFakeRunner()
	runner.Outputs["dpkg --print-architecture"] = "amd64\n"

	host, err := Detect(context.Background(), runner, rootEuid(), sudoEnv("alice"), WithRootDir(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.ID != "ubuntu" || host.Codename != "noble" || host.Arch != "amd64" {
		t.Fatalf("unexpected host: %+v", host)
	}
	if host.PrettyName != "Ubuntu 24.04.1 LTS" {
		t.Fatalf("pretty name not unquoted: %q", host.PrettyName)
	}
	if !host.Supported() {
		t.Fatal("ubuntu should be supported")
	}
}

func TestDetectDerivesCodenameFromVersionID(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, `ID=debian
PRETTY_NAME="Debian GNU/Linux 12"
VERSION_ID="12"
`)
	host, err := Detect(context.Background(), testutil.NewFakeRunner(), rootEuid(), plainEnv(), WithRootDir(root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.Codename != "12" {
		t.Fatalf("expected derived codename 12, got %q", host.Codename)
	}
}

func TestDetectUnknownDistroNotSupported(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, "ID=gentoo\nVERSION_CODENAME=rolling\n")
	host, err := Detect(context.Background(), testutil.NewFakeRunner(), rootEuid(), plainEnv(), WithRootDir(root))
	if err != nil {
		t.Fatalf("detection must not fail for unknown IDs: %v", err)
	}
	if host.Supported() {
		t.Fatal("gentoo should not be on the allowlist")
	}
}

func TestResolveUserPrefersSudoUser(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, "ID=ubuntu\nVERSION_CODENAME=noble\n")
	host, err := Detect(context.Background(), testutil.NewFakeRunner(), rootEuid(), sudoEnv("bob"), WithRootDir(root))
	if err != nil {
		t.Fatal(err)
	}
	if host.User != "bob" {
		t.Fatalf("expected bob, got %q", host.User)
	}
}

func TestResolveUserFallsBackToLogname(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, "ID=ubuntu\nVERSION_CODENAME=noble\n")
	runner := testutil.NewFakeRunner()
	runner.Outputs["logname"] = "carol\n"
	host, err := Detect(context.Background(), runner, rootEuid(), sudoEnv("root"), WithRootDir(root))
	if err != nil {
		t.Fatal(err)
	}
	if host.User != "carol" {
		t.Fatalf("expected carol, got %q", host.User)
	}
}

func TestResolveUserRootYieldsEmpty(t *testing.T) {
	t.Parallel()
	root := writeOSRelease(t, "ID=ubuntu\nVERSION_CODENAME=noble\n")
	runner := testutil.NewFakeRunner()
	runner.Outputs["logname"] = "root\n"
	host, err := Detect(context.Background(), runner, rootEuid(), plainEnv(), WithRootDir(root))
	if err != nil {
		t.Fatal(err)
	}
	if host.User != "" {
		t.Fatalf("expected empty user, got %q", host.User)
	}
}
