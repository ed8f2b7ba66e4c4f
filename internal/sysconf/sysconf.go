// SPDX-License-Identifier: MPL-2.0

// Package sysconf writes the host configuration artifacts: the daemon
// configuration, kernel tuning for container workloads, and the container
// log rotation policy.
package sysconf

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"dockstrap-cli/internal/execx"
	"dockstrap-cli/internal/issue"
	"dockstrap-cli/internal/step"

	"github.com/charmbracelet/log"
)

const (
	daemonConfigPath    = "etc/docker/daemon.json"
	sysctlConfigPath    = "etc/sysctl.d/99-docker-tuning.conf"
	logrotateDir        = "etc/logrotate.d"
	logrotateConfigName = "docker-containers"
)

// daemonConfig is written verbatim so re-runs can rely on the file being
// byte-identical when dockstrap created it.
const daemonConfig = `{
  "log-driver": "json-file",
  "log-opts": {
    "max-size": "100m",
    "max-file": "3"
  },
  "default-ulimits": {
    "nofile": {
      "Name": "nofile",
      "Hard": 64000,
      "Soft": 64000
    }
  }
}
`

const sysctlConfig = `# Kernel tuning for container workloads, managed by dockstrap.
vm.max_map_count = 262144
fs.file-max = 2097152
net.core.somaxconn = 65535
net.ipv4.tcp_max_syn_backlog = 65535
`

const logrotateConfig = `/var/lib/docker/containers/*/*.log {
  daily
  rotate 7
  compress
  copytruncate
  missingok
}
`

// Writer applies the host configuration artifacts. File writes are rooted at
// rootDir so tests can redirect them.
type Writer struct {
	runner  execx.Runner
	logger  *log.Logger
	rootDir string
}

// Option customizes a Writer.
type Option func(*Writer)

// WithRootDir redirects filesystem writes under dir.
func WithRootDir(dir string) Option {
	return func(w *Writer) { w.rootDir = dir }
}

// NewWriter creates a Writer executing through runner and logging to logger.
func NewWriter(runner execx.Runner, logger *log.Logger, opts ...Option) *Writer {
	w := &Writer{runner: runner, logger: logger, rootDir: "/"}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDaemonConfig writes the daemon configuration unless one already
// exists. An existing file is the operator's, whatever its content, and is
// never touched. Returns whether the file was written.
func (w *Writer) WriteDaemonConfig() (bool, error) {
	path := filepath.Join(w.rootDir, daemonConfigPath)

	if _, err := os.Stat(path); err == nil {
		w.logger.Info("daemon configuration already present, keeping it", "path", path)
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, issue.WrapWithOperation(err, "inspect daemon configuration")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, issue.WrapWithOperation(err, "create daemon configuration directory")
	}
	if err := os.WriteFile(path, []byte(daemonConfig), 0o644); err != nil {
		return false, issue.NewErrorContext().
			WithOperation("write daemon configuration").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	w.logger.Info("wrote daemon configuration", "path", path)
	return true, nil
}

// WriteSysctlConfig writes the kernel tuning file. Unlike the daemon
// configuration this file is owned by dockstrap and is overwritten on every
// run so tuning updates propagate.
func (w *Writer) WriteSysctlConfig() error {
	path := filepath.Join(w.rootDir, sysctlConfigPath)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return issue.WrapWithOperation(err, "create sysctl directory")
	}
	if err := os.WriteFile(path, []byte(sysctlConfig), 0o644); err != nil {
		return issue.NewErrorContext().
			WithOperation("write kernel tuning").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	w.logger.Info("wrote kernel tuning", "path", path)
	return nil
}

// ApplySysctl reloads all sysctl configuration. The new values also take
// effect on the next boot regardless, so a reload failure is not fatal.
func (w *Writer) ApplySysctl(ctx context.Context) error {
	_, err := w.runner.Run(ctx, execx.Command{Name: "sysctl", Args: []string{"--system"}})
	if err != nil {
		return issue.WrapWithOperation(err, "apply kernel tuning")
	}
	return nil
}

// WriteLogrotateConfig installs the container log rotation policy when the
// host has a logrotate drop-in directory. Hosts without logrotate are left
// alone. Returns whether the file was written.
func (w *Writer) WriteLogrotateConfig() (bool, error) {
	dir := filepath.Join(w.rootDir, logrotateDir)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		w.logger.Info("logrotate not present, skipping rotation policy")
		return false, nil
	}

	path := filepath.Join(dir, logrotateConfigName)
	if err := os.WriteFile(path, []byte(logrotateConfig), 0o644); err != nil {
		return false, issue.NewErrorContext().
			WithOperation("write log rotation policy").
			WithResource(path).
			Wrap(err).
			BuildError()
	}

	w.logger.Info("wrote log rotation policy", "path", path)
	return true, nil
}

// Steps returns the configuration sequence. Only the daemon configuration is
// load-bearing for the engine itself; tuning and rotation improve the host
// but their absence does not break the install.
func (w *Writer) Steps() []step.Step {
	return []step.Step{
		{Name: "write daemon configuration", Policy: step.Fatal, Run: func(context.Context) error {
			_, err := w.WriteDaemonConfig()
			return err
		}},
		{Name: "write kernel tuning", Policy: step.Fatal, Run: func(context.Context) error {
			return w.WriteSysctlConfig()
		}},
		{Name: "apply kernel tuning", Policy: step.WarnAndContinue, Run: w.ApplySysctl},
		{Name: "install log rotation policy", Policy: step.WarnAndContinue, Run: func(context.Context) error {
			_, err := w.WriteLogrotateConfig()
			return err
		}},
	}
}
