// SPDX-License-Identifier: MPL-2.0

// Package runlog sets up the per-run logger: everything goes to the terminal
// and to a timestamped log file under the temp directory. The duplication has
// no effect on control flow; the file exists so operators can inspect
// non-fatal failures after the run.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Run bundles the run logger with the file backing it.
type Run struct {
	Logger *log.Logger
	// Path is the location of the run log file.
	Path string

	file *os.File
}

// Open creates the timestamped run log and a logger that writes to both the
// terminal and the file. verbose lowers the level to debug so individual
// command lines are visible.
func Open(verbose bool) (*Run, error) {
	name := fmt.Sprintf("dockstrap-%s.log", time.Now().Format("20060102-150405"))
	path := filepath.Join(os.TempDir(), name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create run log %s: %w", path, err)
	}

	logger := log.NewWithOptions(io.MultiWriter(os.Stderr, f), log.Options{
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	return &Run{Logger: logger, Path: path, file: f}, nil
}

// Section prints a banner separating the major phases of the run.
func (r *Run) Section(title string) {
	r.Logger.Info(strings.ToUpper(title))
}

// Close flushes and closes the log file. Safe to call once.
func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
