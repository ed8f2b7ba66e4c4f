// SPDX-License-Identifier: MPL-2.0

package execx

import (
	"context"
	"sync"
)

// DryRunner records the command lines a run would issue without touching
// the host. Every command "succeeds" with empty output, so the sequencer
// walks the full step list.
type DryRunner struct {
	mu    sync.Mutex
	lines []string
}

// NewDryRunner creates an empty DryRunner.
func NewDryRunner() *DryRunner {
	return &DryRunner{}
}

// Run records the command and reports success.
func (r *DryRunner) Run(_ context.Context, cmd Command) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, QuoteLine(cmd.Name, cmd.Args...))
	return Result{}, nil
}

// LookPath resolves every binary to itself.
func (r *DryRunner) LookPath(name string) (string, error) {
	return name, nil
}

// Lines returns the recorded command lines in issue order.
func (r *DryRunner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
