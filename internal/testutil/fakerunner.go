// SPDX-License-Identifier: MPL-2.0

// Package testutil contains shared test doubles for dockstrap packages.
package testutil

import (
	"context"
	"strings"
	"sync"

	"dockstrap-cli/internal/execx"
)

// FakeRunner is a scripted execx.Runner. It records every Command it
// receives and fails those whose rendered line contains a configured
// substring, so tests can target a single step without a live host.
type FakeRunner struct {
	mu sync.Mutex

	// Commands holds every received command in issue order.
	Commands []execx.Command

	// FailContains maps a substring of the rendered command line to the
	// exit code the fake should report for it.
	FailContains map[string]int

	// Outputs maps a substring of the rendered command line to the stdout
	// the fake should produce for it.
	Outputs map[string]string

	// MissingBinaries makes LookPath fail for the listed names.
	MissingBinaries map[string]bool
}

// NewFakeRunner creates an empty FakeRunner where every command succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		FailContains:    map[string]int{},
		Outputs:         map[string]string{},
		MissingBinaries: map[string]bool{},
	}
}

// Run records cmd and replays the scripted outcome.
func (f *FakeRunner) Run(_ context.Context, cmd execx.Command) (execx.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, cmd)

	line := execx.QuoteLine(cmd.Name, cmd.Args...)
	res := execx.Result{}
	for substr, out := range f.Outputs {
		if strings.Contains(line, substr) {
			res.Stdout = out
		}
	}
	for substr, code := range f.FailContains {
		if strings.Contains(line, substr) {
			res.ExitCode = code
			return res, &execx.ExitStatusError{Cmd: line, Code: code}
		}
	}
	return res, nil
}

// LookPath resolves every binary unless it was declared missing.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.MissingBinaries[name] {
		return "", &execx.ExitStatusError{Cmd: name, Code: 127, Stderr: "not found"}
	}
	return "/usr/bin/" + name, nil
}

// Lines returns the rendered command lines in issue order.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Commands))
	for _, c := range f.Commands {
		lines = append(lines, execx.QuoteLine(c.Name, c.Args...))
	}
	return lines
}

// LineContaining returns the first recorded line containing substr, or "".
func (f *FakeRunner) LineContaining(substr string) string {
	for _, line := range f.Lines() {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}
