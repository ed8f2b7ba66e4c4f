// SPDX-License-Identifier: MPL-2.0

// Package step models the provisioning run as an ordered list of idempotent
// steps, each with a declared failure policy. A uniform sequencer interprets
// the policies, replacing per-call-site error handling conventions with an
// explicit, testable table.
package step

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

type (
	// Policy declares how the sequencer treats a step failure.
	Policy int

	// Step is a single idempotent action in the provisioning sequence.
	Step struct {
		// Name identifies the step in logs and the run report.
		Name string
		// Policy is the declared failure policy.
		Policy Policy
		// Run performs the action. It must be safe to re-run.
		Run func(ctx context.Context) error
	}

	// Outcome records how one step ended.
	Outcome struct {
		Name   string
		Policy Policy
		Err    error
		// Skipped is set when a prior Fatal failure stopped the run
		// before this step was reached.
		Skipped bool
	}

	// Report collects per-step outcomes for the final summary.
	Report struct {
		Outcomes []Outcome
	}

	// Sequencer runs steps in order, short-circuiting on the first
	// Fatal failure.
	Sequencer struct {
		logger *log.Logger
	}
)

const (
	// Fatal aborts the whole run with the step's error.
	Fatal Policy = iota
	// WarnAndContinue logs the failure and proceeds.
	WarnAndContinue
	// Ignore swallows the failure entirely; absence of the step's
	// precondition is expected and acceptable.
	Ignore
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Fatal:
		return "fatal"
	case WarnAndContinue:
		return "warn"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// NewSequencer creates a Sequencer logging through logger.
func NewSequencer(logger *log.Logger) *Sequencer {
	return &Sequencer{logger: logger}
}

// Run executes steps in order. It returns the report and, when a Fatal step
// failed, that step's error; steps after a Fatal failure are marked skipped.
// Non-fatal failures never produce a returned error.
func (s *Sequencer) Run(ctx context.Context, steps []Step) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, 0, len(steps))}

	var fatalErr error
	for _, st := range steps {
		if fatalErr != nil {
			report.Outcomes = append(report.Outcomes, Outcome{Name: st.Name, Policy: st.Policy, Skipped: true})
			continue
		}
		if err := ctx.Err(); err != nil {
			fatalErr = fmt.Errorf("run interrupted: %w", err)
			report.Outcomes = append(report.Outcomes, Outcome{Name: st.Name, Policy: st.Policy, Skipped: true})
			continue
		}

		s.logger.Info("step", "name", st.Name)
		err := st.Run(ctx)
		report.Outcomes = append(report.Outcomes, Outcome{Name: st.Name, Policy: st.Policy, Err: err})
		if err == nil {
			continue
		}

		switch st.Policy {
		case Fatal:
			s.logger.Error("step failed", "name", st.Name, "err", err)
			fatalErr = fmt.Errorf("step %q: %w", st.Name, err)
		case WarnAndContinue:
			s.logger.Warn("step failed, continuing", "name", st.Name, "err", err)
		case Ignore:
			s.logger.Debug("step failed, ignored", "name", st.Name, "err", err)
		}
	}

	return report, fatalErr
}

// Failed reports the outcomes that ended in a non-ignored error.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil && o.Policy != Ignore {
			failed = append(failed, o)
		}
	}
	return failed
}
