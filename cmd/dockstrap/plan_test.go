// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"

	"dockstrap-cli/internal/step"
)

func TestRenderPolicyCoversAllPolicies(t *testing.T) {
	for _, p := range []step.Policy{step.Fatal, step.WarnAndContinue, step.Ignore} {
		out := renderPolicy(p)
		if !strings.Contains(out, p.String()) {
			t.Errorf("rendered policy %q missing name %q", out, p.String())
		}
	}
}
