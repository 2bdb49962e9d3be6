package testutil

import "testing"

// Given, When, Then and And run a step as a named subtest so a failure
// reads as a scenario line. Once a step fails, later steps under the same
// parent are skipped rather than run against broken state.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "And", desc, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	name := keyword + " " + desc
	if t.Failed() {
		t.Run(name, func(t *testing.T) { t.Skip("an earlier step failed") })
		return
	}
	t.Run(name, fn)
}
