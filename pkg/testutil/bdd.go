package testutil

import "testing"

// Given, When, Then and And name the phases of a scenario as subtests. Steps
// run in order and share state through the enclosing closure, so a failed
// step should stop the scenario with require rather than assert.
func Given(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Given", desc, fn) }

func When(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "When", desc, fn) }

func Then(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Then", desc, fn) }

func And(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "And", desc, fn) }

func step(t *testing.T, phase, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(phase+" "+desc, fn) {
		t.FailNow()
	}
}
