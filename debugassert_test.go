package epiworld

import "testing"

// debugAssert is a no-op in this package's normal (non-"debug"-tagged) test
// build, so it must never panic regardless of the condition passed in.
func TestDebugAssert_NoopOutsideDebugBuild(t *testing.T) {
	debugAssert(false, "this should never panic in a non-debug build: %d", 1)
}
