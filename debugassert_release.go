//go:build !debug

package epiworld

// debugAssert is a no-op outside the debug build tag, so hot-path kernels
// can call it unconditionally without paying an assertion-check cost in a
// normal build.
func debugAssert(bool, string, ...interface{}) {}
