//go:build debug

package epiworld

// debugAssert panics with a Logic error if cond is false. Compiled in only
// under the debug build tag; hot-path kernels assume validated inputs and
// rely on these assertions in debug builds alone.
func debugAssert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(newError(Logic, format, args...))
	}
}
