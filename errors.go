package epiworld

import "fmt"

// Shared message-format constants, used the same way in production code and
// in tests.
const (
	IntKeyNotFoundError = "key %d not found"
	IntKeyExists        = "key %d already exists"

	InvalidFloatParameterError  = "invalid %s %f, %s"
	InvalidIntParameterError    = "invalid %s %d, %s"
	InvalidStringParameterError = "invalid %s %s, %s"

	UnequalFloatParameterError  = "expected %s %f, instead got %f"
	UnequalIntParameterError    = "expected %s %d, instead got %d"
	UnequalStringParameterError = "expected %s %s, instead got %s"
	UnexpectedErrorWhileError   = "encountered error while %s: %s"
	ExpectedErrorWhileError     = "expected an error while %s, instead got none"
)

// ErrorKind classifies failures per the four kinds the engine distinguishes.
type ErrorKind int

const (
	// InvalidArgument covers duplicate parameter names, bad proportions,
	// malformed contact-matrix rows, negative probabilities.
	InvalidArgument ErrorKind = iota
	// OutOfRange covers agent/virus/tool/state ids that don't exist.
	OutOfRange
	// InvalidState covers operations attempted before the population is
	// built, or attaching a second virus to an already-infected agent.
	InvalidState
	// Logic covers internal invariant violations.
	Logic
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case OutOfRange:
		return "out of range"
	case InvalidState:
		return "invalid state"
	case Logic:
		return "logic error"
	default:
		return "unknown"
	}
}

// ModelError is a typed error so callers can switch on Kind without
// string-matching.
type ModelError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newError(kind ErrorKind, format string, args ...interface{}) *ModelError {
	return &ModelError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
