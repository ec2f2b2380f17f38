package sbom

import (
	"errors"
	"fmt"
)

// Process exit statuses of a generate run.
const (
	ExitOK       = 0
	ExitConfig   = 1
	ExitAssembly = 255
)

// ErrorKind separates failures the operator must fix in the inputs from
// failures found while building the SBOM.
type ErrorKind int

const (
	// KindConfig covers bad paths, missing or unreadable input files.
	KindConfig ErrorKind = iota + 1
	// KindResolution means a package has no CPE id under strict mode.
	KindResolution
	// KindIO covers failures writing the output files.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindResolution:
		return "resolution error"
	case KindIO:
		return "output error"
	default:
		return "unknown error"
	}
}

// Error is returned by every pipeline stage.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ExitCode maps a pipeline error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if KindOf(err) == KindResolution {
		return ExitAssembly
	}
	return ExitConfig
}
