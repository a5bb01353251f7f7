// Package cabinerr defines cabin's stable error-kind taxonomy (spec §7).
// Every fallible planner operation returns one of these wrapped around its
// underlying cause, so callers can use errors.As to branch on kind while
// %w-wrapping keeps errors.Is working against the original cause.
package cabinerr

import "fmt"

// ManifestError covers cabin.toml parsing and validation failures.
type ManifestError struct {
	Msg string
	Pos string // "line:col", empty if not applicable
	Err error
}

func (e *ManifestError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ResolveError covers dependency-resolution and installation failures.
type ResolveError struct {
	Msg string
	Err error
}

func (e *ResolveError) Error() string { return e.Msg }
func (e *ResolveError) Unwrap() error { return e.Err }

// ToolchainError covers compiler/archiver/tool discovery failures.
type ToolchainError struct {
	Msg string
	Err error
}

func (e *ToolchainError) Error() string { return e.Msg }
func (e *ToolchainError) Unwrap() error { return e.Err }

// ScanError covers source-tree scanning and header-dependency scan failures.
type ScanError struct {
	Msg string
	Err error
}

func (e *ScanError) Error() string { return e.Msg }
func (e *ScanError) Unwrap() error { return e.Err }

// PlanInvariantError signals an internal invariant violation in the build
// graph (e.g. a compile unit that should exist does not). These should
// never surface in correct operation; they indicate a cabin bug.
type PlanInvariantError struct {
	Msg string
}

func (e *PlanInvariantError) Error() string { return "internal error: " + e.Msg }

// ExecutorError covers failures from the external Ninja-compatible executor.
type ExecutorError struct {
	Msg string
	Err error
}

func (e *ExecutorError) Error() string { return e.Msg }
func (e *ExecutorError) Unwrap() error { return e.Err }

// IOError covers filesystem read/write failures during plan emission.
type IOError struct {
	Msg string
	Err error
}

func (e *IOError) Error() string { return e.Msg }
func (e *IOError) Unwrap() error { return e.Err }
