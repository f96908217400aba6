// Package simerr holds the error types shared by the parameter, event, tree
// and driver packages. It has no dependencies on the rest of sim/.
package simerr

import (
	"errors"
	"fmt"
)

// Runtime simulation failures. Each is recoverable by regenerating the
// replicate, except ErrRuntimeLimit, which ends the whole batch.
var (
	// ErrExplosion indicates the living-lineage count exceeded abort_at_alive_count.
	ErrExplosion = errors.New("simerr: living lineages exceeded abort threshold")

	// ErrConditioning indicates a finished tree failed a conditioning requirement.
	ErrConditioning = errors.New("simerr: tree failed conditioning")

	// ErrExtinctBeforeSize indicates every lineage died before a size target was reached.
	ErrExtinctBeforeSize = errors.New("simerr: all lineages extinct before size target")

	// ErrRuntimeLimit indicates the wall-clock budget ran out.
	ErrRuntimeLimit = errors.New("simerr: runtime limit exceeded")
)

// ConfigError reports an invalid configuration value found at construction time.
type ConfigError struct {
	Func   string // constructor or validator that rejected the value
	Field  string // offending configuration field
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Func, e.Field, e.Reason)
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(fn, field, format string, args ...any) *ConfigError {
	return &ConfigError{Func: fn, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ReplicateError wraps a runtime failure with the replicate it happened in.
type ReplicateError struct {
	Sample    int
	Replicate int
	Attempts  int    // attempts made before giving up
	Reason    string // short tag, e.g. "explosion", "survival", "timeout"
	Err       error
}

func (e *ReplicateError) Error() string {
	return fmt.Sprintf("sample %d replicate %d failed after %d attempt(s) (%s): %v",
		e.Sample, e.Replicate, e.Attempts, e.Reason, e.Err)
}

func (e *ReplicateError) Unwrap() error {
	return e.Err
}
