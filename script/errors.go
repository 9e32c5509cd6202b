package script

import "fmt"

// The four failure classes of the pipeline. Compile and deserialize errors
// are local to one load attempt and never dislodge an installed artifact.
// Traps and unresolvable bindings are recorded per tracker.

// CompileError reports invalid source. Line and Col are 1-based and zero
// when the position is unknown; the diagnostic itself usually repeats the
// position as the compiler rendered it.
type CompileError struct {
	Diagnostic string
	Line       int
	Col        int
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return "compile error: " + e.Diagnostic
}

// DeserializeError reports corrupt or version-incompatible bytecode.
type DeserializeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *DeserializeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deserialize error: %s: %v", e.Reason, e.Err)
	}
	return "deserialize error: " + e.Reason
}

// Unwrap returns the underlying decode error, if any.
func (e *DeserializeError) Unwrap() error {
	return e.Err
}

// RuntimeTrap reports a VM execution failure for one tracker and one
// generation. It does not affect the artifact store or sibling trackers.
type RuntimeTrap struct {
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *RuntimeTrap) Error() string {
	return "runtime trap: " + e.Detail
}

// Unwrap returns the underlying VM error.
func (e *RuntimeTrap) Unwrap() error {
	return e.Err
}

// UnresolvableBinding reports that a tracker's bound artifact was removed
// from the store. The binding stays failed unless the ID is re-added, which
// arrives as a fresh generation and re-pends the tracker.
type UnresolvableBinding struct {
	ID ArtifactID
}

// Error implements the error interface.
func (e *UnresolvableBinding) Error() string {
	return fmt.Sprintf("binding to %q is unresolvable: artifact removed", e.ID)
}
