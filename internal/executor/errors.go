package executor

import "fmt"

// ActionError wraps the error an action returned for a target. The first
// ActionError of a run is what Execute returns.
type ActionError struct {
	Target string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Target, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// PanicError reports that an action panicked on a worker. It is
// distinguished from a regular action failure because it indicates a bug in
// the action, not a failed tool invocation.
type PanicError struct {
	Target string
	Value  interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked while running target %s: %v", e.Target, e.Value)
}

// InvariantError reports a violated executor postcondition, i.e. a bug in
// the scheduler itself.
type InvariantError struct {
	Completed int
	Total     int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("executor invariant violated: %d of %d targets completed", e.Completed, e.Total)
}
