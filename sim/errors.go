package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// SchedulingError is raised when an envelope would be delivered before the
// current virtual time. It signals a protocol bug and aborts the run.
type SchedulingError struct {
	At    int64
	Clock int64
	Msg   string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling %s at %d before current time %d", e.Msg, e.At, e.Clock)
}

// UnknownNodeError is raised when an id does not name a registered node.
type UnknownNodeError struct {
	ID int
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node id %d", e.ID)
}

// fatal panics with err wrapped with a stack trace. Kernel invariants are not
// recoverable: callers at the top level may recover, log and exit.
func fatal(err error) {
	panic(errors.WithStack(err))
}

// Assert panics with a formatted invariant violation if cond is false.
// Protocols use it for states that indicate a bug rather than a simulated
// condition.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.Errorf("invariant violated: "+format, args...))
	}
}
