package agent

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/cohort/internal/role"
)

var (
	// ErrUnsupported is returned when a role is asked for a capability its
	// behavior does not provide.
	ErrUnsupported = errors.New("capability not supported by this role")

	// ErrOrderingViolation marks a reflect step that could not run because
	// the act step it evaluates did not complete.
	ErrOrderingViolation = errors.New("reflection requires a completed act step")
)

// BackendError wraps a failure of the generation backend.
type BackendError struct {
	Role role.Role
	Op   string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: backend failed: %v", e.Role, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
