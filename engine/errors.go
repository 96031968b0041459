package engine

import (
	"errors"
	"fmt"

	"github.com/becomeliminal/salesdesk/core"
)

var (
	// ErrUnregisteredTask is reported when no agent handles the classified task.
	ErrUnregisteredTask = errors.New("unregistered task")

	// ErrHandlerFailure wraps any error or panic raised by an agent.
	ErrHandlerFailure = errors.New("handler failure")

	// ErrTaskCollision is returned when an extension name shadows a built-in kind.
	ErrTaskCollision = errors.New("task name collides with built-in task")

	// ErrInvalidTask is returned for an empty task name or a nil agent.
	ErrInvalidTask = errors.New("invalid task registration")

	// ErrInvalidRule is returned when a routing rule fails to compile.
	ErrInvalidRule = errors.New("invalid routing rule")
)

// HandlerError carries the failing task and the agent's error.
type HandlerError struct {
	Task core.TaskType
	Err  error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func (e *HandlerError) Is(target error) bool {
	return target == ErrHandlerFailure
}

// panicError turns a recovered panic value into an error.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
