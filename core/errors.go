package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	// KindProgramming marks API misuse. These are raised as panics, never returned
	// from a running system, except for configuration validation in Build.
	KindProgramming ErrorKind = iota
	// KindPlatform marks failures to set up OS threads.
	KindPlatform
	// KindWrapped marks an opaque downstream error.
	KindWrapped
)

func (k ErrorKind) String() string {
	switch k {
	case KindProgramming:
		return "programming"
	case KindPlatform:
		return "platform"
	case KindWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Error is the umbrella error type of the runtime.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("asyncruntime: %s error: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("asyncruntime: %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("asyncruntime: %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgrammingError creates an Error describing API misuse.
func ProgrammingError(format string, args ...any) *Error {
	return &Error{Kind: KindProgramming, Message: fmt.Sprintf(format, args...)}
}

// PlatformError creates an Error for a failed OS thread setup.
func PlatformError(msg string, err error) *Error {
	return &Error{Kind: KindPlatform, Message: msg, Err: err}
}

// WrapError wraps a downstream error. A nil err yields nil.
func WrapError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindWrapped, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

var (
	// ErrRuntimeStopping is returned when a task is submitted after Stop.
	ErrRuntimeStopping = errors.New("asyncruntime: runtime is stopping")
	// ErrExecutorDraining is returned by an executor that no longer admits new tasks.
	ErrExecutorDraining = errors.New("asyncruntime: executor is draining")
	// ErrWorkerGone is returned when a placement targets a worker that has exited.
	ErrWorkerGone = errors.New("asyncruntime: worker no longer exists")
	// ErrTaskAborted is the drop cause of a task torn down by RequestAbort.
	ErrTaskAborted = errors.New("asyncruntime: task was aborted")
)

// TaskPanicError is the drop cause of a task whose body panicked. Awaiting the
// task's join handle re-raises it as a panic.
type TaskPanicError struct {
	TaskName string
	Value    any
	Stack    []byte
}

func (e *TaskPanicError) Error() string {
	if e.TaskName == "" {
		return fmt.Sprintf("asyncruntime: task panicked: %v", e.Value)
	}
	return fmt.Sprintf("asyncruntime: task %q panicked: %v", e.TaskName, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func panicProgramming(format string, args ...any) {
	panic(ProgrammingError(format, args...))
}
