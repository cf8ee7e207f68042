// Package errors provides structured error handling for the entity runtime.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinel errors. Structured errors unwrap to one of these so callers can
// match with errors.Is.
var (
	// ErrStaleHandle is returned when a handle no longer resolves to a live entity.
	ErrStaleHandle = stderrors.New("stale entity handle")
	// ErrReentrantAccess is the cause of the panic raised when an entity,
	// window or global is accessed while it is already leased for update.
	ErrReentrantAccess = stderrors.New("re-entrant access")
	// ErrMissingGlobal is returned when a global of the requested type is not set.
	ErrMissingGlobal = stderrors.New("global not set")
	// ErrAppReleased is returned when the application has been torn down.
	ErrAppReleased = stderrors.New("app released")
	// ErrWindowNotFound is returned for an unknown or closed window id.
	ErrWindowNotFound = stderrors.New("window not found")
	// ErrCancelled is reported by tasks that were cancelled before completing.
	ErrCancelled = stderrors.New("task cancelled")
	// ErrDeadlock is returned by Block under the test dispatcher when the
	// awaited task cannot make progress.
	ErrDeadlock = stderrors.New("parked with nothing left to run")
	// ErrTimeout is returned by BlockWithTimeout when the deadline passes.
	ErrTimeout = stderrors.New("timed out")
	// ErrTaskPending is returned when the result of an unfinished task is read.
	ErrTaskPending = stderrors.New("task still running")
	// ErrWrongLane is returned when background work reaches for entities,
	// globals or windows instead of handing off to the foreground lane.
	ErrWrongLane = stderrors.New("app access from the background lane")
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindStaleHandle indicates an operation on a dropped entity.
	KindStaleHandle
	// KindReentrant indicates a second lease on something already leased.
	KindReentrant
	// KindMissingGlobal indicates a read of an unset global.
	KindMissingGlobal
	// KindAppReleased indicates use of a torn down application.
	KindAppReleased
	// KindWindow indicates an unknown window.
	KindWindow
	// KindTask indicates a scheduling failure.
	KindTask
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindSettings indicates a settings load failure.
	KindSettings
	// KindLane indicates app access from the wrong executor lane.
	KindLane
)

func (k ErrorKind) String() string {
	switch k {
	case KindStaleHandle:
		return "stale_handle"
	case KindReentrant:
		return "reentrant"
	case KindMissingGlobal:
		return "missing_global"
	case KindAppReleased:
		return "app_released"
	case KindWindow:
		return "window"
	case KindTask:
		return "task"
	case KindPanic:
		return "panic"
	case KindSettings:
		return "settings"
	case KindLane:
		return "lane"
	default:
		return "unknown"
	}
}

// Error is a structured runtime error.
type Error struct {
	// Op is the operation that failed (e.g., "core.UpdateModel").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Entity describes the entity, window or global involved, if any.
	Entity string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s [%s] %s: %v", e.Op, e.Kind, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error stamped with the current time.
func New(op string, kind ErrorKind, entity string, err error) *Error {
	return &Error{
		Op:        op,
		Kind:      kind,
		Entity:    entity,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Reentrant builds the panic value raised on a conflicting lease.
func Reentrant(op, entity string) *Error {
	e := New(op, KindReentrant, entity, ErrReentrantAccess)
	e.StackTrace = CaptureStack()
	return e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "executor.Task").
	Op string
	// Kind is KindPanic, or the kind of an *Error passed to panic().
	Kind ErrorKind
	// Entity describes the entity, window or callback involved, if any.
	Entity string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	switch {
	case e.Op != "" && e.Entity != "":
		return fmt.Sprintf("panic in %s on %s: %v", e.Op, e.Entity, e.Value)
	case e.Op != "":
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	default:
		return fmt.Sprintf("panic: %v", e.Value)
	}
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrorHandler receives errors reported by the runtime.
type ErrorHandler interface {
	// HandleError is called when an error is reported.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
