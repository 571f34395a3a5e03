package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/combatlens/internal/event"
)

var (
	// ErrDuplicateHandle is returned when a handle is registered twice.
	ErrDuplicateHandle = errors.New("duplicate module handle")

	// ErrEmptyHandle is returned when a descriptor has no handle.
	ErrEmptyHandle = errors.New("empty module handle")

	// ErrNilConstructor is returned when a descriptor has no constructor.
	ErrNilConstructor = errors.New("nil module constructor")

	// ErrUndeclaredDependency is returned when a module looks up a handle it
	// did not declare.
	ErrUndeclaredDependency = errors.New("undeclared dependency")

	// ErrDependencyType is returned by Dep when the module has another type.
	ErrDependencyType = errors.New("dependency has unexpected type")

	// ErrSubscriptionsClosed is returned by On once dispatch has started.
	ErrSubscriptionsClosed = errors.New("subscriptions are closed")

	// ErrAlreadyExecuted is returned when Execute is called twice on a Run.
	ErrAlreadyExecuted = errors.New("run already executed")

	// ErrNoEventTypes is returned by On when no event type is given.
	ErrNoEventTypes = errors.New("subscription has no event types")

	// ErrNilHandler is returned by On for a nil handler.
	ErrNilHandler = errors.New("nil handler")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

// ErrorCode categorises engine errors for structured output.
type ErrorCode string

const (
	ErrCodeCyclicDependency  ErrorCode = "CYCLIC_DEPENDENCY"
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrCodeSetup             ErrorCode = "SETUP_FAILED"
	ErrCodeHandlerFault      ErrorCode = "HANDLER_FAULT"
	ErrCodeMalformedEvent    ErrorCode = "MALFORMED_EVENT"
	ErrCodeInvalidStream     ErrorCode = "INVALID_STREAM"
	ErrCodeUnknown           ErrorCode = "UNKNOWN"
)

// MissingDependencyError reports a dependency handle that is not registered.
type MissingDependencyError struct {
	Module     Handle
	Dependency Handle
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %s depends on unregistered module %s", e.Module, e.Dependency)
}

// CyclicDependencyError reports a dependency cycle. Path is a closed walk
// along dependency edges: Path[0] == Path[len(Path)-1].
type CyclicDependencyError struct {
	Path []Handle
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, h := range e.Path {
		parts[i] = string(h)
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// SetupError wraps a constructor or Init failure. A run with a setup error
// never dispatches.
type SetupError struct {
	Module Handle
	Phase  string // "construct" or "init"
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("module %s %s: %v", e.Module, e.Phase, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// HandlerFault records a module failure during a run.
type HandlerFault struct {
	Module Handle
	Phase  string // "prescan" or "dispatch"
	Event  event.Event
	Err    error
}

func (e *HandlerFault) Error() string {
	if e.Phase == PhasePrescan {
		return fmt.Sprintf("module %s faulted during prescan: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("module %s faulted on %s: %v", e.Module, e.Event, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

// Fault phases.
const (
	PhasePrescan  = "prescan"
	PhaseDispatch = "dispatch"
)

// MalformedEventError reports an event lacking fields a subscription needs.
// Handlers may return one (wrapped or not) to skip an event; the engine fills
// in Module.
type MalformedEventError struct {
	Module  Handle
	Event   event.Event
	Missing event.Field
	Reason  string
}

// Malformed builds a MalformedEventError for handlers.
func Malformed(ev event.Event, missing event.Field, reason string) *MalformedEventError {
	return &MalformedEventError{Event: ev, Missing: missing, Reason: reason}
}

func (e *MalformedEventError) Error() string {
	msg := fmt.Sprintf("malformed event %s", e.Event)
	if e.Module != "" {
		msg = fmt.Sprintf("module %s: %s", e.Module, msg)
	}
	if e.Missing != 0 {
		msg += fmt.Sprintf(" (missing %s)", e.Missing)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsCycleError returns true if err is or wraps a CyclicDependencyError.
func IsCycleError(err error) bool {
	var ce *CyclicDependencyError
	return errors.As(err, &ce)
}

// IsMissingDependency returns true if err is or wraps a MissingDependencyError.
func IsMissingDependency(err error) bool {
	var me *MissingDependencyError
	return errors.As(err, &me)
}

// IsSetupError returns true if err is or wraps a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsHandlerFault returns true if err is or wraps a HandlerFault.
func IsHandlerFault(err error) bool {
	var hf *HandlerFault
	return errors.As(err, &hf)
}

// IsMalformed returns true if err is or wraps a MalformedEventError.
func IsMalformed(err error) bool {
	var me *MalformedEventError
	return errors.As(err, &me)
}

// Code maps an error to its ErrorCode. Uses errors.As so wrapped errors are
// classified by their innermost engine type.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsCycleError(err):
		return ErrCodeCyclicDependency
	case IsMissingDependency(err):
		return ErrCodeMissingDependency
	case IsMalformed(err):
		return ErrCodeMalformedEvent
	case IsHandlerFault(err):
		return ErrCodeHandlerFault
	case IsSetupError(err):
		return ErrCodeSetup
	case errors.Is(err, event.ErrUnordered), errors.Is(err, event.ErrReservedType):
		return ErrCodeInvalidStream
	}
	return ErrCodeUnknown
}
