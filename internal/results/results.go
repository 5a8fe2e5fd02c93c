// internal/results/results.go
package results

import (
	"fmt"
	"time"
)

// Code identifies the outcome class of an automation operation. The set is
// closed: every failure produced anywhere in the engine carries exactly one
// of these values, and Recovery() is total over them.
type Code string

const (
	CodeOK Code = "OK"

	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeInvalidCoordinates     Code = "INVALID_COORDINATES"
	CodeTargetNotFound         Code = "TARGET_NOT_FOUND"
	CodeMultipleTargetsFound   Code = "MULTIPLE_TARGETS_FOUND"
	CodeElementNotVisible      Code = "ELEMENT_NOT_VISIBLE"
	CodeElementNotInteractable Code = "ELEMENT_NOT_INTERACTABLE"
	CodeWindowNotFound         Code = "WINDOW_NOT_FOUND"
	CodePermissionDenied       Code = "PERMISSION_DENIED"
	CodeTimeout                Code = "TIMEOUT"
	CodeChromeNotRunning       Code = "CHROME_NOT_RUNNING"
	CodeJavaScriptError        Code = "JAVASCRIPT_ERROR"
	CodeProcessFailed          Code = "PROCESS_FAILED"
	CodeMouseClickFailed       Code = "MOUSE_CLICK_FAILED"
	CodeUnknown                Code = "UNKNOWN_ERROR"
)

// RecoveryHint tells a caller whether and how a failed operation may be
// retried. It is derived from the Code, never set independently.
type RecoveryHint string

const (
	// RecoveryRetry marks transient failures that are safe to retry immediately.
	RecoveryRetry RecoveryHint = "retry"
	// RecoveryRetryWithDelay marks transient failures that need backoff first,
	// e.g. an element that has not become interactable yet.
	RecoveryRetryWithDelay RecoveryHint = "retry_with_delay"
	// RecoveryCheckTarget means the selector or coordinates are wrong; retrying
	// the same request blindly will not help.
	RecoveryCheckTarget RecoveryHint = "check_target"
	// RecoveryPermission requires user action outside the program, such as
	// granting Accessibility or Automation permission in System Settings.
	RecoveryPermission RecoveryHint = "permission"
	// RecoveryNone marks malformed input or terminal states. Never retry.
	RecoveryNone RecoveryHint = "not_recoverable"
)

// Recovery maps every Code to its RecoveryHint. The mapping is total; unknown
// codes degrade to RecoveryNone rather than panicking.
func Recovery(c Code) RecoveryHint {
	switch c {
	case CodeOK:
		return RecoveryNone
	case CodeTimeout, CodeProcessFailed:
		return RecoveryRetry
	case CodeElementNotVisible, CodeElementNotInteractable, CodeChromeNotRunning, CodeMouseClickFailed:
		return RecoveryRetryWithDelay
	case CodeTargetNotFound, CodeMultipleTargetsFound, CodeWindowNotFound:
		return RecoveryCheckTarget
	case CodePermissionDenied:
		return RecoveryPermission
	case CodeInvalidInput, CodeInvalidCoordinates, CodeJavaScriptError, CodeUnknown:
		return RecoveryNone
	default:
		return RecoveryNone
	}
}

// Context carries out-of-band detail attached to a Result. For failures the
// RecoveryHint is always populated.
type Context struct {
	Duration     time.Duration  `json:"duration_ms,omitempty"`
	RecoveryHint RecoveryHint   `json:"recovery_hint,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Result is the tagged outcome type returned by every fallible operation in
// the engine. Exactly one of Data/Err is meaningful: Code == CodeOK iff the
// operation succeeded. A Result is constructed once at the point of success
// or failure and never mutated afterwards.
type Result[T any] struct {
	Data    T       `json:"data,omitempty"`
	Err     string  `json:"error,omitempty"`
	Code    Code    `json:"code"`
	Context Context `json:"context,omitempty"`
}

// OK builds a success Result.
func OK[T any](data T) Result[T] {
	return Result[T]{Data: data, Code: CodeOK}
}

// OKWithDuration builds a success Result carrying the operation duration.
func OKWithDuration[T any](data T, d time.Duration) Result[T] {
	return Result[T]{Data: data, Code: CodeOK, Context: Context{Duration: d}}
}

// Fail builds a failure Result. The recovery hint is filled in from the code.
func Fail[T any](code Code, msg string) Result[T] {
	return Result[T]{
		Err:     msg,
		Code:    code,
		Context: Context{RecoveryHint: Recovery(code)},
	}
}

// Failf is Fail with fmt.Sprintf formatting.
func Failf[T any](code Code, format string, args ...any) Result[T] {
	return Fail[T](code, fmt.Sprintf(format, args...))
}

// FailFrom propagates the failure state of another Result, preserving its
// code, message and recovery hint while changing the payload type. It must
// only be called on failed results.
func FailFrom[T, U any](r Result[U]) Result[T] {
	return Result[T]{Err: r.Err, Code: r.Code, Context: r.Context}
}

// Generalize erases the payload type so results of different operations can
// share one collection, e.g. in a mixed batch run. Success data, code, message
// and context all carry over.
func Generalize[T any](r Result[T]) Result[any] {
	out := Result[any]{Err: r.Err, Code: r.Code, Context: r.Context}
	if r.IsSuccess() {
		out.Data = r.Data
	}
	return out
}

// IsSuccess reports whether the result represents a completed operation.
func (r Result[T]) IsSuccess() bool { return r.Code == CodeOK }

// IsFailure is the inverse of IsSuccess.
func (r Result[T]) IsFailure() bool { return r.Code != CodeOK }

// Error implements the error interface for failed results so they can cross
// boundaries that expect a plain error. Success results return "".
func (r Result[T]) Error() string {
	if r.IsSuccess() {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Err)
}

// WithMetadata returns a copy of the result with one metadata key attached.
// The receiver is not modified.
func (r Result[T]) WithMetadata(key string, value any) Result[T] {
	meta := make(map[string]any, len(r.Context.Metadata)+1)
	for k, v := range r.Context.Metadata {
		meta[k] = v
	}
	meta[key] = value
	r.Context.Metadata = meta
	return r
}
