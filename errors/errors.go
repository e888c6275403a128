package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified dagflow error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Node is the dotted path of the node that failed (outer.inner.task).
	// Empty for errors raised outside of an invocation.
	Node string `json:"node,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Node != "" {
		msg = fmt.Sprintf("node %s: %s", e.Node, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// --- Construction errors ---

// InvalidName creates an error for an identifier that breaks the naming rule.
// kind names what was being named ("node", "input", "output").
func InvalidName(kind, name, rule string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidName,
		Message: fmt.Sprintf("%s name %q is invalid, names must match %s", kind, name, rule),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// InvalidReference creates an error for a reference to something that does
// not exist, listing the valid alternatives.
func InvalidReference(what, name string, available []string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidReference,
		Message: fmt.Sprintf("%s %q does not exist, available: [%s]",
			what, name, strings.Join(available, ", ")),
		Details: map[string]any{"reference": name, "available": available},
	}
}

// SerializerMismatch creates an error for an input whose serializer differs
// from the serializer of the value it references.
func SerializerMismatch(subject string, want, got any) *AppError {
	return &AppError{
		Code:    ErrCodeSerializerMismatch,
		Message: fmt.Sprintf("%s uses serializer %v but its source is serialized with %v", subject, got, want),
		Details: map[string]any{"subject": subject},
	}
}

// CyclicDependency creates an error naming the nodes that could not be scheduled.
func CyclicDependency(nodes []string) *AppError {
	return &AppError{
		Code:    ErrCodeCyclicDependency,
		Message: fmt.Sprintf("cyclic dependency among nodes [%s]", strings.Join(nodes, ", ")),
		Details: map[string]any{"nodes": nodes},
	}
}

// Partitioning creates an error for an illegal partitioning configuration.
func Partitioning(message string) *AppError {
	return &AppError{Code: ErrCodePartitioning, Message: message}
}

// --- Invocation errors ---

// MissingParameters creates an error listing every required parameter that
// was not supplied.
func MissingParameters(names []string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingParameter,
		Message: fmt.Sprintf("missing required parameters [%s]", strings.Join(names, ", ")),
		Details: map[string]any{"missing": names},
	}
}

// InvalidType creates an error for a runtime value of an unexpected kind.
func InvalidType(message string, value any) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidType,
		Message: message,
		Details: map[string]any{"type": fmt.Sprintf("%T", value)},
	}
}

// Serialization wraps a failure to encode a value.
func Serialization(cause error) *AppError {
	return &AppError{Code: ErrCodeSerialization, Message: "value could not be serialized", Cause: cause}
}

// Deserialization wraps a failure to decode a payload.
func Deserialization(cause error) *AppError {
	return &AppError{Code: ErrCodeDeserialization, Message: "payload could not be deserialized", Cause: cause}
}

// Storage wraps a failure of the output store.
func Storage(path string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("storage failed for %s", path),
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// InNode attributes err to the node called name. AppErrors keep their code and
// gain name as the outermost segment of their node path; any other error is
// reported as ErrCodeExecution. An AppError found under a wrapper keeps the
// wrapper as its cause.
func InNode(name string, err error) error {
	if err == nil {
		return nil
	}
	app, ok := AsAppError(err)
	if !ok {
		return &AppError{
			Code:    ErrCodeExecution,
			Message: "task returned an error",
			Node:    name,
			Cause:   err,
		}
	}
	wrapped := *app
	if error(app) != err {
		wrapped.Cause = err
	}
	if app.Node == "" {
		wrapped.Node = name
	} else {
		wrapped.Node = name + "." + app.Node
	}
	if app.Details != nil {
		wrapped.Details = make(map[string]any, len(app.Details))
		for k, v := range app.Details {
			wrapped.Details[k] = v
		}
	}
	return &wrapped
}

// InvalidConfig creates an error for configuration that failed validation.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: message}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if app, ok := AsAppError(err); ok {
		return app.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
