// Package failure defines the typed failure signal that every layer of the
// service uses to report an unsuccessful request.
//
// A Signal carries a Kind, a client-safe message, and the HTTP status derived
// from the kind. Services and middleware return signals as ordinary Go errors;
// the HTTP response package classifies whatever error reaches it with
// Classify and renders exactly one envelope per request.
//
// Classification is a closed world: Kind's zero value is Generic, unknown
// kinds map to 500, and any error that is not a *Signal becomes a Generic
// signal whose message never includes the original error text.
package failure

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind enumerates the failure classes understood by the dispatcher.
type Kind int

const (
	// Generic covers unclassified failures, including programmer errors.
	Generic Kind = iota
	// NotFound means a lookup by identifier (or route) found nothing.
	NotFound
	// Invalid means a record broke a domain rule.
	Invalid
	// Validation means the request itself was structurally malformed.
	Validation
	// MethodNotAllowed means the route exists but not for this method.
	MethodNotAllowed
	// RateLimited means the caller exhausted its request budget.
	RateLimited
	// BadRequest means a parameter was unknown or held an unusable value.
	BadRequest
)

const (
	// InternalMessage is the only text clients see for unclassified errors.
	InternalMessage = "Internal server error"
	// UnknownParametersMessage is the message of NewUnknownParameters signals.
	UnknownParametersMessage = "Unpermitted parameters"
)

var kindNames = map[Kind]string{
	Generic:          "generic",
	NotFound:         "not_found",
	Invalid:          "invalid",
	Validation:       "validation_error",
	MethodNotAllowed: "method_not_allowed",
	RateLimited:      "rate_limited",
	BadRequest:       "bad_request",
}

var kindStatus = map[Kind]int{
	Generic:          http.StatusInternalServerError,
	NotFound:         http.StatusNotFound,
	Invalid:          http.StatusUnprocessableEntity,
	Validation:       http.StatusUnprocessableEntity,
	MethodNotAllowed: http.StatusMethodNotAllowed,
	RateLimited:      http.StatusTooManyRequests,
	BadRequest:       http.StatusBadRequest,
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Generic]
}

// Status returns the HTTP status for k. Unknown kinds map to 500.
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Signal is an immutable, classified failure.
type Signal struct {
	kind    Kind
	message string
	status  int
	fields  map[string][]string
	unknown []string
	cause   error
}

func newSignal(k Kind, msg string) *Signal {
	return &Signal{kind: k, message: msg, status: k.Status()}
}

// New builds a signal of kind k. Unknown kinds are coerced to Generic.
func New(k Kind, msg string) *Signal {
	if _, ok := kindStatus[k]; !ok {
		k = Generic
	}
	return newSignal(k, msg)
}

// NewNotFound reports that resource with identifier id does not exist.
func NewNotFound(resource string, id any) *Signal {
	return newSignal(NotFound, fmt.Sprintf("%s with identifier '%v' not found", resource, id))
}

// NewInvalid reports a domain rule violation.
func NewInvalid(msg string) *Signal { return newSignal(Invalid, msg) }

// NewValidation reports a malformed request. fields maps a field name to its
// problems and may be nil.
func NewValidation(msg string, fields map[string][]string) *Signal {
	s := newSignal(Validation, msg)
	if len(fields) > 0 {
		s.fields = make(map[string][]string, len(fields))
		for k, v := range fields {
			s.fields[k] = append([]string(nil), v...)
		}
	}
	return s
}

// NewBadRequest reports a parameter whose value cannot be used.
func NewBadRequest(msg string) *Signal { return newSignal(BadRequest, msg) }

// NewUnknownParameters reports request parameters the endpoint does not
// accept. names are copied and sorted.
func NewUnknownParameters(names []string) *Signal {
	s := newSignal(BadRequest, UnknownParametersMessage)
	s.unknown = append([]string(nil), names...)
	sort.Strings(s.unknown)
	return s
}

// NewGeneric reports an unclassified failure with a client-safe message.
func NewGeneric(msg string) *Signal { return newSignal(Generic, msg) }

// Internal wraps err as a Generic signal. err is kept for logging only.
func Internal(err error) *Signal {
	s := newSignal(Generic, InternalMessage)
	s.cause = err
	return s
}

// Kind returns the failure class.
func (s *Signal) Kind() Kind { return s.kind }

// Message returns the client-safe message.
func (s *Signal) Message() string { return s.message }

// StatusCode returns the HTTP status for the signal.
func (s *Signal) StatusCode() int { return s.status }

// Fields returns a copy of the per-field details, or nil.
func (s *Signal) Fields() map[string][]string {
	if len(s.fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(s.fields))
	for k, v := range s.fields {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// UnknownParameters returns a copy of the rejected parameter names, or nil.
func (s *Signal) UnknownParameters() []string {
	if len(s.unknown) == 0 {
		return nil
	}
	return append([]string(nil), s.unknown...)
}

// Error implements error.
func (s *Signal) Error() string {
	if s.cause != nil {
		return s.kind.String() + ": " + s.message + ": " + s.cause.Error()
	}
	return s.kind.String() + ": " + s.message
}

// Unwrap exposes the underlying cause, if any.
func (s *Signal) Unwrap() error { return s.cause }

// Classify maps any error onto a Signal. A *Signal anywhere in err's chain is
// returned unchanged; nil yields nil; everything else becomes Internal(err).
func Classify(err error) *Signal {
	if err == nil {
		return nil
	}
	var s *Signal
	if errors.As(err, &s) && s != nil {
		return s
	}
	return Internal(err)
}
