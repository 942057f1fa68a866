// Package pkherr defines the closed error-kind taxonomy shared by every
// other package in the module.
package pkherr

import "fmt"

// Kind is a closed enumeration of error categories. Callers should use
// errors.As to recover a *Error and switch on Kind rather than matching
// strings.
type Kind string

const (
	// Validation
	BadPath        Kind = "BadPath"
	BadCapability  Kind = "BadCapability"
	BadPublicKey   Kind = "BadPublicKey"
	BadToken       Kind = "BadToken"

	// Auth
	InvalidSignature       Kind = "InvalidSignature"
	TokenExpired           Kind = "TokenExpired"
	SessionExpired         Kind = "SessionExpired"
	InsufficientCapability Kind = "InsufficientCapability"
	SignupCodeRequired     Kind = "SignupCodeRequired"
	SignupCodeAlreadyUsed  Kind = "SignupCodeAlreadyUsed"
	UserDisabled           Kind = "UserDisabled"

	// Resource
	NotFound      Kind = "NotFound"
	QuotaExceeded Kind = "QuotaExceeded"
	Conflict      Kind = "Conflict"

	// Transport
	DhtUnavailable         Kind = "DhtUnavailable"
	RelayUnavailable       Kind = "RelayUnavailable"
	InsufficientDurability Kind = "InsufficientDurability"
	AuthTimeout            Kind = "AuthTimeout"

	// Storage
	MetadataStoreFailure Kind = "MetadataStoreFailure"
	BlobBackendFailure   Kind = "BlobBackendFailure"
	MigrationFailed      Kind = "MigrationFailed"

	// Policy
	RateLimited Kind = "RateLimited"
)

// Error is the concrete error type every kind above is wrapped in.
type Error struct {
	kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Kind returns the error's closed category.
func (e *Error) Kind() Kind { return e.kind }

// WithDetails attaches a structured detail to the error and returns it.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.kind == k
}

// InsufficientDurabilityError carries the last observed DHT storer count,
// so callers can report how close the publish came to quorum.
type InsufficientDurabilityError struct {
	Err         *Error
	LastStorers int
}

// NewInsufficientDurability builds the publish-quorum failure error.
func NewInsufficientDurability(lastStorers int) *InsufficientDurabilityError {
	return &InsufficientDurabilityError{
		Err:         New(InsufficientDurability, "publish did not reach quorum"),
		LastStorers: lastStorers,
	}
}

// Error implements the error interface by delegating to the wrapped *Error.
func (e *InsufficientDurabilityError) Error() string { return e.Err.Error() }

// Unwrap allows errors.As/errors.Is to see through to the wrapped *Error.
func (e *InsufficientDurabilityError) Unwrap() error { return e.Err }

// Kind returns the wrapped error's closed category.
func (e *InsufficientDurabilityError) Kind() Kind { return e.Err.Kind() }

// FatalError wraps an error that should terminate the process. The external
// entrypoint inspects ExitCode to choose os.Exit's argument (2 for
// migration failure, 3 for other fatal runtime errors).
type FatalError struct {
	*Error
	ExitCode int
}

// NewFatal wraps cause as a fatal condition with the given exit code.
func NewFatal(kind Kind, exitCode int, message string, cause error) *FatalError {
	return &FatalError{
		Error:    Wrap(kind, message, cause),
		ExitCode: exitCode,
	}
}
