// Package odbcerr implements the closed error taxonomy shared by every
// subsystem of the engine, plus the fixed binary wire form for structured
// driver diagnostics that crosses the ABI boundary.
package odbcerr

import (
	"fmt"
	"strings"
)

// Kind is the closed set of error kinds the engine ever produces.
type Kind int

const (
	// KindOdbcAPI is a generic driver error with no parsed diagnostic record.
	KindOdbcAPI Kind = iota
	// KindStructured carries a parsed SQLSTATE/native-code/message diagnostic.
	KindStructured
	// KindInvalidHandle means the caller passed a handle ID the registry
	// does not recognize.
	KindInvalidHandle
	// KindEmptyConnectionString means connect was called with an empty string.
	KindEmptyConnectionString
	// KindEnvironmentNotInitialized means init was never called (or failed).
	KindEnvironmentNotInitialized
	// KindPoolError covers checkout timeouts and pool exhaustion.
	KindPoolError
	// KindInternalError covers invariant violations inside the engine itself.
	KindInternalError
	// KindValidationError covers caller-supplied input the engine rejects.
	KindValidationError
	// KindUnsupportedFeature covers features the engine deliberately does not implement.
	KindUnsupportedFeature
)

func (k Kind) String() string {
	switch k {
	case KindOdbcAPI:
		return "OdbcApi"
	case KindStructured:
		return "Structured"
	case KindInvalidHandle:
		return "InvalidHandle"
	case KindEmptyConnectionString:
		return "EmptyConnectionString"
	case KindEnvironmentNotInitialized:
		return "EnvironmentNotInitialized"
	case KindPoolError:
		return "PoolError"
	case KindInternalError:
		return "InternalError"
	case KindValidationError:
		return "ValidationError"
	case KindUnsupportedFeature:
		return "UnsupportedFeature"
	default:
		return "Unknown"
	}
}

// Category is the coarse classification used for retry/alerting decisions.
type Category int

const (
	CategoryFatal Category = iota
	CategoryValidation
	CategoryConnectionLost
	CategoryTransient
)

func (c Category) String() string {
	switch c {
	case CategoryFatal:
		return "Fatal"
	case CategoryValidation:
		return "Validation"
	case CategoryConnectionLost:
		return "ConnectionLost"
	case CategoryTransient:
		return "Transient"
	default:
		return "Fatal"
	}
}

// Structured is the parsed form of a driver diagnostic record.
type Structured struct {
	SQLState   [5]byte
	NativeCode int32
	Message    string
}

// Error is the single concrete error type for every Kind. Handle- and
// validation-style kinds carry their detail in Message; KindStructured
// additionally populates Structured.
type Error struct {
	Kind       Kind
	Message    string
	Handle     uint32 // valid when Kind == KindInvalidHandle
	Structured *Structured
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil odbcerr.Error>"
	}
	switch e.Kind {
	case KindStructured:
		return fmt.Sprintf("%s [%05s] (native %d): %s", e.Kind, string(e.Structured.SQLState[:]), e.Structured.NativeCode, e.Structured.Message)
	case KindInvalidHandle:
		return fmt.Sprintf("%s: handle %d not found", e.Kind, e.Handle)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// New builds a plain message-carrying error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewOdbcAPI builds a KindOdbcAPI error.
func NewOdbcAPI(message string) *Error { return New(KindOdbcAPI, message) }

// NewInvalidHandle builds a KindInvalidHandle error.
func NewInvalidHandle(handle uint32) *Error {
	return &Error{Kind: KindInvalidHandle, Handle: handle}
}

// NewValidation builds a KindValidationError error.
func NewValidation(message string) *Error { return New(KindValidationError, message) }

// NewUnsupported builds a KindUnsupportedFeature error.
func NewUnsupported(message string) *Error { return New(KindUnsupportedFeature, message) }

// NewPool builds a KindPoolError error.
func NewPool(message string) *Error { return New(KindPoolError, message) }

// NewInternal builds a KindInternalError error.
func NewInternal(message string) *Error { return New(KindInternalError, message) }

// NewStructured builds a KindStructured error from a parsed diagnostic record.
func NewStructured(sqlState [5]byte, nativeCode int32, message string) *Error {
	return &Error{
		Kind:       KindStructured,
		Structured: &Structured{SQLState: sqlState, NativeCode: nativeCode, Message: message},
	}
}

var (
	ErrEmptyConnectionString    = New(KindEmptyConnectionString, "connection string must not be empty")
	ErrEnvironmentNotInitialized = New(KindEnvironmentNotInitialized, "environment not initialized; call init first")
)

// IsRetryable reports whether the caller can reasonably retry the operation
// that produced e.
func (e *Error) IsRetryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindStructured:
		return strings.HasPrefix(string(e.Structured.SQLState[:]), "08")
	case KindPoolError:
		return true
	case KindInternalError:
		return strings.Contains(e.Message, "timeout") || strings.Contains(e.Message, "Timeout")
	default:
		return false
	}
}

// IsConnectionError reports whether e indicates the connection itself is
// unusable.
func (e *Error) IsConnectionError() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindEmptyConnectionString, KindEnvironmentNotInitialized:
		return true
	case KindStructured:
		return strings.HasPrefix(string(e.Structured.SQLState[:]), "08")
	default:
		return false
	}
}

// Category classifies e for coarse-grained handling.
func (e *Error) Category() Category {
	if e == nil {
		return CategoryFatal
	}
	switch e.Kind {
	case KindValidationError:
		return CategoryValidation
	case KindUnsupportedFeature:
		return CategoryFatal
	}
	if e.IsConnectionError() {
		return CategoryConnectionLost
	}
	if e.IsRetryable() {
		return CategoryTransient
	}
	return CategoryFatal
}

// UserMessage is the text that should be surfaced to the host application:
// the driver-supplied message when available, else a kind-specific synthesized one.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindStructured && e.Structured.Message != "" {
		return e.Structured.Message
	}
	return e.Error()
}
