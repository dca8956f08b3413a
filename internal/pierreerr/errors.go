// Package pierreerr defines the closed set of domain error kinds shared by
// every component, and the translation to JSON-RPC codes and HTTP statuses
// at the protocol edges (C8, C10). Internal packages return plain errors
// wrapped with fmt.Errorf and %w; only code at the HTTP/MCP/A2A boundary
// needs to type-assert down to *Error.
package pierreerr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the closed error-kind enum.
type Kind string

const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindUnauthenticated    Kind = "Unauthenticated"
	KindInvalidCredential  Kind = "InvalidCredential"
	KindForbidden          Kind = "Forbidden"
	KindAccountPending     Kind = "AccountPending"
	KindAccountSuspended   Kind = "AccountSuspended"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindInvalidCursor      Kind = "InvalidCursor"
	KindRateLimited        Kind = "RateLimited"
	KindVersionMismatch    Kind = "VersionMismatch"
	KindUnknownTool        Kind = "UnknownTool"
	KindToolDisabled       Kind = "ToolDisabled"
	KindToolPlanRestricted Kind = "ToolPlanRestricted"
	KindTokenUnavailable   Kind = "TokenUnavailable"
	KindProviderUnavailable Kind = "ProviderUnavailable"
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindInternal           Kind = "Internal"
)

// Error is the domain error type. Data is attached freely by callers and
// surfaced verbatim in JSON-RPC `error.data` or an HTTP error body, so it
// must never carry secrets.
type Error struct {
	Kind    Kind
	Message string
	Data    map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a domain error that also carries a lower-level cause, for
// unwrapping and logging without leaking the cause to the caller.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithData attaches structured context, returning the same error for
// chaining.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// As extracts a *Error from err, following the teacher's errors.As idiom.
func As(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else KindInternal.
func KindOf(err error) Kind {
	if pe, ok := As(err); ok {
		return pe.Kind
	}
	return KindInternal
}

// jsonRPCCode is the stable JSON-RPC numeric code table from spec §4.8/§7.
func (e *Error) jsonRPCCode() int {
	switch e.Kind {
	case KindUnauthenticated, KindAccountPending, KindAccountSuspended, KindInvalidCredential:
		return -32001
	case KindVersionMismatch:
		return -32002
	case KindForbidden:
		return -32003
	case KindRateLimited:
		return -32005
	case KindInvalidRequest, KindUnknownTool, KindToolDisabled, KindToolPlanRestricted, KindNotFound, KindInvalidCursor, KindConflict:
		return -32602
	default:
		return -32000
	}
}

// ToJSONRPCError renders the error as the three fields of a JSON-RPC error
// object: code, message, data. Callers attach the request id to data
// themselves so every edge consistently includes it.
func (e *Error) ToJSONRPCError() (int, string, json.RawMessage) {
	var data json.RawMessage
	if e.Data != nil {
		if b, err := json.Marshal(e.Data); err == nil {
			data = b
		}
	}
	return e.jsonRPCCode(), e.Message, data
}

// HTTPStatus maps a Kind to the status code used for non-JSON-RPC HTTP
// responses (OAuth2 endpoints, admin API, health).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest, KindInvalidCursor:
		return 400
	case KindUnauthenticated, KindInvalidCredential, KindAccountPending, KindAccountSuspended:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound, KindUnknownTool:
		return 404
	case KindConflict:
		return 409
	case KindRateLimited:
		return 429
	case KindToolDisabled, KindToolPlanRestricted:
		return 403
	case KindProviderUnavailable, KindStorageUnavailable:
		return 503
	default:
		return 500
	}
}
