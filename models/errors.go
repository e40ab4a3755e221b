package models

import (
	"errors"
	"fmt"
)

// SuccessErrorCode is the error code the bank returns on success.
const SuccessErrorCode = "0"

// NetworkError is a transport-level failure: connection trouble, a timeout,
// or a non-200 HTTP status. It is never retried inside the transport; the
// end user may always be offered a retry.
type NetworkError struct {
	// Status is the HTTP status code, 0 when the exchange failed before a
	// status line was read.
	Status int
	// Body is the raw response body, if one could be read.
	Body string
	Err  error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return fmt.Sprintf("network error: unexpected HTTP status %d: %s", e.Status, e.Body)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a well-formed bank response whose error code is not "0".
type APIError struct {
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// UserVisible reports whether the bank classifies this code as safe to show
// verbatim to the end user.
func (e *APIError) UserVisible() bool {
	_, ok := userVisibleErrorCodes[e.Code]
	return ok
}

// Transient reports whether the code indicates temporary system trouble for
// which the caller may offer a retry.
func (e *APIError) Transient() bool {
	_, ok := transientErrorCodes[e.Code]
	return ok
}

// ProtocolError is a response that parsed fine but represents a state this
// client does not recognize. Contract-violation class; never retried.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// ConfigError is a missing or malformed client-side input detected before any
// network call is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ErrDisposed is returned from resume entry points after the payment has been
// stopped by its owner.
var ErrDisposed = errors.New("payment has been disposed")

// Static classification of bank error codes; the partition is fixed by the
// bank's documentation, not computed.
var userVisibleErrorCodes = codeSet(
	"53", "206", "224", "225", "252", "99", "101",
	"1006", "1012", "1013", "1014", "1015", "1030", "1033", "1034", "1035",
	"1036", "1037", "1038", "1039", "1040", "1041", "1042", "1043", "1051",
	"1054", "1057", "1065", "1082", "1089", "1091", "1096",
)

var transientErrorCodes = codeSet("9999", "231", "3", "3001")

func codeSet(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}
