package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
)

// Kind buckets a failed request for presentation. Auth failures are handled
// specially by callers (they re-solicit credentials instead of showing a
// banner), everything else maps to a user-facing message via Message.
type Kind int

const (
	KindServer Kind = iota
	KindUnavailable
	KindTimeout
	KindConnectivity
	KindAuth
	KindBusiness
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindConnectivity:
		return "connectivity"
	case KindAuth:
		return "auth"
	case KindBusiness:
		return "business"
	default:
		return "server"
	}
}

// Error is a classified request failure.
type Error struct {
	Kind       Kind
	StatusCode int
	// ServerMessage is the message payload of a 4xx response, when present.
	ServerMessage string
	cause         error
}

func (e *Error) Error() string {
	if e.ServerMessage != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.ServerMessage)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s (status %d)", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.cause }

// Message is the text shown to a person, selected by classification.
func (e *Error) Message() string {
	switch e.Kind {
	case KindUnavailable:
		return "The server is currently unavailable. Please try again in a moment."
	case KindTimeout:
		return "The server took too long to respond. Please try again."
	case KindConnectivity:
		return "Could not reach the server. Check your connection."
	case KindAuth:
		return "Authentication required."
	case KindBusiness:
		if e.ServerMessage != "" {
			return e.ServerMessage
		}
		return "The request was rejected by the server."
	default:
		return "Something went wrong on the server."
	}
}

// IsAuth reports whether err is a 401/403 classification.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// IsTimeout reports whether err is a request deadline classification.
func IsTimeout(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

// classifyTransport maps a failed round trip (no HTTP response at all) onto
// the taxonomy.
func classifyTransport(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return &Error{Kind: KindTimeout, cause: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{Kind: KindUnavailable, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, cause: err}
	}
	return &Error{Kind: KindConnectivity, cause: err}
}

// classifyStatus maps a non-2xx HTTP response onto the taxonomy.
// serverMessage is the decoded message payload, if the body carried one.
func classifyStatus(status int, serverMessage string) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: status, ServerMessage: serverMessage}
	case status >= 500:
		return &Error{Kind: KindUnavailable, StatusCode: status, ServerMessage: serverMessage}
	case status >= 400:
		return &Error{Kind: KindBusiness, StatusCode: status, ServerMessage: serverMessage}
	}
	return &Error{Kind: KindServer, StatusCode: status, ServerMessage: serverMessage}
}
