package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AuthError reports rejected credentials or an invalid/expired session.
type AuthError struct {
	// Status is the HTTP status of the response, 0 when no response arrived.
	Status int
	// Message is the server-provided message, if any.
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return describe("auth", e.Status, e.Message, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed product list load.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	return describe("fetch products", e.Status, e.Message, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// APIError reports a failed create, update or delete call.
type APIError struct {
	// Op is one of "create", "update" or "delete".
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return describe(e.Op+" product", e.Status, e.Message, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func describe(op string, status int, message string, cause error) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteString(" failed")
	if status != 0 {
		fmt.Fprintf(&b, " (status %d)", status)
	}
	if message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	} else if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

// ServerMessage returns the server-provided message carried by err, or "".
func ServerMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Message
	}
	var pe *APIError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ""
}

// parseMessage extracts "message" from an API response body. The API sends
// either a string or a list of strings; anything else yields "".
func parseMessage(body []byte) string {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(envelope.Message, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}
