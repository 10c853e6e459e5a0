package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// OfflineMessage replaces the message of transport failures.
const OfflineMessage = "You are offline. Please check your internet connection."

// APIError is returned for non-2xx responses and transport failures.
type APIError struct {
	// Status is the HTTP status, 0 for transport failures.
	Status int
	// Data is the decoded JSON body, nil for non-JSON bodies.
	Data map[string]any
	// Message is the body's "message" field, or "API Error".
	Message string

	Method   string
	Endpoint string
	// Offline is set when the request never produced a response.
	Offline bool

	cause error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Endpoint, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// DataMessage returns the server-provided message, if any.
func (e *APIError) DataMessage() string {
	if e.Data == nil {
		return ""
	}
	if m, ok := e.Data["message"].(string); ok {
		return m
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 or 403 response.
func IsUnauthorized(err error) bool {
	s := StatusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

func newStatusError(method, endpoint string, status int, body []byte, isJSON bool) *APIError {
	e := &APIError{Status: status, Method: method, Endpoint: endpoint, Message: "API Error"}
	if !isJSON || !gjson.ValidBytes(body) {
		return e
	}
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.Str != "" {
		e.Message = msg.Str
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err == nil {
		e.Data = data
	}
	return e
}
