package odata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrServiceUnavailable = errors.New("odata service not configured")
	ErrNoToken            = errors.New("no CSRF token received")
)

// FetchError reports a failed collection read.
type FetchError struct {
	EntitySet  string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("read %s: %v", e.EntitySet, e.Err)
	}
	return fmt.Sprintf("read %s: status %d", e.EntitySet, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// LoginError is a rejected login. Message is what the backend said, or a
// generic text when it said nothing useful.
type LoginError struct {
	StatusCode int
	Message    string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed (status %d): %s", e.StatusCode, e.Message)
}

const defaultLoginMessage = "Invalid username or password"

// loginMessage extracts the user-facing message from a failed login body:
// the OData JSON error text, else the raw body.
func loginMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return defaultLoginMessage
	}
	if !strings.HasPrefix(text, "{") {
		return text
	}

	var payload struct {
		Error struct {
			Message struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message.Value == "" {
		return defaultLoginMessage
	}
	return payload.Error.Message.Value
}
