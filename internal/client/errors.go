package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors mirroring the server's error classes. Use errors.Is() in
// calling code; the full server message is in Error().
var (
	// ErrValidation means the command was invalid for the current state.
	// Retrying unchanged will not help.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means no report exists for the session.
	ErrNotFound = errors.New("report not found")

	// ErrConflict means the work is already being handled elsewhere;
	// resynchronize and show the authoritative state.
	ErrConflict = errors.New("conflicting operation in progress")

	// ErrUnsupportedFormat means the requested export format is not
	// available on this server.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrServer means the server failed internally.
	ErrServer = errors.New("server error")

	// ErrUnavailable means the server could not be reached at all.
	ErrUnavailable = errors.New("server unavailable")
)

// apiError carries the server's error payload and wraps the matching
// sentinel so callers can classify with errors.Is.
type apiError struct {
	sentinel error
	message  string
}

func (e *apiError) Error() string { return e.message }
func (e *apiError) Unwrap() error { return e.sentinel }

// decodeError turns a non-200 response into a classified error. The payload
// code wins over the HTTP status; both are server-controlled, but the code
// is the contract.
func decodeError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return &apiError{sentinel: sentinelFor(status, payload.Code), message: message}
}

func sentinelFor(status int, code string) error {
	switch code {
	case "validation":
		return ErrValidation
	case "not_found":
		return ErrNotFound
	case "conflict":
		return ErrConflict
	case "unsupported_format":
		return ErrUnsupportedFormat
	case "internal":
		return ErrServer
	}
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return ErrServer
}
