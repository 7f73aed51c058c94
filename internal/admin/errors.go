package admin

import (
	"encoding/json"
	"net/http"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body or parameter.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates a missing or wrong admin token.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeInvalidRule indicates a field rule that cannot be applied.
	ErrCodeInvalidRule = "invalid_rule"

	// ErrCodeDuplicateField indicates a rule for the field already exists.
	ErrCodeDuplicateField = "duplicate_field"

	// ErrCodeInvalidJSON indicates a preview payload that is not JSON.
	ErrCodeInvalidJSON = "invalid_json"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeReloadFailed indicates the live rules could not be rebuilt.
	ErrCodeReloadFailed = "reload_failed"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	writeJSON(w, status, APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(v)
}
