package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Success *bool  `json:"success,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON writes a JSON response
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondFailure writes an error response that also carries "success": false,
// the shape the standalone generator endpoint has always returned.
func RespondFailure(w http.ResponseWriter, status int, message string) {
	success := false
	RespondJSON(w, status, ErrorResponse{Error: message, Success: &success})
}

// RespondValidationError writes a validation error response
func RespondValidationError(w http.ResponseWriter, message string, details any) {
	RespondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// DecodeJSON decodes a JSON request body. An empty body decodes to the zero value.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
