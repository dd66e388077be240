// Package respond holds the JSON response helpers shared by HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"
)

// APIError is the structured error body returned on failures.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a structured error response.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, APIError{Code: code, Message: message})
}
