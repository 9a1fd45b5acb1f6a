// Package response writes the uniform JSON envelope shared by every
// endpoint: success bodies carry data/message/status_code/timestamp, error
// bodies carry error/message/status_code/timestamp plus optional
// field-keyed validation details.
package response

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Success is the envelope for 2xx responses.
type Success struct {
	Data       any       `json:"data,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error is the envelope for non-2xx responses. FieldErrors is present only
// for validation failures.
type Error struct {
	Error       string              `json:"error"`
	Message     string              `json:"message"`
	StatusCode  int                 `json:"status_code"`
	Timestamp   time.Time           `json:"timestamp"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

// OK writes a success envelope with the given status, message, and payload.
func OK(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Success{
		Data:       data,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	})
}

// Fail writes an error envelope. code is a short machine-readable error
// name; message is for humans.
func Fail(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Error{
		Error:      code,
		Message:    message,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	})
}

// ValidationFail writes a 400 envelope carrying per-field validation errors.
func ValidationFail(w http.ResponseWriter, fieldErrors map[string][]string) {
	write(w, http.StatusBadRequest, Error{
		Error:       "validation_error",
		Message:     "Validation failed",
		StatusCode:  http.StatusBadRequest,
		Timestamp:   time.Now().UTC(),
		FieldErrors: fieldErrors,
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("response: encode failed: %v", err)
	}
}
