package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response is the envelope every REST endpoint returns. Errors carries
// field-keyed validation messages; Error is a single human-readable cause.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, res Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func OK(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope. The optional cause becomes the
// machine-facing Error field; without one the message stands alone.
func Fail(w http.ResponseWriter, status int, message string, cause ...string) {
	res := Response{Success: false, Message: message}
	if len(cause) > 0 {
		res.Error = cause[0]
	}
	JSON(w, status, res)
}

// ValidationFail reports malformed input as a field-keyed map.
func ValidationFail(w http.ResponseWriter, errs map[string]string) {
	JSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// Internal hides the underlying cause from the client and logs it here
// when the caller hands it over.
func Internal(w http.ResponseWriter, err ...error) {
	if len(err) > 0 && err[0] != nil {
		log.Printf("internal error: %v", err[0])
	}
	Fail(w, http.StatusInternalServerError, "Internal server error", "Something went wrong")
}
