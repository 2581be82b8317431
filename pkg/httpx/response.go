package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes carried in ErrorResponse.ErrorCode.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeServiceUnavailable  = "AUTHENTICATION_SERVICE_ERROR"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
	CodeNotFound            = "NOT_FOUND"
)

// ErrorResponse is the body of every error this service writes.
type ErrorResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ErrorCode  string    `json:"errorCode"`
	StatusCode int       `json:"statusCode"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
} //@name ErrorResponse

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse for r.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Success:    false,
		Message:    message,
		ErrorCode:  code,
		StatusCode: status,
		Path:       r.URL.Path,
		Timestamp:  time.Now().UTC(),
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Responses that depend on the caller's token must never be cached.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
