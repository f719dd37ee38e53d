package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope carrying data.
func WriteSuccess(w http.ResponseWriter, code int, data any, message string) {
	WriteJSON(w, code, Envelope{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < 400,
	})
}

// WriteError writes a failure envelope. message must be safe to show clients.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, Envelope{
		StatusCode: code,
		Message:    message,
		Success:    false,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
