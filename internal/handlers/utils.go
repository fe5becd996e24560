package handlers

import (
	"encoding/json"
	"net/http"

	"ffmpeg-microservice/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, ErrorResponse{Error: message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, statusCode int, status string) {
	writeJSONStatusCode(w, statusCode, map[string]string{"status": status})
}

// NotFound is the router's fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, "Not found", http.StatusNotFound)
}
