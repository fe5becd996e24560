package middleware

import (
	"net/http"
	"runtime/debug"

	"ffmpeg-microservice/internal/logging"
)

// Recovery converts a panic in a handler into a 500 JSON response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.Error("panic serving %s %s: %v\n%s",
				sanitizeLogField(r.Method), sanitizeLogField(r.URL.Path), rec, debug.Stack())
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
