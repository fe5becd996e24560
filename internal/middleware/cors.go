package middleware

import "net/http"

// CORSConfig holds the values of the Access-Control-Allow-* headers.
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// DefaultCORSConfig allows any origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Content-Type, Authorization",
	}
}

// CORS sets the CORS headers on every response and answers preflight
// OPTIONS requests with 204 without calling next.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", config.AllowOrigin)
			h.Set("Access-Control-Allow-Methods", config.AllowMethods)
			h.Set("Access-Control-Allow-Headers", config.AllowHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
