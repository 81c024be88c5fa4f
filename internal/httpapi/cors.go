package httpapi

import (
	"net/http"

	"github.com/go-chi/cors"
)

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"}
)

// corsMiddleware builds the CORS handler from SetCORSOptions. Empty method
// and header lists fall back to what the API uses.
func corsMiddleware() func(http.Handler) http.Handler {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
