package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localDevOrigin = "http://localhost:3000"

// CORS allows the web app at appBaseURL, plus the local dev server.
func CORS(appBaseURL string) func(http.Handler) http.Handler {
	origins := []string{localDevOrigin}
	if base := strings.TrimRight(strings.TrimSpace(appBaseURL), "/"); base != "" && base != localDevOrigin {
		origins = append(origins, base)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
