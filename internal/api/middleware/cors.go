package middleware

import (
	"github.com/go-chi/cors"
)

// defaultOrigins admits the browser extension pages that call the daemon.
var defaultOrigins = []string{"chrome-extension://*", "moz-extension://*"}

func CORSHandler(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultOrigins
	}

	// When wildcard is used, disable AllowCredentials to prevent CSRF
	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Length", "Retry-After"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
