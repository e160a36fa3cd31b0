package middleware

import (
	"net/http"
	"strings"

	"gigmarket/pkg/logger"
)

func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r) {
				contentType := extractContentType(r.Header.Get("Content-Type"))

				if contentType != "application/json" {
					log.Warn("Invalid Content-Type header",
						"request_id", RequestID(r.Context()),
						"content_type", contentType,
						"path", r.URL.Path,
						"method", r.Method,
					)
					writeJSONError(w, http.StatusUnsupportedMediaType, "INVALID_INPUT", "Content-Type must be application/json")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Action endpoints such as accept or close are posted without a body.
func requiresContentType(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	}
	return false
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.Split(header, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "INVALID_INPUT", "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
