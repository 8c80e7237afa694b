// Package middleware provides HTTP middleware for the webhook server.
package middleware

import "net/http"

// DefaultMaxBody mirrors the 10 MB JSON limit webhook deliveries are sized for.
const DefaultMaxBody int64 = 10 << 20

// MaxBody caps request bodies at limit bytes. Reads past the limit fail,
// which handlers see as a decode error.
func MaxBody(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
