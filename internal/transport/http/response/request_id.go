package response

import "net/http"

// RequestIDFromRequest extracts the request id set by the request-id
// middleware (it echoes the header onto the request for downstream reads).
func RequestIDFromRequest(r *http.Request) string {
	if v := r.Header.Get("X-Request-Id"); v != "" {
		return v
	}
	return r.Header.Get("X-Request-ID")
}
