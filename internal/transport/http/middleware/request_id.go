package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const HeaderXRequestID = "X-Request-Id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
			r.Header.Set(HeaderXRequestID, reqID)
		}
		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r)
	})
}
