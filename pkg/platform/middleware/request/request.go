// Package request assigns a correlation id to every request.
package request

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"firledger/pkg/requestcontext"
)

// HeaderRequestID is read from the caller when present and always echoed back.
const HeaderRequestID = "X-Request-ID"

const maxInboundID = 128

// RequestID reuses a sane inbound X-Request-ID or generates a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if reqID == "" || len(reqID) > maxInboundID || strings.ContainsAny(reqID, "\r\n") {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}
