// Package requesttime pins one "now" per request. Case timestamps, the
// generated FIR number and audit rows written by the request agree on it.
package requesttime

import (
	"net/http"
	"time"

	"firledger/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now().UTC())))
	})
}
