package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"firledger/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	run := func(inbound string) (string, *httptest.ResponseRecorder) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set(HeaderRequestID, inbound)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return seen, rr
	}

	t.Run("inbound id is reused", func(t *testing.T) {
		seen, rr := run("abc-123")
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	})

	t.Run("missing id is generated", func(t *testing.T) {
		seen, rr := run("")
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	})

	t.Run("oversized id is replaced", func(t *testing.T) {
		seen, _ := run(strings.Repeat("x", 200))
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})
}
