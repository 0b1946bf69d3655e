package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firledger/internal/access"
	id "firledger/pkg/domain"
	"firledger/pkg/requestcontext"
)

type stubVerifier struct {
	actor access.Actor
	err   error
	got   string
}

func (v *stubVerifier) VerifyActor(token string) (access.Actor, error) {
	v.got = token
	return v.actor, v.err
}

func TestRequireActor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	station := id.StationID(uuid.New())
	actor := access.Actor{UserID: id.UserID(uuid.New()), Role: access.RoleOfficer, StationID: &station}

	t.Run("valid token sets actor and user id", func(t *testing.T) {
		v := &stubVerifier{actor: actor}
		var seen access.Actor
		var seenUser id.UserID
		h := RequireActor(v, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = access.ActorFrom(r.Context())
			seenUser = requestcontext.UserID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/cases", nil)
		req.Header.Set("Authorization", "Bearer tok-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "tok-123", v.got)
		assert.Equal(t, actor, seen)
		assert.Equal(t, actor.UserID, seenUser)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		h := RequireActor(&stubVerifier{actor: actor}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next must not be called")
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cases", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), `"success":false`)
	})

	t.Run("rejected token is unauthorized", func(t *testing.T) {
		h := RequireActor(&stubVerifier{err: errors.New("token has expired")}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next must not be called")
		}))
		req := httptest.NewRequest(http.MethodGet, "/cases", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid or expired token")
	})
}
