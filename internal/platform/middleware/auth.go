package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"firledger/internal/access"
	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

// ActorVerifier turns a bearer token into the authenticated actor.
type ActorVerifier interface {
	VerifyActor(token string) (access.Actor, error)
}

// RequireActor rejects requests without a valid bearer token and places the
// verified actor in the request context.
func RequireActor(verifier ActorVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			actor, err := verifier.VerifyActor(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = access.WithActor(ctx, actor)
			ctx = requestcontext.WithUserID(ctx, actor.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
