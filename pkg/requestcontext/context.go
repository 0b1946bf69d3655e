// Package requestcontext carries request-scoped values from middleware to
// services without services importing net/http. Every value has a getter
// that returns a usable zero when the value is absent, so services behave
// the same under workers, CLI commands and unit tests.
package requestcontext

import (
	"context"
	"time"

	id "firledger/pkg/domain"
)

type (
	userIDKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	clientAgentKey struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID is the authenticated user recorded as performed_by on case history.
func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(userIDKey{}).(id.UserID)
	return v
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// ClientIP is written to the client_ip column of tracking records.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// ClientAgent is the summarized client ("Firefox 128 / Linux") written to
// tracking records. It falls back to the raw User-Agent.
func ClientAgent(ctx context.Context) string {
	if v, _ := ctx.Value(clientAgentKey{}).(string); v != "" {
		return v
	}
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithClientMetadata stores the caller's IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func WithClientAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, clientAgentKey{}, agent)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the instant the request started. Case timestamps and generated FIR
// numbers within one request share it. Outside a request it is time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
