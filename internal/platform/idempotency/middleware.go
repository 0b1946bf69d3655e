package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	dErrors "firledger/pkg/domain-errors"
	"firledger/pkg/platform/circuit"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
	maxKeyLength   = 128
)

// Middleware deduplicates POST requests that carry an Idempotency-Key.
// Keys are scoped to the authenticated user and the request path.
type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	ttl      time.Duration
	logger   *slog.Logger

	// While the breaker is open the primary is retried at most once per probeEvery.
	mu         sync.Mutex
	lastProbe  time.Time
	probeEvery time.Duration
}

type Option func(*Middleware)

// WithFallback sets the store used while the primary store keeps failing.
func WithFallback(s Store) Option {
	return func(m *Middleware) { m.fallback = s }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Middleware) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

func New(primary Store, opts ...Option) *Middleware {
	m := &Middleware{
		primary:    primary,
		breaker:    circuit.New("idempotency"),
		ttl:        24 * time.Hour,
		logger:     slog.Default(),
		probeEvery: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps next. Requests other than POST, and POSTs without a key, pass through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderKey))
		if r.Method != http.MethodPost || raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		if len(raw) > maxKeyLength {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "idempotency key must be 128 characters or less"))
			return
		}
		key := scopedKey(ctx, r.URL.Path, raw)

		store := m.store()
		reserved, existing, err := store.Reserve(ctx, key, m.ttl)
		if err != nil {
			m.recordFailure(ctx, err)
			if m.fallback == nil {
				// Without a fallback the request still runs, just unprotected.
				next.ServeHTTP(w, r)
				return
			}
			store = m.fallback
			reserved, existing, err = store.Reserve(ctx, key, m.ttl)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
		} else if store == m.primary {
			m.breaker.RecordSuccess()
		}

		if !reserved {
			if existing == nil || existing.Pending {
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this idempotency key is in progress"))
				return
			}
			replay(w, *existing)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Server failures are not cached so the client may retry.
		if rec.status >= http.StatusInternalServerError {
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				m.logger.WarnContext(ctx, "failed to release idempotency key",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
			}
			return
		}
		if err := store.Complete(context.WithoutCancel(ctx), key, Record{
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}, m.ttl); err != nil {
			m.logger.WarnContext(ctx, "failed to store idempotent response",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	})
}

func (m *Middleware) store() Store {
	if m.fallback == nil || !m.breaker.IsOpen() {
		return m.primary
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Since(m.lastProbe) >= m.probeEvery {
		m.lastProbe = time.Now()
		return m.primary
	}
	return m.fallback
}

func (m *Middleware) recordFailure(ctx context.Context, err error) {
	_, change := m.breaker.RecordFailure()
	if change.Opened {
		m.mu.Lock()
		m.lastProbe = time.Now()
		m.mu.Unlock()
	}
	m.logger.WarnContext(ctx, "idempotency store unavailable",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
		"circuit_opened", change.Opened,
	)
}

func scopedKey(ctx context.Context, path, key string) string {
	sum := sha256.Sum256([]byte(requestcontext.UserID(ctx).String() + "|" + path + "|" + key))
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, rec Record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

type recorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
