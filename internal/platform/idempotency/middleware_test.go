package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type failingStore struct{ calls atomic.Int32 }

func (f *failingStore) Reserve(context.Context, string, time.Duration) (bool, *Record, error) {
	f.calls.Add(1)
	return false, nil, errors.New("connection refused")
}
func (f *failingStore) Complete(context.Context, string, Record, time.Duration) error { return nil }
func (f *failingStore) Release(context.Context, string) error                         { return nil }

type MiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
	hits   atomic.Int32
	next   http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.hits.Store(0)
	s.next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{"n":`+string(rune('0'+n))+`}}`)
	})
}

func (s *MiddlewareSuite) post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cases", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func (s *MiddlewareSuite) TestReplaysCompletedResponse() {
	h := New(NewInMemoryStore(), WithLogger(s.logger)).Handler(s.next)

	first := s.post(h, "k-1")
	second := s.post(h, "k-1")

	s.Equal(int32(1), s.hits.Load())
	s.Equal(http.StatusCreated, second.Code)
	s.Equal(first.Body.String(), second.Body.String())
	s.Equal("true", second.Header().Get(HeaderReplayed))
}

func (s *MiddlewareSuite) TestDistinctKeysRunSeparately() {
	h := New(NewInMemoryStore(), WithLogger(s.logger)).Handler(s.next)
	s.post(h, "a")
	s.post(h, "b")
	s.post(h, "")
	s.Equal(int32(3), s.hits.Load())
}

func (s *MiddlewareSuite) TestPendingKeyConflicts() {
	store := NewInMemoryStore()
	h := New(store, WithLogger(s.logger)).Handler(s.next)
	key := scopedKey(context.Background(), "/cases", "busy")
	_, _, _ = store.Reserve(context.Background(), key, time.Minute)

	rr := s.post(h, "busy")
	s.Equal(http.StatusConflict, rr.Code)
	s.Equal(int32(0), s.hits.Load())
}

func (s *MiddlewareSuite) TestServerErrorsAreNotCached() {
	var calls atomic.Int32
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := New(NewInMemoryStore(), WithLogger(s.logger)).Handler(failing)

	s.Equal(http.StatusInternalServerError, s.post(h, "retry").Code)
	s.Equal(http.StatusCreated, s.post(h, "retry").Code)
	s.Equal(int32(2), calls.Load())
}

func (s *MiddlewareSuite) TestFallsBackWhenPrimaryFails() {
	primary := &failingStore{}
	h := New(primary, WithFallback(NewInMemoryStore()), WithLogger(s.logger)).Handler(s.next)

	s.post(h, "k")
	rr := s.post(h, "k")

	s.Equal(int32(1), s.hits.Load())
	s.Equal("true", rr.Header().Get(HeaderReplayed))
	s.GreaterOrEqual(primary.calls.Load(), int32(1))
}

func (s *MiddlewareSuite) TestGetPassesThrough() {
	h := New(NewInMemoryStore(), WithLogger(s.logger)).Handler(s.next)
	req := httptest.NewRequest(http.MethodGet, "/cases", nil)
	req.Header.Set(HeaderKey, "k")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	s.Equal(int32(2), s.hits.Load())
}
