package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeCounterStore struct {
	counts  map[string]int64
	lastTTL time.Duration
	err     error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counts: make(map[string]int64)}
}

func (f *fakeCounterStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastTTL = ttl
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounterStore) CounterKey(name string) string {
	return fmt.Sprintf("fake:counter:%s", name)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func rateLimitedRequest(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	if sessionID != "" {
		req = req.WithContext(WithSessionID(req.Context(), sessionID))
	}
	return req
}

func TestSubmitRateLimitAllowsUnderLimit(t *testing.T) {
	store := newFakeCounterStore()
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(time.Minute, 3), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if store.lastTTL != time.Minute {
		t.Fatalf("expected counter TTL %v, got %v", time.Minute, store.lastTTL)
	}
}

func TestSubmitRateLimitRejectsOverLimit(t *testing.T) {
	store := newFakeCounterStore()
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(time.Minute, 2), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %q", payload.Error.Code)
	}
}

func TestSubmitRateLimitCountsSessionsSeparately(t *testing.T) {
	store := newFakeCounterStore()
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first session: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("second session: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat session: expected 429, got %d", rec.Code)
	}
}

func TestSubmitRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeCounterStore()
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(0, 0), store, nil)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters touched, got %d", len(store.counts))
	}
}

func TestSubmitRateLimitNilStorePassesThrough(t *testing.T) {
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(time.Minute, 1), nil, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest("sess-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestSubmitRateLimitSkipsMissingSession(t *testing.T) {
	store := newFakeCounterStore()
	handler := SubmitRateLimit(NewSubmitRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest(""))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters touched, got %d", len(store.counts))
	}
}
