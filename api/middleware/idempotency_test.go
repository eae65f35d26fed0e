package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karimadly/soukly-backend/pkg/logger"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func idempotencyFixture(t *testing.T) (http.Handler, *int) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	calls := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"n":` + "1" + `}}`))
	})
	return Idempotency(newMemoryStore(), logg)(inner), &calls
}

func postOrder(body string, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postOrder(`{"a":1}`, "key-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postOrder(`{"a":1}`, "key-1"))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body %q != original %q", second.Body.String(), first.Body.String())
	}
	if *calls != 1 {
		t.Fatalf("handler invoked %d times, want 1", *calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postOrder(`{"a":1}`, "key-1"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postOrder(`{"a":2}`, "key-1"))
	if second.Code != http.StatusConflict {
		t.Fatalf("reuse status = %d", second.Code)
	}
	if *calls != 1 {
		t.Fatalf("handler invoked %d times, want 1", *calls)
	}
}

func TestIdempotencyRequiresHeaderOnGuardedRoutes(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postOrder(`{"a":1}`, ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if *calls != 0 {
		t.Fatalf("handler invoked %d times, want 0", *calls)
	}
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	handler, calls := idempotencyFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	handler.ServeHTTP(rec, req)
	if *calls != 1 {
		t.Fatalf("handler invoked %d times, want 1", *calls)
	}
}
