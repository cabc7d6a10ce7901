package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authFixture(t *testing.T, keys ...*domain.APIKey) (*AuthMiddleware, http.Handler) {
	t.Helper()

	store := mocks.NewMockKeyStore()
	for _, k := range keys {
		store.Add(k)
	}
	mw := NewAuthMiddleware(store)

	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetAPIKey(r.Context())
		if key == nil {
			t.Error("handler reached without key in context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	return mw, handler
}

func TestAuthenticatePassesValidKey(t *testing.T) {
	_, handler := authFixture(t, &domain.APIKey{
		ID:      "key-1",
		KeyHash: domain.HashKey("ff-live-abc"),
		Active:  true,
	})

	req := httptest.NewRequest("POST", "/api/v1/convert", nil)
	req.Header.Set("X-API-Key", "ff-live-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateAcceptsBearerFallback(t *testing.T) {
	_, handler := authFixture(t, &domain.APIKey{
		ID:      "key-1",
		KeyHash: domain.HashKey("ff-live-abc"),
		Active:  true,
	})

	req := httptest.NewRequest("POST", "/api/v1/convert", nil)
	req.Header.Set("Authorization", "Bearer ff-live-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateRejectsMissingKey(t *testing.T) {
	_, handler := authFixture(t)

	req := httptest.NewRequest("POST", "/api/v1/convert", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateRejectsInactiveKey(t *testing.T) {
	_, handler := authFixture(t, &domain.APIKey{
		ID:      "key-1",
		KeyHash: domain.HashKey("ff-live-abc"),
		Active:  false,
	})

	req := httptest.NewRequest("POST", "/api/v1/convert", nil)
	req.Header.Set("X-API-Key", "ff-live-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for inactive key", rec.Code)
	}
}

func TestAuthenticateRejectsExpiredKey(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	_, handler := authFixture(t, &domain.APIKey{
		ID:        "key-1",
		KeyHash:   domain.HashKey("ff-live-abc"),
		Active:    true,
		ExpiresAt: &expired,
	})

	req := httptest.NewRequest("POST", "/api/v1/convert", nil)
	req.Header.Set("X-API-Key", "ff-live-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired key", rec.Code)
	}
}

func TestRecoveryMiddlewareCatchesPanic(t *testing.T) {
	logger := discardLogger()
	handler := NewRecoveryMiddleware(logger).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"}).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the handler")
	}))

	req := httptest.NewRequest("OPTIONS", "/api/v1/convert", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}
