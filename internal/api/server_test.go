package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Building the combined router must not panic, and both route sets must be
// reachable from it.
func TestNewHandler_ServesBothRouteSets(t *testing.T) {
	store := openTestStore(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	h := NewHandler(PublicDeps{
		Store:     store,
		Chat:      &stubAnswerer{reply: "hi"},
		ChatRPS:   100,
		ChatBurst: 100,
	}, AdminDeps{
		Store:        store,
		PasswordHash: string(hash),
		SessionTTL:   time.Hour,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"password":"correct horse"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST /admin/login = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hello"}`))
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST /api/chat = %d, want %d", rec.Code, http.StatusOK)
	}

	// Gated admin routes still require a session on the combined router.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/messages", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /admin/messages without session = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
