package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkoval/folio/internal/storage"
)

const sessionCookieName = "folio_session"

// SessionStore is the slice of the store the auth layer needs.
type SessionStore interface {
	CreateSession(storage.Session) error
	GetSession(token string) (storage.Session, error)
	DeleteSession(token string) error
}

// SessionAuth gates admin routes behind a valid, unexpired session cookie.
func SessionAuth(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				httpError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			sess, err := store.GetSession(cookie.Value)
			if err != nil || time.Now().After(sess.ExpiresAt) {
				httpError(w, http.StatusUnauthorized, "session invalid or expired")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func handleLogin(store SessionStore, passwordHash string, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		if passwordHash == "" {
			httpError(w, http.StatusServiceUnavailable, "admin password is not configured")
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			httpError(w, http.StatusUnauthorized, "invalid password")
			return
		}

		now := time.Now()
		sess := storage.Session{
			Token:     uuid.New().String(),
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := store.CreateSession(sess); err != nil {
			slog.Error("creating session", "error", err)
			httpError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sess.Token,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleLogout(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			if err := store.DeleteSession(cookie.Value); err != nil {
				slog.Warn("deleting session", "error", err)
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ExpiredSessionDeleter is implemented by the store for the janitor.
type ExpiredSessionDeleter interface {
	DeleteExpiredSessions(now time.Time) (int64, error)
}

// RunSessionJanitor periodically removes expired sessions until ctx is
// cancelled.
func RunSessionJanitor(ctx context.Context, store ExpiredSessionDeleter, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpiredSessions(time.Now())
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
