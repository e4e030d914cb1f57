package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
)

const (
	// SessionCookie carries the customer session token.
	SessionCookie = "orephia_session"
	// APIKeyHeader carries the back-office API key.
	APIKeyHeader = "api_key"
)

type sessionKey struct{}

// SessionFromContext returns the customer session set by RequireSession.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*auth.Session)
	return s, ok
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireSession rejects requests without a valid session token, read from
// the session cookie or a bearer Authorization header.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, r, auth.ErrInvalidSession)
			return
		}
		s, err := h.sessions.Verify(token)
		if err != nil {
			writeError(w, r, auth.ErrInvalidSession)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		ctx = zctx.With(ctx, zap.String("user_id", s.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin authenticates a back-office request by the HMAC-SHA256 of
// its API key and requires the admin scope.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		hash := auth.HashAPIKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// The stored row must match what we computed.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !info.HasScope(auth.ScopeAdmin) {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		ctx := zctx.With(r.Context(), zap.String("api_key", info.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
