package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
)

type credentials struct {
	Email    string
	Name     string
	Password string
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			c.Email, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "password":
			c.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return c, err
	}
	if c.Email == "" || c.Password == "" {
		return c, badRequest("email and password are required")
	}
	return c, nil
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, u *auth.User, token string, exp time.Time) {
	h.setSessionCookie(w, token, exp)
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("user", func(e *jx.Encoder) { encodeUser(e, u) })
		e.Field("token", func(e *jx.Encoder) { e.Str(token) })
		e.Field("expiresAt", func(e *jx.Encoder) { encodeTime(e, exp) })
		e.ObjEnd()
	})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, token, exp, err := h.sessions.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, u, token, exp)
}

// Register handles POST /api/auth/register and logs the new customer in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(c.Password) < 8 {
		writeError(w, r, badRequest("password must be at least 8 characters"))
		return
	}
	u, err := h.sessions.Register(r.Context(), c.Email, c.Name, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, exp, err := h.sessions.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusCreated, u, token, exp)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeUser(e, &auth.User{ID: s.UserID, Email: s.Email, Name: s.Name})
	})
}
