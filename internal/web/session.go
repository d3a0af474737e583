package web

import (
	"context"
	"net/http"

	"github.com/vbonduro/freezerinv/internal/session"
)

const sessionCookie = "freezerinv_session"

type sessionKey struct{}

// withSession attaches the caller's session to the request context, issuing
// a new cookie when the request has none or an expired one.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess, created := s.sessions.Get(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil,
			})
			s.logger.Debug("session started", "session_id", sess.ID)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}
